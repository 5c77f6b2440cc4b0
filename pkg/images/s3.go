package images

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

type objectStore interface {
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
}

// S3 stores images in an S3 compatible bucket served from a public base URL.
type S3 struct {
	store   objectStore
	bucket  string
	baseURL string
}

// NewS3 returns an S3 host writing into bucket. baseURL is the public prefix
// objects are reachable under.
func NewS3(store objectStore, bucket, baseURL string) (*S3, error) {
	if store == nil {
		return nil, errors.New("images: nil object store")
	}
	if bucket == "" || baseURL == "" {
		return nil, errors.New("images: bucket and public base url are required")
	}
	return &S3{store: store, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload stores data under folder/<uuid><ext> and returns its public URL.
func (s *S3) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	contentType, err := validate(data)
	if err != nil {
		return "", err
	}

	key := path.Join(folder, uuid.NewString()+extensionFor(contentType))
	if err := s.store.PutObject(ctx, s.bucket, key, contentType, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return s.baseURL + "/" + key, nil
}
