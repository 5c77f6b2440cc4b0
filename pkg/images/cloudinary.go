package images

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Cloudinary uploads images to a Cloudinary account.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary builds a Cloudinary host from account credentials.
func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

// Upload stores data under folder with a random public id.
func (c *Cloudinary) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	if _, err := validate(data); err != nil {
		return "", err
	}

	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       folder,
		PublicID:     uuid.NewString(),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", ErrUpstream, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("%w: empty secure url", ErrUpstream)
	}
	return res.SecureURL, nil
}
