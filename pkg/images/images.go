// Package images uploads user supplied pictures to an external host and
// returns the public URL they are served from.
package images

import (
	"context"
	"errors"
)

// Folders used by GameLog uploads.
const (
	FolderGameCovers  = "game-covers"
	FolderProfilePics = "profile_pics"
)

// MaxUploadBytes caps a single image upload.
const MaxUploadBytes = 10 << 20

var (
	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("image is empty")
	// ErrTooLarge is returned when an upload exceeds MaxUploadBytes.
	ErrTooLarge = errors.New("image is too large")
	// ErrNotImage is returned when the payload is not a recognised image type.
	ErrNotImage = errors.New("file is not an image")
	// ErrUpstream wraps failures reported by the image host.
	ErrUpstream = errors.New("image host unavailable")
)

// Host stores image bytes under folder and returns a secure URL.
type Host interface {
	Upload(ctx context.Context, data []byte, folder string) (string, error)
}

func validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxUploadBytes {
		return "", ErrTooLarge
	}
	contentType := DetectContentType(data)
	if contentType == "" {
		return "", ErrNotImage
	}
	return contentType, nil
}
