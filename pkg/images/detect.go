package images

import (
	"net/http"
	"strings"
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DetectContentType sniffs data and returns its image MIME type, or "" when
// the bytes are not an image format GameLog accepts.
func DetectContentType(data []byte) string {
	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if _, ok := extensions[contentType]; !ok {
		return ""
	}
	return contentType
}

func extensionFor(contentType string) string {
	return extensions[contentType]
}
