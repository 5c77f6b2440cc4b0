package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"gamelog/pkg/images"
)

// requestKind is how a request body is encoded. It is decided once, from the
// Content-Type header, before any handler reads the body.
type requestKind int

const (
	kindForm requestKind = iota
	kindMultipart
	kindJSON
)

func (k requestKind) String() string {
	switch k {
	case kindMultipart:
		return "multipart"
	case kindJSON:
		return "json"
	default:
		return "form"
	}
}

const (
	maxFormBytes      = 1 << 20
	maxMultipartBytes = images.MaxUploadBytes + maxFormBytes
)

var errBadBody = errors.New("malformed request body")

func requestKindOf(r *http.Request) requestKind {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return kindForm
	}
	switch mediaType {
	case "application/json":
		return kindJSON
	case "multipart/form-data":
		return kindMultipart
	default:
		return kindForm
	}
}

// formValues is the decoded body of a request, independent of its encoding.
// Multipart file parts stay on the request and are read with uploadedFile.
type formValues map[string]string

func (f formValues) get(key string) string { return strings.TrimSpace(f[key]) }

// raw returns the value untrimmed, for passwords.
func (f formValues) raw(key string) string { return f[key] }

// readForm decodes the body of r according to its request kind.
func readForm(w http.ResponseWriter, r *http.Request) (formValues, requestKind, error) {
	kind := requestKindOf(r)
	values := formValues{}

	switch kind {
	case kindJSON:
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var body map[string]any
		if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return nil, kind, errBadBody
		}
		for k, v := range body {
			switch val := v.(type) {
			case nil:
			case string:
				values[k] = val
			case json.Number:
				values[k] = val.String()
			case bool:
				values[k] = fmt.Sprint(val)
			default:
				return nil, kind, fmt.Errorf("%w: field %q must be a scalar", errBadBody, k)
			}
		}
	case kindMultipart:
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
		if err := r.ParseMultipartForm(maxFormBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, kind, images.ErrTooLarge
			}
			return nil, kind, errBadBody
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				values[k] = v[0]
			}
		}
	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			return nil, kind, errBadBody
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				values[k] = v[0]
			}
		}
	}
	return values, kind, nil
}

// releaseForm removes the temporary files a multipart body spilled to disk.
// net/http only cleans up the form of the request it created, not the copies
// middleware hands to handlers.
func releaseForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// uploadedFile returns the bytes of the named multipart file part. ok is false
// when the request is not multipart or carries no such part.
func uploadedFile(r *http.Request, kind requestKind, field string) (data []byte, ok bool, err error) {
	if kind != kindMultipart || r.MultipartForm == nil {
		return nil, false, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 || headers[0].Size == 0 {
		return nil, false, nil
	}
	if headers[0].Size > images.MaxUploadBytes {
		return nil, true, images.ErrTooLarge
	}

	f, err := headers[0].Open()
	if err != nil {
		return nil, true, err
	}
	defer f.Close()

	data, err = io.ReadAll(io.LimitReader(f, images.MaxUploadBytes+1))
	if err != nil {
		return nil, true, err
	}
	return data, true, nil
}
