package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"kfashion/pkg/dataurl"
)

var (
	errMissingFile      = errors.New(`multipart field "file" is required`)
	errUnsupportedMedia = errors.New("expected multipart/form-data, image/* or JSON data URL body")
	errMalformedImage   = errors.New(`field "image" must be a base64 image data URL`)
)

type imageRequest struct {
	Image string `json:"image" validate:"required"`
}

// openUpload returns the uploaded image and its declared media type. The
// caller closes the reader and, for multipart bodies, removes temp files.
func (a *App) openUpload(r *http.Request) (io.ReadCloser, string, error) {
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
			return nil, "", err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, "", errMissingFile
			}
			return nil, "", err
		}
		return file, header.Header.Get("Content-Type"), nil
	case strings.HasPrefix(contentType, "image/"):
		return r.Body, contentType, nil
	case strings.HasPrefix(contentType, "application/json"):
		return a.openDataURL(r.Body)
	default:
		return nil, "", errUnsupportedMedia
	}
}

// openDataURL decodes a {"image": "data:<type>;base64,..."} body, the form a
// browser FileReader produces.
func (a *App) openDataURL(body io.Reader) (io.ReadCloser, string, error) {
	var req imageRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%w: %v", errMalformedImage, err)
	}
	if err := a.validate.Struct(req); err != nil {
		return nil, "", errMalformedImage
	}
	img, err := dataurl.Parse(req.Image)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errMalformedImage, err)
	}
	if !strings.HasPrefix(img.MediaType, "image/") {
		return nil, "", errUnsupportedMedia
	}
	return io.NopCloser(bytes.NewReader(img.Data)), img.MediaType, nil
}
