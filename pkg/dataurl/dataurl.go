package dataurl

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrMalformed is returned by Parse when the input is not a base64 data URI.
var ErrMalformed = errors.New("dataurl: malformed data uri")

const genericMediaType = "application/octet-stream"

// DataURL is a self-contained `data:<media type>;base64,<payload>` value.
type DataURL struct {
	MediaType string
	Data      []byte
}

// Encode reads r to EOF and wraps the bytes in a DataURL. When mediaType is
// empty or generic the type is sniffed from the content.
func Encode(r io.Reader, mediaType string) (DataURL, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return DataURL{}, fmt.Errorf("dataurl: read source: %w", err)
	}
	data := buf.Bytes()
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" || mediaType == genericMediaType {
		mediaType = http.DetectContentType(data)
	}
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	return DataURL{MediaType: mediaType, Data: data}, nil
}

// Parse splits a base64 data URI into its media type and raw payload.
func Parse(s string) (DataURL, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return DataURL{}, ErrMalformed
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return DataURL{}, ErrMalformed
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return DataURL{}, ErrMalformed
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return DataURL{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}
	return DataURL{MediaType: mediaType, Data: data}, nil
}

// String renders the data URI.
func (d DataURL) String() string {
	mediaType := d.MediaType
	if mediaType == "" {
		mediaType = genericMediaType
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// Extension returns a file extension for the media type, defaulting to png.
func (d DataURL) Extension() string {
	switch d.MediaType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}
