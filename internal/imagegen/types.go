package imagegen

import (
	"context"

	"kfashion/pkg/dataurl"
)

// Part is one element of a model response: either TextPart or ImagePart.
type Part interface {
	isPart()
}

// TextPart is a textual response fragment.
type TextPart struct {
	Text string
}

// ImagePart is an inline image returned by the model.
type ImagePart struct {
	MediaType string
	Data      []byte
}

func (TextPart) isPart()  {}
func (ImagePart) isPart() {}

// DataURL renders the image as a data URI.
func (p ImagePart) DataURL() dataurl.DataURL {
	mediaType := p.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return dataurl.DataURL{MediaType: mediaType, Data: p.Data}
}

// FirstImage returns the first image part in order. Every other part is
// ignored.
func FirstImage(parts []Part) (ImagePart, bool) {
	for _, p := range parts {
		if img, ok := p.(ImagePart); ok && len(img.Data) > 0 {
			return img, true
		}
	}
	return ImagePart{}, false
}

// GenerateRequest is one source image plus the prompt that describes the
// desired output.
type GenerateRequest struct {
	Source dataurl.DataURL
	Prompt string
}

// Generator produces an image from a source image and a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (ImagePart, error)
}
