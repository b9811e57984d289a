package dataurl

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestEncodeSniffsMediaType(t *testing.T) {
	tests := []struct {
		name      string
		mediaType string
		want      string
	}{
		{name: "empty sniffs", mediaType: "", want: "image/png"},
		{name: "generic sniffs", mediaType: "application/octet-stream", want: "image/png"},
		{name: "explicit kept", mediaType: "image/webp", want: "image/webp"},
		{name: "parameters dropped", mediaType: "image/jpeg; q=1", want: "image/jpeg"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(bytes.NewReader(pngHeader), tc.mediaType)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if got.MediaType != tc.want {
				t.Fatalf("MediaType = %q, want %q", got.MediaType, tc.want)
			}
			if !bytes.Equal(got.Data, pngHeader) {
				t.Fatalf("Data mismatch")
			}
		})
	}
}

func TestEncodeReadFailure(t *testing.T) {
	if _, err := Encode(failingReader{}, "image/png"); err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Fatalf("Encode() error = %v, want wrapped read failure", err)
	}
}

func TestParseRoundTripsString(t *testing.T) {
	in := DataURL{MediaType: "image/png", Data: []byte("raw-bytes")}
	s := in.String()
	if !strings.HasPrefix(s, "data:image/png;base64,") {
		t.Fatalf("String() = %q", s)
	}
	out, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if out.MediaType != in.MediaType || !bytes.Equal(out.Data, in.Data) {
		t.Fatalf("Parse() = %+v, want %+v", out, in)
	}
}

func TestParseMalformed(t *testing.T) {
	inputs := []string{
		"",
		"image/png;base64,AAAA",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,***",
	}
	for _, in := range inputs {
		if _, err := Parse(in); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Parse(%q) error = %v, want ErrMalformed", in, err)
		}
	}
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"image/jpeg": "jpg",
		"image/webp": "webp",
		"image/png":  "png",
		"":           "png",
	}
	for mt, want := range cases {
		if got := (DataURL{MediaType: mt}).Extension(); got != want {
			t.Fatalf("Extension(%q) = %q, want %q", mt, got, want)
		}
	}
}
