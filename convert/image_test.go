package convert

import (
	"strings"
	"testing"
)

func TestImageHandlerNoEXIF(t *testing.T) {
	// A minimal valid PNG signature with no EXIF chunk at all.
	data := []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("x", 32))
	h := imageHandler{}
	result, err := h.Convert(data, StreamDescriptor{Filename: "photo.png"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "# Image: photo.png") {
		t.Errorf("expected filename header, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "PNG") {
		t.Errorf("expected detected format PNG, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "*No EXIF metadata found*") {
		t.Errorf("expected no-EXIF note, got:\n%s", result.Body)
	}
}

func TestImageHandlerNoFilename(t *testing.T) {
	h := imageHandler{}
	result, err := h.Convert([]byte("GIF89a"), StreamDescriptor{})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.HasPrefix(result.Body, "# Image\n") {
		t.Errorf("expected bare '# Image' header, got:\n%s", result.Body)
	}
}

func TestDetectImageFormat(t *testing.T) {
	cases := []struct {
		data []byte
		want string
	}{
		{[]byte{0xFF, 0xD8, 0xFF, 0xE0}, "JPEG"},
		{[]byte("\x89PNG\r\n\x1a\n"), "PNG"},
		{[]byte("GIF89a"), "GIF"},
		{[]byte("BM\x00\x00"), "BMP"},
	}
	for _, c := range cases {
		if got := detectImageFormat(c.data, StreamDescriptor{}); got != c.want {
			t.Errorf("detectImageFormat(%q) = %q, want %q", c.data, got, c.want)
		}
	}
}

func TestImageHandlerAccepts(t *testing.T) {
	h := imageHandler{}
	if !h.Accepts(StreamDescriptor{MIMEType: "image/jpeg"}) {
		t.Error("expected to accept image/jpeg")
	}
	if !h.Accepts(StreamDescriptor{Ext: "png"}) {
		t.Error("expected to accept .png")
	}
	if h.Accepts(StreamDescriptor{MIMEType: "text/plain", Ext: "txt"}) {
		t.Error("expected not to accept text/plain")
	}
}
