package convert

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildPptxFixture(t *testing.T, slides map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range slides {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

const pptxNamespacePreamble = `<?xml version="1.0"?><p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">`

func TestPptxHandler(t *testing.T) {
	slide1 := pptxNamespacePreamble + `<p:cSld><p:spTree><p:sp><a:txBody><a:p><a:r><a:t>Welcome Slide</a:t></a:r></a:p></a:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	slide2 := pptxNamespacePreamble + `<p:cSld><p:spTree><a:tbl><a:tr><a:tc><a:txBody><a:p><a:r><a:t>Col1</a:t></a:r></a:p></a:txBody></a:tc><a:tc><a:txBody><a:p><a:r><a:t>Col2</a:t></a:r></a:p></a:txBody></a:tc></a:tr></a:tbl></p:spTree></p:cSld></p:sld>`

	data := buildPptxFixture(t, map[string]string{
		"ppt/slides/slide1.xml": slide1,
		"ppt/slides/slide2.xml": slide2,
	})

	h := pptxHandler{}
	result, err := h.Convert(data, StreamDescriptor{Ext: "pptx"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "## Slide 1") || !strings.Contains(result.Body, "Welcome Slide") {
		t.Errorf("expected slide 1 content, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "## Slide 2") || !strings.Contains(result.Body, "| Col1 | Col2 |") {
		t.Errorf("expected slide 2 table, got:\n%s", result.Body)
	}
	if result.Title != "Welcome Slide" {
		t.Errorf("Title = %q, want %q", result.Title, "Welcome Slide")
	}
	if result.Metadata["slide_count"] != "2" {
		t.Errorf("slide_count = %q, want 2", result.Metadata["slide_count"])
	}
}

func TestPptxSlideNumberOrdering(t *testing.T) {
	cases := map[string]int{
		"ppt/slides/slide1.xml":  1,
		"ppt/slides/slide12.xml": 12,
		"ppt/slides/slide2.xml":  2,
	}
	for path, want := range cases {
		if got := pptxSlideNumber(path); got != want {
			t.Errorf("pptxSlideNumber(%q) = %d, want %d", path, got, want)
		}
	}
}

func TestPptxHandlerAccepts(t *testing.T) {
	h := pptxHandler{}
	if !h.Accepts(StreamDescriptor{Ext: "pptx"}) {
		t.Error("expected to accept .pptx")
	}
}
