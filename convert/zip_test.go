package convert

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildZipFixture(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
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

func TestZipHandler(t *testing.T) {
	files := map[string]string{
		"readme.md":    "# Hello\n",
		"data.bin":     "\x00\x01binary",
		"notes.txt":    "plain text notes",
		"archive.jpg":  "not really a jpeg but irrelevant to text extraction",
	}
	data := buildZipFixture(t, files)

	h := zipHandler{}
	result, err := h.Convert(data, StreamDescriptor{Ext: "zip"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "# Archive Contents") {
		t.Errorf("expected Archive Contents header, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "**4 files**") {
		t.Errorf("expected 4 files listed, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "## readme.md") || !strings.Contains(result.Body, "# Hello") {
		t.Errorf("expected readme.md content captured, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "## notes.txt") {
		t.Errorf("expected notes.txt content captured, got:\n%s", result.Body)
	}
	if strings.Contains(result.Body, "## archive.jpg") {
		t.Errorf("jpg is not in the text allow-list, should not be captured:\n%s", result.Body)
	}
	if result.Metadata["file_count"] != "4" {
		t.Errorf("file_count = %q, want 4", result.Metadata["file_count"])
	}
}

func TestZipHandlerSkipsDirectories(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if _, err := zw.Create("subdir/"); err != nil {
		t.Fatalf("create dir entry: %v", err)
	}
	w, err := zw.Create("subdir/file.txt")
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	w.Write([]byte("content"))
	zw.Close()

	h := zipHandler{}
	result, err := h.Convert(buf.Bytes(), StreamDescriptor{Ext: "zip"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if result.Metadata["file_count"] != "1" {
		t.Errorf("file_count = %q, want 1 (directory should be skipped)", result.Metadata["file_count"])
	}
}

func TestZipHandlerAccepts(t *testing.T) {
	h := zipHandler{}
	if !h.Accepts(StreamDescriptor{MIMEType: "application/zip"}) {
		t.Error("expected to accept application/zip")
	}
	if !h.Accepts(StreamDescriptor{Ext: "zip"}) {
		t.Error("expected to accept .zip")
	}
}
