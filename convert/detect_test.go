package convert

import "testing"

func TestDetectMIMENormalization(t *testing.T) {
	d := detect([]byte("hello"), StreamDescriptor{MIMEType: "text/html; charset=utf-8"})
	if d.MIMEType != "text/html" {
		t.Errorf("MIMEType = %q, want text/html", d.MIMEType)
	}
}

func TestDetectMagicBytes(t *testing.T) {
	d := detect([]byte("%PDF-1.4\n..."), StreamDescriptor{})
	if d.MIMEType != "application/pdf" {
		t.Errorf("MIMEType = %q, want application/pdf", d.MIMEType)
	}
}

func TestDetectHTMLHeuristic(t *testing.T) {
	d := detect([]byte("<!DOCTYPE html><html><body>hi</body></html>"), StreamDescriptor{})
	if d.MIMEType != "text/html" {
		t.Errorf("MIMEType = %q, want text/html", d.MIMEType)
	}
}

func TestDetectJSONHeuristic(t *testing.T) {
	d := detect([]byte(`{"a": 1}`), StreamDescriptor{})
	if d.MIMEType != "application/json" {
		t.Errorf("MIMEType = %q, want application/json", d.MIMEType)
	}
}

func TestDetectTextFallback(t *testing.T) {
	d := detect([]byte("just some text"), StreamDescriptor{})
	if d.MIMEType != "text/plain" {
		t.Errorf("MIMEType = %q, want text/plain", d.MIMEType)
	}
}

func TestDetectExtensionFromFilename(t *testing.T) {
	d := detect([]byte{}, StreamDescriptor{Filename: "report.DOCX"})
	if d.Ext != "docx" {
		t.Errorf("Ext = %q, want docx", d.Ext)
	}
	if d.MIMEType == "" {
		t.Error("expected MIMEType to be derived from extension")
	}
}

func TestDetectExtensionFromURLStripsQuery(t *testing.T) {
	ext := extensionFromName("https://example.com/file.pdf?download=1#frag")
	if ext != "pdf" {
		t.Errorf("extensionFromName() = %q, want pdf", ext)
	}
}

func TestDetectNeverOverwritesCallerMIME(t *testing.T) {
	d := detect([]byte("%PDF-1.4"), StreamDescriptor{MIMEType: "application/octet-stream"})
	if d.MIMEType != "application/octet-stream" {
		t.Errorf("MIMEType = %q, want caller value preserved", d.MIMEType)
	}
}

func TestDetectIdempotent(t *testing.T) {
	data := []byte("<!doctype html><html></html>")
	first := detect(data, StreamDescriptor{})
	second := detect(data, first)
	if first != second {
		t.Errorf("detect is not idempotent: %+v vs %+v", first, second)
	}
}
