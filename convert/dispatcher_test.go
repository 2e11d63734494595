package convert

import (
	"strings"
	"testing"
)

func TestPipelineOrderingPDFBeforeZip(t *testing.T) {
	// A PDF is also byte-for-byte a ZIP-incompatible stream, but more to
	// the point: both magic-byte detection and the dispatcher's handler
	// order must agree that application/pdf routes to the PDF handler,
	// not anything more general further down the registry.
	p := New(Config{})
	_, err := p.Convert([]byte("%PDF-1.4\nnot a real pdf body"), StreamDescriptor{})
	if err == nil {
		t.Fatal("expected a conversion_failed error from a malformed PDF, not a handler mismatch")
	}
	var convErr *ConversionError
	if ce, ok := err.(*ConversionError); ok {
		convErr = ce
	}
	if convErr == nil {
		t.Fatalf("expected *ConversionError, got %T: %v", err, err)
	}
	if convErr.Handler != "pdf" {
		t.Errorf("expected the pdf handler to have claimed this input, got handler %q", convErr.Handler)
	}
}

func TestPipelineNoHandler(t *testing.T) {
	p := New(Config{})
	_, err := p.Convert([]byte{0x00, 0x01, 0x02, 0xFF, 0xFE}, StreamDescriptor{MIMEType: "application/octet-stream"})
	if err != ErrNoHandler {
		t.Errorf("expected ErrNoHandler, got %v", err)
	}
}

func TestPipelinePlainTextFallback(t *testing.T) {
	p := New(Config{})
	result, err := p.Convert([]byte("just some plain text"), StreamDescriptor{})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if result.Body != "just some plain text" {
		t.Errorf("Body = %q, want passthrough text", result.Body)
	}
}

func TestPipelineCSVBeforeHTML(t *testing.T) {
	p := New(Config{})
	result, err := p.Convert([]byte("name,age\nAlice,30\n"), StreamDescriptor{Ext: "csv"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "Alice") {
		t.Errorf("expected CSV table rendering, got:\n%s", result.Body)
	}
}

func TestPipelineRegisterAppendsAfterBuiltins(t *testing.T) {
	p := New(Config{})
	builtinCount := len(p.handlers)
	p.Register(plainTextHandler{})
	if len(p.handlers) != builtinCount+1 {
		t.Fatalf("expected %d handlers after Register, got %d", builtinCount+1, len(p.handlers))
	}
	if p.handlers[len(p.handlers)-1].Name() != "plain_text" {
		t.Errorf("expected registered handler to run last, got %q", p.handlers[len(p.handlers)-1].Name())
	}
}

func TestPipelineDetectionIdempotent(t *testing.T) {
	d := StreamDescriptor{Ext: "csv"}
	data := []byte("a,b\n1,2\n")
	first := detect(data, d)
	second := detect(data, first)
	if first != second {
		t.Errorf("detect should be idempotent: first=%+v second=%+v", first, second)
	}
}
