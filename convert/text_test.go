package convert

import "testing"

func TestPlainTextHandlerAccepts(t *testing.T) {
	h := plainTextHandler{}
	tests := []struct {
		d    StreamDescriptor
		want bool
	}{
		{StreamDescriptor{MIMEType: "text/plain"}, true},
		{StreamDescriptor{MIMEType: "text/html"}, true},
		{StreamDescriptor{Ext: "py"}, true},
		{StreamDescriptor{Ext: "rs"}, true},
		{StreamDescriptor{MIMEType: "application/pdf", Ext: "pdf"}, false},
	}
	for _, tt := range tests {
		if got := h.Accepts(tt.d); got != tt.want {
			t.Errorf("Accepts(%+v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestPlainTextRoundTrip(t *testing.T) {
	h := plainTextHandler{}
	inputs := []string{"hello world", "line1\nline2\n", "unicode: héllo wörld 日本語", ""}
	for _, s := range inputs {
		result, err := h.Convert([]byte(s), StreamDescriptor{MIMEType: "text/plain"})
		if err != nil {
			t.Fatalf("Convert(%q) error: %v", s, err)
		}
		if result.Body != trimTrailingWhitespace(s) {
			t.Errorf("Convert(%q).Body = %q, want %q", s, result.Body, trimTrailingWhitespace(s))
		}
	}
}

func TestDecodeTextWindows1252Fallback(t *testing.T) {
	// 0x93/0x94 are Windows-1252 curly quotes; invalid as UTF-8 continuation bytes alone.
	data := []byte{0x93, 'h', 'i', 0x94}
	text := decodeText(data)
	if text == "" {
		t.Fatal("expected non-empty decoded text")
	}
}

func TestDecodeTextBOM(t *testing.T) {
	// A UTF-8 BOM followed by valid UTF-8 is itself valid UTF-8, so it is
	// returned unchanged, BOM included.
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)
	if got := decodeText(data); got != "\ufeffhello" {
		t.Errorf("decodeText() = %q, want \"\\ufeffhello\"", got)
	}
}
