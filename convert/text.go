package convert

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// plainTextExtensions is the fixed allow-list of source-code, config,
// and markup extensions that route through the plain-text handler
// rather than failing to match anything.
var plainTextExtensions = map[string]bool{
	"txt": true, "md": true, "rst": true, "log": true, "cfg": true,
	"ini": true, "toml": true, "yaml": true, "yml": true, "json": true,
	"xml": true, "js": true, "ts": true, "py": true, "rs": true,
	"go": true, "java": true, "c": true, "cpp": true, "h": true,
	"sh": true, "bash": true, "zsh": true, "fish": true, "ps1": true,
	"bat": true, "rb": true, "pl": true, "lua": true, "r": true,
	"swift": true, "kt": true, "scala": true, "hs": true, "ex": true,
	"exs": true, "clj": true,
}

type plainTextHandler struct{}

func (plainTextHandler) Name() string { return "plain_text" }

func (plainTextHandler) Accepts(d StreamDescriptor) bool {
	if strings.HasPrefix(d.MIMEType, "text/") {
		return true
	}
	return plainTextExtensions[strings.ToLower(d.Ext)]
}

func (plainTextHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	return newResult(decodeText(data)), nil
}

// decodeText runs the decode cascade: valid UTF-8 passes through
// unchanged; a recognized BOM selects its encoding; otherwise Windows-1252,
// UTF-16LE, and UTF-16BE are tried in order, accepting the first that
// decodes with no errors; the last resort is lossy UTF-8 replacement.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	if text, ok := decodeWithBOM(data); ok {
		return text
	}

	for _, enc := range []encoding.Encoding{charmap.Windows1252, unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)} {
		if text, err := enc.NewDecoder().Bytes(data); err == nil {
			return string(text)
		}
	}

	return strings.ToValidUTF8(string(data), "�")
}

func decodeWithBOM(data []byte) (string, bool) {
	switch {
	case len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF:
		return string(data[3:]), true
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		text, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		return string(text), err == nil
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		text, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
		return string(text), err == nil
	}
	return "", false
}
