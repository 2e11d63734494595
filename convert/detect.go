package convert

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// magicSignature is one entry in the fixed magic-byte table sniffing
// probes against. Matching against a short, fixed table (rather than a
// general-purpose sniffer) keeps detection predictable for the formats
// this package actually handles.
type magicSignature struct {
	prefix []byte
	mime   string
}

var magicSignatures = []magicSignature{
	{[]byte("%PDF"), "application/pdf"},
	{[]byte("PK\x03\x04"), "application/zip"},
	{[]byte("PK\x05\x06"), "application/zip"},
	{[]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, "application/x-ole-storage"},
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte("\x89PNG\r\n\x1a\n"), "image/png"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte("BM"), "image/bmp"},
	{[]byte("II*\x00"), "image/tiff"},
	{[]byte("MM\x00*"), "image/tiff"},
	{[]byte("RIFF"), "image/webp"}, // narrowed further below (RIFF....WEBP)
}

// extensionMIMEs is the extension → MIME lookup detect uses once magic
// byte sniffing comes up empty.
var extensionMIMEs = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"odt":  "application/vnd.oasis.opendocument.text",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xls":  "application/vnd.ms-excel",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"epub": "application/epub+zip",
	"msg":  "application/vnd.ms-outlook",
	"zip":  "application/zip",
	"csv":  "text/csv",
	"json": "application/json",
	"ipynb": "application/x-ipynb+json",
	"rss":  "application/rss+xml",
	"atom": "application/atom+xml",
	"feed": "application/rss+xml",
	"html": "text/html",
	"htm":  "text/html",
	"xhtml": "application/xhtml+xml",
	"md":   "text/markdown",
	"txt":  "text/plain",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"webp": "image/webp",
	"heic": "image/heic",
}

// detect completes a StreamDescriptor's MIMEType and Ext from the buffer,
// the caller-supplied fields, and a fixed heuristic cascade. Detection
// never fails; it returns whatever it has. It is idempotent: detecting
// twice on an already-detected descriptor is a no-op.
func detect(data []byte, d StreamDescriptor) StreamDescriptor {
	if d.MIMEType != "" {
		d.MIMEType = normalizeMIME(d.MIMEType)
	}

	if d.MIMEType == "" {
		if mime := sniffMagicBytes(data); mime != "" {
			d.MIMEType = mime
		}
	}

	if d.MIMEType == "" && d.Ext != "" {
		if mime, ok := extensionMIMEs[strings.ToLower(d.Ext)]; ok {
			d.MIMEType = mime
		}
	}

	if d.MIMEType == "" && d.Filename != "" {
		if ext := extensionFromName(d.Filename); ext != "" {
			if mime, ok := extensionMIMEs[ext]; ok {
				d.MIMEType = mime
			}
		}
	}

	if d.MIMEType == "" && d.URL != "" {
		if ext := extensionFromName(d.URL); ext != "" {
			if mime, ok := extensionMIMEs[ext]; ok {
				d.MIMEType = mime
			}
		}
	}

	if d.MIMEType == "" && looksLikeHTML(data) {
		d.MIMEType = "text/html"
	}

	if d.MIMEType == "" && looksLikeJSON(data) {
		d.MIMEType = "application/json"
	}

	if d.MIMEType == "" && utf8.Valid(data) {
		d.MIMEType = "text/plain"
	}

	if d.Ext == "" {
		if d.Filename != "" {
			d.Ext = extensionFromName(d.Filename)
		} else if d.URL != "" {
			d.Ext = extensionFromName(d.URL)
		}
	}

	return d
}

func normalizeMIME(mime string) string {
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = mime[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}

func sniffMagicBytes(data []byte) string {
	for _, sig := range magicSignatures {
		if bytes.HasPrefix(data, sig.prefix) {
			if sig.mime == "image/webp" {
				if len(data) < 12 || !bytes.Equal(data[8:12], []byte("WEBP")) {
					continue
				}
			}
			return sig.mime
		}
	}
	return ""
}

// looksLikeHTML lowercases the first 512 bytes and looks for any of
// the standard document markers.
func looksLikeHTML(data []byte) bool {
	n := len(data)
	if n > 512 {
		n = 512
	}
	head := strings.ToLower(string(data[:n]))
	for _, marker := range []string{"<!doctype html", "<html", "<head", "<body"} {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}

// looksLikeJSON skips leading whitespace and checks whether the first
// non-whitespace byte opens an object or array.
func looksLikeJSON(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

// extensionFromName derives a lowercased, ≤10-char extension from a
// filename or URL, stripping any `?`/`#` suffix first.
func extensionFromName(name string) string {
	if idx := strings.IndexAny(name, "?#"); idx >= 0 {
		name = name[:idx]
	}
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	ext := strings.ToLower(name[idx+1:])
	if len(ext) > 10 {
		ext = ext[:10]
	}
	return ext
}
