package convert

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

type zipHandler struct{}

func (zipHandler) Name() string { return "zip" }

func (zipHandler) Accepts(d StreamDescriptor) bool {
	switch d.MIMEType {
	case "application/zip", "application/x-zip-compressed":
		return true
	}
	return strings.ToLower(d.Ext) == "zip"
}

// zipTextExts is the source/text allow-list eligible for inline capture.
var zipTextExts = map[string]bool{
	"txt": true, "md": true, "csv": true, "json": true, "yaml": true,
	"yml": true, "toml": true, "xml": true, "html": true, "css": true,
	"js": true, "ts": true, "py": true, "rs": true, "go": true,
	"java": true, "c": true, "cpp": true, "h": true, "sh": true,
	"cfg": true, "ini": true, "log": true, "rst": true,
}

type zipCapturedFile struct {
	name    string
	content string
}

// Convert lists every entry's name and size, and for entries under the
// size cap with an allow-listed extension, captures the UTF-8 text and
// renders it in its own fenced section afterward.
func (zipHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ConversionResult{}, conversionFailed("zip", "failed to open ZIP archive", err)
	}

	var listing []string
	var captured []zipCapturedFile

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		listing = append(listing, fmt.Sprintf("- `%s` (%d bytes)", f.Name, f.UncompressedSize64))

		if f.UncompressedSize64 >= 1_000_000 {
			continue
		}
		ext := zipFileExt(f.Name)
		if !zipTextExts[ext] {
			continue
		}
		content, ok := readZipFileAsText(f)
		if ok && content != "" {
			captured = append(captured, zipCapturedFile{name: f.Name, content: content})
		}
	}

	var sb strings.Builder
	sb.WriteString("# Archive Contents\n\n")
	fmt.Fprintf(&sb, "**%d files**\n\n", len(listing))
	for _, line := range listing {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	if len(captured) > 0 {
		sb.WriteString("\n---\n\n")
		for _, cf := range captured {
			ext := zipFileExt(cf.name)
			if ext == "" {
				ext = "txt"
			}
			fmt.Fprintf(&sb, "## %s\n\n```%s\n%s", cf.name, ext, cf.content)
			if !strings.HasSuffix(cf.content, "\n") {
				sb.WriteByte('\n')
			}
			sb.WriteString("```\n\n")
		}
	}

	result := newResult(sb.String())
	return result.withMetadata("file_count", strconv.Itoa(len(listing))), nil
}

func zipFileExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

func readZipFileAsText(f *zip.File) (string, bool) {
	rc, err := f.Open()
	if err != nil {
		return "", false
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}
