package convert

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

type pdfHandler struct{}

func (pdfHandler) Name() string { return "pdf" }

func (pdfHandler) Accepts(d StreamDescriptor) bool {
	return d.MIMEType == "application/pdf" || strings.ToLower(d.Ext) == "pdf"
}

// Convert extracts text page by page via pdfcpu's content-stream
// operators, drops empty pages, and joins the rest with a horizontal
// rule. page_count reports every page pdfcpu sees, including ones
// whose text extraction yielded only whitespace.
func (pdfHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	var ctx *model.Context
	var readErr error

	withSuppressedStdout(func() {
		conf := model.NewDefaultConfiguration()
		ctx, readErr = api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	})
	if readErr != nil {
		return ConversionResult{}, conversionFailed("pdf", "failed to read PDF", readErr)
	}

	var pages []string
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		var text string
		withSuppressedStdout(func() {
			text = extractPageText(ctx, pageNr)
		})
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, text)
	}

	result := newResult(strings.Join(pages, "\n\n---\n\n"))
	return result.withMetadata("page_count", strconv.Itoa(ctx.PageCount)), nil
}

// withSuppressedStdout redirects process-wide standard output to the
// null device for the duration of fn, serialized by a package mutex
// since the redirect is process-global state shared by every call. On
// platforms without os.DevNull support this degrades to a no-op and the
// underlying library's debug output passes through.
var stdoutRedirectMu sync.Mutex

func withSuppressedStdout(fn func()) {
	if runtime.GOOS == "windows" || runtime.GOOS == "js" {
		fn()
		return
	}

	stdoutRedirectMu.Lock()
	defer stdoutRedirectMu.Unlock()

	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		fn()
		return
	}
	defer devNull.Close()

	original := os.Stdout
	os.Stdout = devNull
	defer func() { os.Stdout = original }()

	fn()
}

// extractPageText extracts text from a single PDF page via pdfcpu's
// content stream.
func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return extractTextFromStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// extractTextFromStream parses PDF content stream operators for text.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder

	lines := bytes.Split(data, []byte{'\n'})
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.Contains(line, []byte("Tj")), bytes.Contains(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if text := decodePDFString(m[1]); text != "" {
					sb.WriteString(text)
				}
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if text := decodePDFString(m[1]); text != "" {
					sb.WriteByte('\n')
					sb.WriteString(text)
				}
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return cleanPDFText(sb.String())
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '(':
				sb.WriteByte('(')
			case ')':
				sb.WriteByte(')')
			default:
				if raw[i] >= '0' && raw[i] <= '7' {
					val := int(raw[i] - '0')
					if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
						i++
						val = val*8 + int(raw[i]-'0')
						if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
							i++
							val = val*8 + int(raw[i]-'0')
						}
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(raw[i])
				}
			}
		} else {
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

// cleanPDFText normalizes whitespace in extracted PDF text.
func cleanPDFText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
