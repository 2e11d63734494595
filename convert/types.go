// Package convert turns heterogeneous document payloads — HTML, office
// documents, spreadsheets, slide decks, e-books, PDFs, notebooks, email
// messages, archives, feeds, images, plain text — into a single normalized
// Markdown representation.
//
// Usage:
//
//	p := convert.New(convert.Config{})
//	result, err := p.Convert(data, convert.StreamDescriptor{Filename: "report.docx"})
//	fmt.Println(result.Title, result.Body)
package convert

// StreamDescriptor carries optional hints about a byte buffer: declared
// media type, file extension, charset, filename, source URL. All fields
// are independently optional. Detection fills gaps; it never overwrites a
// field the caller already supplied, except MIME normalization, which
// always runs.
type StreamDescriptor struct {
	MIMEType string
	Ext      string
	Charset  string
	Filename string
	URL      string
}

// ConversionResult is produced by a Handler. Body never has trailing
// whitespace after its final non-empty line. Title, when present, is
// non-empty. Metadata keys vary by handler family (page_count,
// slide_count, chapter_count, sheet_count, cell_count, file_count,
// language, source_url among others).
type ConversionResult struct {
	Body     string
	Title    string
	Metadata map[string]string
}

func newResult(body string) ConversionResult {
	return ConversionResult{Body: trimTrailingWhitespace(body)}
}

func (r ConversionResult) withTitle(title string) ConversionResult {
	r.Title = title
	return r
}

func (r ConversionResult) withMetadata(key, value string) ConversionResult {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string, 4)
	}
	r.Metadata[key] = value
	return r
}

// Handler is one format family's extractor. accepts must be pure and
// cheap; convert must never panic on malformed input — it returns a
// ConversionError instead.
type Handler interface {
	Name() string
	Accepts(d StreamDescriptor) bool
	Convert(data []byte, d StreamDescriptor) (ConversionResult, error)
}

func trimTrailingWhitespace(s string) string {
	end := len(s)
	for end > 0 {
		switch s[end-1] {
		case ' ', '\t', '\r', '\n':
			end--
			continue
		}
		break
	}
	return s[:end]
}
