package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

type docxHandler struct{}

func (docxHandler) Name() string { return "docx" }

func (docxHandler) Accepts(d StreamDescriptor) bool {
	if d.MIMEType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document" {
		return true
	}
	return strings.ToLower(d.Ext) == "docx"
}

// Convert walks word/document.xml's body children in document order
// with a token-based xml.Decoder, the idiom this package uses
// throughout its ZIP+XML handlers. Element names are compared on
// their local part only (stripped through the last ':'), per the
// namespace-insensitive convention this format's handlers share.
func (docxHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ConversionResult{}, conversionFailed("docx", "not a valid ZIP/OOXML package", err)
	}

	docXML, err := readZipEntry(zr, "word/document.xml")
	if err != nil {
		return ConversionResult{}, conversionFailed("docx", "missing word/document.xml", err)
	}

	body, err := extractDocxBody(docXML)
	if err != nil {
		return ConversionResult{}, conversionFailed("docx", "failed to parse document body", err)
	}

	return newResult(trimTrailingWhitespace(body)), nil
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, errMissingZipEntry(name)
}

type zipEntryMissingError struct{ name string }

func errMissingZipEntry(name string) error { return &zipEntryMissingError{name} }
func (e *zipEntryMissingError) Error() string { return "zip entry not found: " + e.name }

func localName(name xml.Name) string {
	if idx := strings.LastIndex(name.Local, ":"); idx >= 0 {
		return name.Local[idx+1:]
	}
	return name.Local
}

// docxRun tracks the bold/italic state of a run while its text/tab/break
// children are being accumulated.
type docxRun struct {
	bold, italic bool
	text         strings.Builder
}

func (r *docxRun) render() string {
	text := r.text.String()
	if text == "" {
		return ""
	}
	switch {
	case r.bold && r.italic:
		return "***" + text + "***"
	case r.bold:
		return "**" + text + "**"
	case r.italic:
		return "*" + text + "*"
	default:
		return text
	}
}

func extractDocxBody(docXML []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))

	var out strings.Builder

	var paraText strings.Builder
	var paraStyleID string
	var inParagraph bool

	var run *docxRun
	var inRun bool

	var inTable bool
	var tableRows [][]string
	var curRow []string
	var curCell strings.Builder
	var cellParaCount int

	flushRun := func() {
		if run != nil {
			paraText.WriteString(run.render())
			run = nil
		}
	}

	flushParagraph := func() {
		flushRun()
		text := strings.TrimSpace(paraText.String())
		if text != "" {
			if level := docxHeadingLevel(paraStyleID); level > 0 {
				out.WriteString(strings.Repeat("#", level))
				out.WriteByte(' ')
				out.WriteString(text)
				out.WriteString("\n\n")
			} else {
				out.WriteString(text)
				out.WriteString("\n\n")
			}
		}
		paraText.Reset()
		paraStyleID = ""
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "tbl":
				inTable = true
				tableRows = nil
			case "tr":
				if inTable {
					curRow = nil
				}
			case "tc":
				if inTable {
					curCell.Reset()
					cellParaCount = 0
				}
			case "p":
				inParagraph = true
				paraText.Reset()
				paraStyleID = ""
				if inTable {
					if cellParaCount > 0 && curCell.Len() > 0 {
						curCell.WriteByte(' ')
					}
					cellParaCount++
				}
			case "pStyle":
				if inParagraph {
					paraStyleID = attrVal(t, "val")
				}
			case "r":
				inRun = true
				run = &docxRun{}
			case "b":
				if inRun {
					run.bold = attrVal(t, "val") != "false" && attrVal(t, "val") != "0"
				}
			case "i":
				if inRun {
					run.italic = attrVal(t, "val") != "false" && attrVal(t, "val") != "0"
				}
			case "tab":
				if inRun {
					run.text.WriteByte('\t')
				}
			case "br":
				if inRun {
					run.text.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inRun && run != nil {
				run.text.Write(t)
			}
		case xml.EndElement:
			switch localName(t.Name) {
			case "r":
				flushRun()
				inRun = false
			case "p":
				if inTable {
					flushRun()
					cellText := strings.TrimSpace(paraText.String())
					if cellText != "" {
						if curCell.Len() > 0 {
							curCell.WriteByte(' ')
						}
						curCell.WriteString(cellText)
					}
					paraText.Reset()
				} else {
					flushParagraph()
				}
				inParagraph = false
			case "tc":
				if inTable {
					curRow = append(curRow, curCell.String())
				}
			case "tr":
				if inTable && curRow != nil {
					tableRows = append(tableRows, curRow)
				}
			case "tbl":
				if len(tableRows) > 0 {
					out.WriteString(toMarkdownTable(tableRows))
					out.WriteString("\n\n")
				}
				inTable = false
				tableRows = nil
			}
		}
	}

	return out.String(), nil
}

func attrVal(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if localName(a.Name) == local {
			return a.Value
		}
	}
	return ""
}

// docxHeadingLevel maps a paragraph style ID to a Markdown heading
// level: "Heading1".."Heading6" (case-insensitive) map directly,
// capped at 6; "Title"/"Subtitle" map to levels 1/2.
func docxHeadingLevel(styleID string) int {
	lower := strings.ToLower(styleID)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	if strings.HasPrefix(lower, "heading") {
		levelStr := strings.TrimPrefix(lower, "heading")
		if n, err := strconv.Atoi(levelStr); err == nil {
			if n > 6 {
				n = 6
			}
			if n < 1 {
				return 0
			}
			return n
		}
	}
	return 0
}
