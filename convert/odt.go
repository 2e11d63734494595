package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// odtHandler converts OpenDocument Text (.odt) packages. The format
// isn't named by the word-processing component, which enumerates only
// DOCX — ODT is kept here as a supplemental sibling of the XLSX/ODS
// handler since both are OpenDocument Format packages and this
// package's zip+xml idiom extends to it with no extra dependency.
type odtHandler struct{}

func (odtHandler) Name() string { return "odt" }

func (odtHandler) Accepts(d StreamDescriptor) bool {
	if d.MIMEType == "application/vnd.oasis.opendocument.text" {
		return true
	}
	return strings.ToLower(d.Ext) == "odt"
}

func (odtHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ConversionResult{}, conversionFailed("odt", "not a valid ZIP/ODF package", err)
	}

	contentXML, err := readZipEntry(zr, "content.xml")
	if err != nil {
		return ConversionResult{}, conversionFailed("odt", "missing content.xml", err)
	}

	body, err := extractOdtBody(contentXML)
	if err != nil {
		return ConversionResult{}, conversionFailed("odt", "failed to parse document body", err)
	}

	return newResult(trimTrailingWhitespace(body)), nil
}

// extractOdtBody walks office:body/office:text with the same
// token-based xml.Decoder idiom as the DOCX handler: text:h elements
// (with an outline-level attribute) become headings, text:p become
// paragraphs, table:table sections become Markdown tables.
func extractOdtBody(contentXML []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(contentXML))

	var out strings.Builder
	var para strings.Builder
	var headingLevel int
	var inPara bool

	var inTable bool
	var tableRows [][]string
	var curRow []string
	var curCell strings.Builder

	flushPara := func() {
		text := strings.TrimSpace(para.String())
		if text != "" {
			if inTable {
				if curCell.Len() > 0 {
					curCell.WriteByte(' ')
				}
				curCell.WriteString(text)
			} else if headingLevel > 0 {
				level := headingLevel
				if level > 6 {
					level = 6
				}
				out.WriteString(strings.Repeat("#", level))
				out.WriteByte(' ')
				out.WriteString(text)
				out.WriteString("\n\n")
			} else {
				out.WriteString(text)
				out.WriteString("\n\n")
			}
		}
		para.Reset()
		headingLevel = 0
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
			case "h":
				inPara = true
				para.Reset()
				if lvl, convErr := strconv.Atoi(attrVal(t, "outline-level")); convErr == nil {
					headingLevel = lvl
				}
			case "p":
				inPara = true
				para.Reset()
				headingLevel = 0
			case "table":
				inTable = true
				tableRows = nil
			case "table-row":
				curRow = nil
			case "table-cell":
				curCell.Reset()
			}
		case xml.CharData:
			if inPara {
				para.Write(t)
			}
		case xml.EndElement:
			switch localName(t.Name) {
			case "h", "p":
				flushPara()
				inPara = false
			case "table-cell":
				if inTable {
					curRow = append(curRow, curCell.String())
				}
			case "table-row":
				if inTable && curRow != nil {
					tableRows = append(tableRows, curRow)
				}
			case "table":
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
