package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"
)

type pptxHandler struct{}

func (pptxHandler) Name() string { return "pptx" }

func (pptxHandler) Accepts(d StreamDescriptor) bool {
	if d.MIMEType == "application/vnd.openxmlformats-officedocument.presentationml.presentation" {
		return true
	}
	return strings.ToLower(d.Ext) == "pptx"
}

// Convert enumerates ppt/slides/slideN.xml entries in numeric order,
// pull-parses each with the package's token-loop idiom, and emits one
// "## Slide N" section per slide with non-empty content.
func (pptxHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ConversionResult{}, conversionFailed("pptx", "not a valid ZIP/OOXML package", err)
	}

	slidePaths := pptxSlidePaths(zr)

	var sb strings.Builder
	var title string
	for i, path := range slidePaths {
		slideXML, err := readZipEntry(zr, path)
		if err != nil {
			continue
		}
		content := parsePptxSlideXML(slideXML)
		if content == "" {
			continue
		}

		sb.WriteString("## Slide ")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("\n\n")
		sb.WriteString(content)
		sb.WriteString("\n\n")

		if i == 0 && title == "" {
			if firstLine, _, _ := strings.Cut(content, "\n"); firstLine != "" {
				title = firstLine
			}
		}
	}

	result := newResult(strings.TrimRight(sb.String(), "\n"))
	result = result.withMetadata("slide_count", strconv.Itoa(len(slidePaths)))
	if title != "" {
		result = result.withTitle(title)
	}
	return result, nil
}

var pptxSlideNumberPrefix = "ppt/slides/slide"

func pptxSlidePaths(zr *zip.Reader) []string {
	var paths []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, pptxSlideNumberPrefix) && strings.HasSuffix(f.Name, ".xml") {
			paths = append(paths, f.Name)
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		return pptxSlideNumber(paths[i]) < pptxSlideNumber(paths[j])
	})
	return paths
}

func pptxSlideNumber(path string) int {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, pptxSlideNumberPrefix), ".xml")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0
	}
	return n
}

// parsePptxSlideXML implements the slide body grammar: "<t>" encloses
// text runs, "<p>" breaks paragraphs (outside a table), and
// "<tbl>/<tr>/<tc>" delimit a table whose cell text accumulates
// separately from outer paragraph text. Tables render through the
// table formatter interleaved as their own paragraph.
func parsePptxSlideXML(slideXML []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(slideXML))

	var paragraphs []string
	var curPara strings.Builder
	var inText bool
	var inTable bool
	var tableRows [][]string
	var curRow []string
	var curCell strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "t":
				inText = true
			case "p":
				if !inTable && curPara.Len() > 0 {
					paragraphs = append(paragraphs, curPara.String())
					curPara.Reset()
				}
			case "tbl":
				inTable = true
			case "tr":
				curRow = nil
			case "tc":
				curCell.Reset()
			}
		case xml.CharData:
			if inText {
				if inTable {
					curCell.Write(t)
				} else {
					curPara.Write(t)
				}
			}
		case xml.EndElement:
			switch localName(t.Name) {
			case "t":
				inText = false
			case "tc":
				curRow = append(curRow, curCell.String())
			case "tr":
				if len(curRow) > 0 {
					tableRows = append(tableRows, curRow)
					curRow = nil
				}
			case "tbl":
				inTable = false
				if len(tableRows) > 0 {
					paragraphs = append(paragraphs, toMarkdownTable(tableRows))
					tableRows = nil
				}
			}
		}
	}

	if curPara.Len() > 0 {
		paragraphs = append(paragraphs, curPara.String())
	}

	var kept []string
	for _, p := range paragraphs {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
