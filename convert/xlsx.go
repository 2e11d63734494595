package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// xlsxHandler reads spreadsheet workbooks by hand-rolling the two
// ZIP-based formats (XLSX and ODS) with this package's established
// archive/zip + encoding/xml idiom. Legacy binary XLS (pre-2007 OLE
// Compound File format, like .msg) is detected and reported as
// unsupported rather than silently misparsed.
type xlsxHandler struct{}

func (xlsxHandler) Name() string { return "xlsx" }

func (xlsxHandler) Accepts(d StreamDescriptor) bool {
	switch d.MIMEType {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
		"application/vnd.oasis.opendocument.spreadsheet":
		return true
	}
	switch strings.ToLower(d.Ext) {
	case "xlsx", "xls", "xlsb", "ods":
		return true
	}
	return false
}

func (xlsxHandler) Convert(data []byte, d StreamDescriptor) (ConversionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ConversionResult{}, conversionFailed("xlsx", "legacy binary spreadsheet formats are not supported; only ZIP-packaged XLSX and ODS are", err)
	}

	var sheets []string
	var rows [][][]string
	if hasZipEntry(zr, "xl/workbook.xml") {
		sheets, rows, err = readXLSXWorkbook(zr)
	} else if hasZipEntry(zr, "content.xml") {
		sheets, rows, err = readODSWorkbook(zr)
	} else {
		return ConversionResult{}, conversionFailed("xlsx", "not a recognizable XLSX or ODS package", nil)
	}
	if err != nil {
		return ConversionResult{}, conversionFailed("xlsx", "failed to read workbook", err)
	}

	var sb strings.Builder
	for i, name := range sheets {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("## ")
		sb.WriteString(name)
		sb.WriteString("\n\n")
		if len(rows[i]) == 0 {
			sb.WriteString("*Empty sheet*\n")
		} else {
			sb.WriteString(toMarkdownTable(rows[i]))
		}
	}

	result := newResult(strings.TrimRight(sb.String(), "\n"))
	return result.withMetadata("sheet_count", strconv.Itoa(len(sheets))), nil
}

func hasZipEntry(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// --- XLSX (OOXML spreadsheet) ---------------------------------------------

type xlsxSheetRef struct {
	name string
	rID  string
}

func readXLSXWorkbook(zr *zip.Reader) ([]string, [][][]string, error) {
	workbookXML, err := readZipEntry(zr, "xl/workbook.xml")
	if err != nil {
		return nil, nil, err
	}
	sheetRefs, err := parseXLSXSheetRefs(workbookXML)
	if err != nil {
		return nil, nil, err
	}

	relsXML, err := readZipEntry(zr, "xl/_rels/workbook.xml.rels")
	var relTargets map[string]string
	if err == nil {
		relTargets, err = parseXLSXRelationships(relsXML)
		if err != nil {
			return nil, nil, err
		}
	}

	var sharedStrings []string
	if ssXML, err := readZipEntry(zr, "xl/sharedStrings.xml"); err == nil {
		sharedStrings, _ = parseXLSXSharedStrings(ssXML)
	}

	var names []string
	var allRows [][][]string
	for _, ref := range sheetRefs {
		target, ok := relTargets[ref.rID]
		if !ok {
			continue
		}
		path := resolveXLSXRelTarget(target)
		sheetXML, err := readZipEntry(zr, path)
		if err != nil {
			continue
		}
		rows, err := parseXLSXSheet(sheetXML, sharedStrings)
		if err != nil {
			continue
		}
		names = append(names, ref.name)
		allRows = append(allRows, rows)
	}
	return names, allRows, nil
}

// resolveXLSXRelTarget maps a relationship Target (relative to xl/, or
// occasionally absolute from the package root) to its ZIP entry path.
func resolveXLSXRelTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return "xl/" + target
}

func parseXLSXSheetRefs(data []byte) ([]xlsxSheetRef, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var refs []xlsxSheetRef
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || localName(se.Name) != "sheet" {
			continue
		}
		ref := xlsxSheetRef{name: attrVal(se, "name")}
		for _, a := range se.Attr {
			if localName(a.Name) == "id" {
				ref.rID = a.Value
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseXLSXRelationships(data []byte) (map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	targets := make(map[string]string)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || localName(se.Name) != "Relationship" {
			continue
		}
		var id, target string
		for _, a := range se.Attr {
			switch localName(a.Name) {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		targets[id] = target
	}
	return targets, nil
}

func parseXLSXSharedStrings(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var strs []string
	var cur strings.Builder
	var inText bool
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "si":
				cur.Reset()
			case "t":
				inText = true
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			switch localName(t.Name) {
			case "t":
				inText = false
			case "si":
				strs = append(strs, cur.String())
			}
		}
	}
	return strs, nil
}

var colLetterRe = regexp.MustCompile(`^([A-Z]+)(\d+)$`)

func colLetterToIndex(col string) int {
	idx := 0
	for _, c := range col {
		idx = idx*26 + int(c-'A'+1)
	}
	return idx - 1
}

func parseXLSXSheet(data []byte, sharedStrings []string) ([][]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var rows [][]string
	var curRow map[int]string
	var maxCol int
	var cellType string
	var cellCol int
	var valueText strings.Builder
	var inValue bool

	flushRow := func() {
		if curRow == nil {
			return
		}
		row := make([]string, maxCol+1)
		for i, v := range curRow {
			row[i] = v
		}
		rows = append(rows, row)
		curRow = nil
		maxCol = 0
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "row":
				flushRow()
				curRow = make(map[int]string)
			case "c":
				cellType = attrVal(t, "t")
				ref := attrVal(t, "r")
				cellCol = 0
				if m := colLetterRe.FindStringSubmatch(ref); m != nil {
					cellCol = colLetterToIndex(m[1])
				}
			case "v", "t", "is":
				inValue = true
				valueText.Reset()
			}
		case xml.CharData:
			if inValue {
				valueText.Write(t)
			}
		case xml.EndElement:
			switch localName(t.Name) {
			case "v", "t":
				inValue = false
			case "is":
				inValue = false
			case "c":
				if curRow != nil {
					curRow[cellCol] = xlsxCellValue(cellType, valueText.String(), sharedStrings)
					if cellCol > maxCol {
						maxCol = cellCol
					}
				}
			case "row":
				flushRow()
			}
		}
	}
	flushRow()

	return rows, nil
}

// xlsxCellValue resolves a cell's raw <v> text against its declared
// type: "s" (shared string index), "str"/"inlineStr" (literal string),
// "b" (boolean), "e" (error code), else numeric as-is — integer-valued
// floats render without a decimal point, matching calamine's behavior.
func xlsxCellValue(cellType, raw string, sharedStrings []string) string {
	switch cellType {
	case "s":
		if idx, err := strconv.Atoi(raw); err == nil && idx >= 0 && idx < len(sharedStrings) {
			return sharedStrings[idx]
		}
		return ""
	case "str", "inlineStr":
		return raw
	case "b":
		if raw == "1" {
			return "true"
		}
		return "false"
	case "e":
		return "#" + raw
	default:
		if raw == "" {
			return ""
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			if f == float64(int64(f)) {
				return strconv.FormatInt(int64(f), 10)
			}
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return raw
	}
}

// --- ODS (OpenDocument spreadsheet) ----------------------------------------

func readODSWorkbook(zr *zip.Reader) ([]string, [][][]string, error) {
	contentXML, err := readZipEntry(zr, "content.xml")
	if err != nil {
		return nil, nil, err
	}
	return parseODSSheets(contentXML)
}

func parseODSSheets(data []byte) ([]string, [][][]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var names []string
	var allRows [][][]string
	var curRows [][]string
	var curRow []string
	var curCell strings.Builder
	var inText bool
	var repeatCols int

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch localName(t.Name) {
			case "table":
				names = append(names, attrVal(t, "name"))
				curRows = nil
			case "table-row":
				curRow = nil
			case "table-cell":
				curCell.Reset()
				repeatCols = 1
				if n, convErr := strconv.Atoi(attrVal(t, "number-columns-repeated")); convErr == nil && n > 0 {
					repeatCols = n
				}
			case "p":
				inText = true
			}
		case xml.CharData:
			if inText {
				curCell.Write(t)
			}
		case xml.EndElement:
			switch localName(t.Name) {
			case "p":
				inText = false
			case "table-cell":
				for i := 0; i < repeatCols; i++ {
					curRow = append(curRow, curCell.String())
				}
			case "table-row":
				curRows = append(curRows, trimTrailingEmptyCells(curRow))
			case "table":
				allRows = append(allRows, trimTrailingEmptyRows(curRows))
			}
		}
	}

	return names, allRows, nil
}

func trimTrailingEmptyCells(row []string) []string {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}

func trimTrailingEmptyRows(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && len(rows[end-1]) == 0 {
		end--
	}
	return rows[:end]
}
