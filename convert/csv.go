package convert

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
)

type csvHandler struct{}

func (csvHandler) Name() string { return "csv" }

func (csvHandler) Accepts(d StreamDescriptor) bool {
	return d.MIMEType == "text/csv" || strings.ToLower(d.Ext) == "csv"
}

// Convert parses with a relaxed reader (no header assumption, flexible
// column counts) and emits the rows via the table formatter. Empty input
// is an empty body, not an error.
func (csvHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(rows) == 0 {
				return newResult(""), nil
			}
			break
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return newResult(""), nil
	}

	return newResult(toMarkdownTable(rows)), nil
}
