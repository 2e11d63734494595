package convert

import "strings"

// toMarkdownTable renders a possibly ragged 2-D grid of strings as a
// pipe-delimited Markdown table. Row 0 is the header. Width is the
// longest row; short rows are padded with empty cells. Every literal
// `|` inside a cell is escaped as `\|`. Empty input yields "".
func toMarkdownTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return ""
	}

	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteByte('|')
		for i := 0; i < cols; i++ {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteByte(' ')
			sb.WriteString(escapeTableCell(cell))
			sb.WriteString(" |")
		}
		sb.WriteByte('\n')
	}

	writeRow(rows[0])

	sb.WriteByte('|')
	for i := 0; i < cols; i++ {
		sb.WriteString(" --- |")
	}
	sb.WriteByte('\n')

	for _, row := range rows[1:] {
		writeRow(row)
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

func escapeTableCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
