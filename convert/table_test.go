package convert

import (
	"strings"
	"testing"
)

func TestToMarkdownTable(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want string
	}{
		{
			name: "empty",
			rows: nil,
			want: "",
		},
		{
			name: "simple",
			rows: [][]string{{"Name", "Age", "City"}, {"Alice", "30", "NYC"}, {"Bob", "25", "LA"}},
			want: "| Name | Age | City |\n| --- | --- | --- |\n| Alice | 30 | NYC |\n| Bob | 25 | LA |",
		},
		{
			name: "ragged rows padded",
			rows: [][]string{{"a", "b", "c"}, {"1"}},
			want: "| a | b | c |\n| --- | --- | --- |\n| 1 |  |  |",
		},
		{
			name: "escapes pipes",
			rows: [][]string{{"a|b"}, {"c"}},
			want: "| a\\|b |\n| --- |\n| c |",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toMarkdownTable(tt.rows)
			if got != tt.want {
				t.Errorf("toMarkdownTable() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestToMarkdownTableLineCount(t *testing.T) {
	rows := [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}}
	got := toMarkdownTable(rows)
	lines := strings.Split(got, "\n")
	if len(lines) != len(rows)+1 {
		t.Fatalf("got %d lines, want %d", len(lines), len(rows)+1)
	}
	for _, line := range lines {
		if n := strings.Count(line, "|"); n != 3 {
			t.Errorf("line %q has %d pipes, want 3", line, n)
		}
	}
}
