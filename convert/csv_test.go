package convert

import (
	"strings"
	"testing"
)

func TestCSVHandler(t *testing.T) {
	h := csvHandler{}
	input := "Name,Age,City\nAlice,30,NYC\nBob,25,LA\n"
	result, err := h.Convert([]byte(input), StreamDescriptor{Ext: "csv"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	for _, want := range []string{"| Name | Age | City |", "| Alice | 30 | NYC |", "| Bob | 25 | LA |"} {
		if !strings.Contains(result.Body, want) {
			t.Errorf("Body missing %q:\n%s", want, result.Body)
		}
	}
}

func TestCSVHandlerEmpty(t *testing.T) {
	h := csvHandler{}
	result, err := h.Convert([]byte(""), StreamDescriptor{Ext: "csv"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if result.Body != "" {
		t.Errorf("Body = %q, want empty", result.Body)
	}
}

func TestCSVHandlerRagged(t *testing.T) {
	h := csvHandler{}
	input := "a,b,c\n1,2\n"
	result, err := h.Convert([]byte(input), StreamDescriptor{Ext: "csv"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "| 1 | 2 |  |") {
		t.Errorf("expected padded ragged row, got:\n%s", result.Body)
	}
}

func TestCSVHandlerAccepts(t *testing.T) {
	h := csvHandler{}
	if !h.Accepts(StreamDescriptor{Ext: "csv"}) {
		t.Error("expected to accept .csv")
	}
	if h.Accepts(StreamDescriptor{Ext: "tsv"}) {
		t.Error("expected to reject .tsv")
	}
}
