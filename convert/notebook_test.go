package convert

import (
	"strings"
	"testing"
)

func TestNotebookHandler(t *testing.T) {
	h := notebookHandler{}
	input := `{
		"cells": [
			{"cell_type": "markdown", "source": ["# Hello"]},
			{"cell_type": "code", "source": "print('hello')", "outputs": [{"text": ["hello\n"]}]}
		],
		"metadata": {"kernelspec": {"language": "python"}}
	}`
	result, err := h.Convert([]byte(input), StreamDescriptor{Ext: "ipynb"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	for _, want := range []string{"# Hello", "```python", "print('hello')", "**Output:**", "hello"} {
		if !strings.Contains(result.Body, want) {
			t.Errorf("Body missing %q:\n%s", want, result.Body)
		}
	}
	if result.Metadata["cell_count"] != "2" {
		t.Errorf("cell_count = %q, want 2", result.Metadata["cell_count"])
	}
	if result.Metadata["language"] != "python" {
		t.Errorf("language = %q, want python", result.Metadata["language"])
	}
}

func TestNotebookHandlerDefaultLanguage(t *testing.T) {
	h := notebookHandler{}
	result, err := h.Convert([]byte(`{"cells": []}`), StreamDescriptor{})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if result.Metadata["language"] != "python" {
		t.Errorf("language = %q, want python", result.Metadata["language"])
	}
}

func TestNotebookHandlerOutputDataFallback(t *testing.T) {
	h := notebookHandler{}
	input := `{"cells": [{"cell_type": "code", "source": "1+1", "outputs": [{"data": {"text/plain": "2"}}]}]}`
	result, err := h.Convert([]byte(input), StreamDescriptor{})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "2") {
		t.Errorf("expected output via data[text/plain], got:\n%s", result.Body)
	}
}
