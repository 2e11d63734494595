package convert

import (
	"encoding/json"
	"strconv"
	"strings"
)

type notebookHandler struct{}

func (notebookHandler) Name() string { return "notebook" }

func (notebookHandler) Accepts(d StreamDescriptor) bool {
	return d.MIMEType == "application/x-ipynb+json" || strings.ToLower(d.Ext) == "ipynb"
}

// jupyterSource unifies a notebook field that is either a single string
// or an array of line strings. Lines already carry their own trailing
// newline, so they are concatenated with no added separator.
type jupyterSource []string

func (s *jupyterSource) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = jupyterSource{single}
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*s = jupyterSource(lines)
	return nil
}

func (s jupyterSource) text() string {
	return strings.Join(s, "")
}

type jupyterOutput struct {
	Text jupyterSource          `json:"text"`
	Data map[string]jupyterSource `json:"data"`
}

func (o jupyterOutput) text() string {
	if len(o.Text) > 0 {
		return o.Text.text()
	}
	if v, ok := o.Data["text/plain"]; ok {
		return v.text()
	}
	return ""
}

type jupyterCell struct {
	CellType string          `json:"cell_type"`
	Source   jupyterSource   `json:"source"`
	Outputs  []jupyterOutput `json:"outputs"`
}

type jupyterNotebook struct {
	Cells    []jupyterCell `json:"cells"`
	Metadata struct {
		KernelSpec struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
	} `json:"metadata"`
}

// Convert emits markdown/raw cells as source verbatim plus a blank
// line; code cells emit a fenced block tagged with the kernel
// language, then each output's text (preferring output.text, falling
// back to data["text/plain"]) in a "**Output:**" labeled fenced block.
// Other cell types are ignored.
func (notebookHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	var nb jupyterNotebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return ConversionResult{}, conversionFailed("notebook", "invalid notebook JSON", err)
	}

	language := nb.Metadata.KernelSpec.Language
	if language == "" {
		language = "python"
	}

	var sb strings.Builder
	for _, cell := range nb.Cells {
		switch cell.CellType {
		case "markdown", "raw":
			sb.WriteString(cell.Source.text())
			sb.WriteString("\n\n")
		case "code":
			sb.WriteString("```")
			sb.WriteString(language)
			sb.WriteByte('\n')
			sb.WriteString(cell.Source.text())
			sb.WriteString("\n```\n\n")
			for _, out := range cell.Outputs {
				text := out.text()
				if text == "" {
					continue
				}
				sb.WriteString("**Output:**\n\n```\n")
				sb.WriteString(text)
				sb.WriteString("\n```\n\n")
			}
		}
	}

	result := newResult(sb.String())
	result = result.withMetadata("cell_count", strconv.Itoa(len(nb.Cells)))
	result = result.withMetadata("language", language)
	return result, nil
}
