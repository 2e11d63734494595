package convert

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildXLSXFixture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Sheet1" sheetId="1" r:id="rId1"/></sheets>
</workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="worksheet" Target="worksheets/sheet1.xml"/>
</Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><si><t>Name</t></si><si><t>Age</t></si><si><t>Alice</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>30</v></c></row>
</sheetData>
</worksheet>`,
	}

	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

func TestXLSXHandler(t *testing.T) {
	data := buildXLSXFixture(t)
	h := xlsxHandler{}
	result, err := h.Convert(data, StreamDescriptor{Ext: "xlsx"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "## Sheet1") {
		t.Errorf("expected sheet heading, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "| Name | Age |") {
		t.Errorf("expected header row, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "| Alice | 30 |") {
		t.Errorf("expected data row, got:\n%s", result.Body)
	}
	if result.Metadata["sheet_count"] != "1" {
		t.Errorf("sheet_count = %q, want 1", result.Metadata["sheet_count"])
	}
}

func TestODSHandler(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("content.xml")
	w.Write([]byte(`<?xml version="1.0"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
<office:body><office:spreadsheet>
<table:table table:name="Sheet1">
<table:table-row><table:table-cell><text:p>Name</text:p></table:table-cell><table:table-cell><text:p>Age</text:p></table:table-cell></table:table-row>
<table:table-row><table:table-cell><text:p>Bob</text:p></table:table-cell><table:table-cell><text:p>25</text:p></table:table-cell></table:table-row>
</table:table>
</office:spreadsheet></office:body>
</office:document-content>`))
	zw.Close()

	h := xlsxHandler{}
	result, err := h.Convert(buf.Bytes(), StreamDescriptor{Ext: "ods"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "## Sheet1") {
		t.Errorf("expected sheet heading, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "| Bob | 25 |") {
		t.Errorf("expected data row, got:\n%s", result.Body)
	}
}

func TestXLSXHandlerAccepts(t *testing.T) {
	h := xlsxHandler{}
	if !h.Accepts(StreamDescriptor{MIMEType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}) {
		t.Error("expected to accept XLSX MIME type")
	}
	if !h.Accepts(StreamDescriptor{Ext: "ods"}) {
		t.Error("expected to accept .ods")
	}
}
