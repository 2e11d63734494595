package convert

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildOdtFixture(t *testing.T, contentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("content.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(contentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

const odtNamespacePreamble = `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0">`

func TestOdtHandlerHeadingAndParagraph(t *testing.T) {
	content := odtNamespacePreamble + `
<office:body><office:text>
<text:h text:outline-level="1">Chapter One</text:h>
<text:p>Some body text.</text:p>
</office:text></office:body>
</office:document-content>`

	data := buildOdtFixture(t, content)
	h := odtHandler{}
	result, err := h.Convert(data, StreamDescriptor{Ext: "odt"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "# Chapter One") {
		t.Errorf("expected heading, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "Some body text.") {
		t.Errorf("expected paragraph text, got:\n%s", result.Body)
	}
}

func TestOdtHandlerTable(t *testing.T) {
	content := odtNamespacePreamble + `
<office:body><office:text>
<table:table>
<table:table-row><table:table-cell><text:p>Name</text:p></table:table-cell><table:table-cell><text:p>Age</text:p></table:table-cell></table:table-row>
<table:table-row><table:table-cell><text:p>Alice</text:p></table:table-cell><table:table-cell><text:p>30</text:p></table:table-cell></table:table-row>
</table:table>
</office:text></office:body>
</office:document-content>`

	data := buildOdtFixture(t, content)
	h := odtHandler{}
	result, err := h.Convert(data, StreamDescriptor{Ext: "odt"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "| Name | Age |") {
		t.Errorf("expected table header, got:\n%s", result.Body)
	}
	if !strings.Contains(result.Body, "| Alice | 30 |") {
		t.Errorf("expected table row, got:\n%s", result.Body)
	}
}

func TestOdtHandlerAccepts(t *testing.T) {
	h := odtHandler{}
	if !h.Accepts(StreamDescriptor{MIMEType: "application/vnd.oasis.opendocument.text"}) {
		t.Error("expected to accept ODT MIME type")
	}
	if !h.Accepts(StreamDescriptor{Ext: "odt"}) {
		t.Error("expected to accept .odt")
	}
}
