package convert

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

type epubHandler struct {
	cfg Config
}

func (epubHandler) Name() string { return "epub" }

func (epubHandler) Accepts(d StreamDescriptor) bool {
	if d.MIMEType == "application/epub+zip" {
		return true
	}
	return strings.ToLower(d.Ext) == "epub"
}

// Convert resolves the OPF via the container manifest, walks the
// spine (falling back to manifest order when the spine is empty), and
// concatenates each chapter's HTML→Markdown conversion separated by a
// horizontal rule.
func (h epubHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ConversionResult{}, conversionFailed("epub", "not a valid ZIP/EPUB package", err)
	}

	container, err := readZipEntry(zr, "META-INF/container.xml")
	if err != nil {
		return ConversionResult{}, conversionFailed("epub", "missing META-INF/container.xml", err)
	}
	opfPath, err := findOPFPath(container)
	if err != nil {
		return ConversionResult{}, conversionFailed("epub", "no rootfile found in container.xml", err)
	}

	opfData, err := readZipEntry(zr, opfPath)
	if err != nil {
		return ConversionResult{}, conversionFailed("epub", "missing OPF file", err)
	}
	hrefs, err := parseEpubSpine(opfData)
	if err != nil {
		return ConversionResult{}, conversionFailed("epub", "failed to parse OPF", err)
	}

	var sb strings.Builder
	var title string
	for i, href := range hrefs {
		path := resolveEpubPath(opfPath, href)
		chapterHTML, err := readZipEntry(zr, path)
		if err != nil {
			continue
		}

		if i == 0 {
			if doc, err := parseHTMLDoc(chapterHTML); err == nil {
				title = findHTMLTitle(doc)
			}
		}

		chapterMD := (htmlHandler{cfg: h.cfg}).renderMarkdown(string(chapterHTML))
		chapterMD = strings.TrimSpace(chapterMD)
		if chapterMD == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		sb.WriteString(chapterMD)
	}

	result := newResult(strings.TrimRight(sb.String(), "\n"))
	result = result.withMetadata("chapter_count", strconv.Itoa(len(hrefs)))
	if title != "" {
		result = result.withTitle(title)
	}
	return result, nil
}

func findOPFPath(containerXML []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(containerXML))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || localName(se.Name) != "rootfile" {
			continue
		}
		if path := attrVal(se, "full-path"); path != "" {
			return path, nil
		}
	}
	return "", errNoRootfile
}

var errNoRootfile = &zipEntryMissingError{name: "rootfile"}

type epubManifestItem struct {
	id, href string
}

// parseEpubSpine collects <item> entries whose media-type contains
// "html" or "xml" into a manifest keyed by id, collects <itemref>
// idref order from the spine, and maps idrefs to hrefs — falling back
// to manifest order when the spine is empty.
func parseEpubSpine(opfData []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(opfData))

	manifest := make(map[string]string)
	var manifestOrder []string
	var spineOrder []string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch localName(se.Name) {
		case "item":
			mediaType := attrVal(se, "media-type")
			if strings.Contains(mediaType, "html") || strings.Contains(mediaType, "xml") {
				id := attrVal(se, "id")
				manifest[id] = attrVal(se, "href")
				manifestOrder = append(manifestOrder, id)
			}
		case "itemref":
			if idref := attrVal(se, "idref"); idref != "" {
				spineOrder = append(spineOrder, idref)
			}
		}
	}

	var hrefs []string
	for _, idref := range spineOrder {
		if href, ok := manifest[idref]; ok {
			hrefs = append(hrefs, href)
		}
	}
	if len(hrefs) == 0 {
		for _, id := range manifestOrder {
			hrefs = append(hrefs, manifest[id])
		}
	}
	return hrefs, nil
}

// resolveEpubPath resolves a chapter href against the OPF's directory,
// or returns it unchanged if the OPF sits at the package root.
func resolveEpubPath(opfPath, href string) string {
	if idx := strings.LastIndex(opfPath, "/"); idx >= 0 {
		return opfPath[:idx] + "/" + href
	}
	return href
}
