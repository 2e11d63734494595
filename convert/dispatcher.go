package convert

import (
	"fmt"
	"os"
	"path/filepath"
)

// Pipeline is the ordered handler registry: detection fills in a
// StreamDescriptor's gaps, then the first handler whose Accepts
// returns true runs. A Pipeline is immutable after construction and
// safe to share across goroutines provided every handler is itself
// stateless — true of every built-in handler.
type Pipeline struct {
	handlers []Handler
	cfg      Config
}

// New builds the default pipeline, registering handlers most-specific
// first: binary/structured formats first, then structured text, then
// URL-specific HTML, then generic HTML, then the plain-text catch-all.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	p := &Pipeline{cfg: cfg}

	p.handlers = []Handler{
		pdfHandler{},
		docxHandler{},
		odtHandler{},
		xlsxHandler{},
		pptxHandler{},
		epubHandler{cfg: cfg},
		msgHandler{},
		imageHandler{},
		zipHandler{},
		notebookHandler{},
		csvHandler{},
		feedHandler{},
		wikipediaHandler{cfg: cfg},
		htmlHandler{cfg: cfg},
		plainTextHandler{},
	}

	return p
}

// Register appends a handler, so it runs last among its peers and
// never masks a built-in handler registered before it.
func (p *Pipeline) Register(h Handler) {
	p.handlers = append(p.handlers, h)
}

// Convert runs detection, then invokes the first accepting handler.
func (p *Pipeline) Convert(data []byte, d StreamDescriptor) (ConversionResult, error) {
	d = detect(data, d)

	for _, h := range p.handlers {
		if !h.Accepts(d) {
			continue
		}
		return h.Convert(data, d)
	}

	return ConversionResult{}, ErrNoHandler
}

// ConvertFile reads path and populates filename/extension from its
// basename before delegating to Convert. Errors reading the file are
// wrapped with a "convert: stat <path>" or "convert: read <path>" prefix,
// and a file larger than MaxFileSize fails before it is read.
func (p *Pipeline) ConvertFile(path string) (ConversionResult, error) {
	data, err := readFileBounded(path, p.cfg.MaxFileSize)
	if err != nil {
		return ConversionResult{}, err
	}

	d := StreamDescriptor{
		Filename: filepath.Base(path),
		Ext:      extensionFromName(path),
	}
	return p.Convert(data, d)
}

// readFileBounded reads path, rejecting files larger than maxSize.
// Convert itself has no size limit; this is the one I/O-level guard
// the core applies on its own, since callers of Convert are expected
// to constrain input size externally.
func readFileBounded(path string, maxSize int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("convert: stat %s: %w", path, err)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("convert: %s exceeds max file size (%d > %d bytes)", path, info.Size(), maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("convert: read %s: %w", path, err)
	}
	return data, nil
}
