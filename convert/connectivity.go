package convert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/mdforge/connectivity"
)

// RegisterConnectivity registers the pipeline's services on a
// connectivity Router for inter-service RPC.
//
// Registered services:
//
//	mdforge_convert      — convert raw content to Markdown
//	mdforge_convert_file — convert a file on disk to Markdown
//	mdforge_detect       — run format detection only
//
// Every service is wrapped with logging and panic recovery; if
// cfg.Metrics is set, call duration and error counts are also recorded.
func (p *Pipeline) RegisterConnectivity(router *connectivity.Router) {
	mws := []connectivity.HandlerMiddleware{
		connectivity.Logging(p.cfg.Logger),
		connectivity.Recovery(p.cfg.Logger),
	}
	chain := connectivity.Chain(mws...)

	register := func(service string, h connectivity.Handler) {
		wrapped := chain(h)
		if p.cfg.Metrics != nil {
			wrapped = connectivity.WithObservability(p.cfg.Metrics, service, "local")(wrapped)
		}
		router.RegisterLocal(service, wrapped)
	}

	register("mdforge_convert", p.handleConvert)
	register("mdforge_convert_file", p.handleConvertFile)
	register("mdforge_detect", p.handleDetect)
}

func (p *Pipeline) handleConvert(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Content  string `json:"content"`
		MIMEType string `json:"mime_type"`
		Ext      string `json:"ext"`
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	result, err := p.Convert([]byte(req.Content), StreamDescriptor{
		MIMEType: req.MIMEType,
		Ext:      req.Ext,
		Filename: req.Filename,
		URL:      req.URL,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(conversionResultToMap(result))
}

func (p *Pipeline) handleConvertFile(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	result, err := p.ConvertFile(req.Path)
	if err != nil {
		return nil, err
	}
	return json.Marshal(conversionResultToMap(result))
}

func (p *Pipeline) handleDetect(_ context.Context, payload []byte) ([]byte, error) {
	var req struct {
		Content  string `json:"content"`
		MIMEType string `json:"mime_type"`
		Ext      string `json:"ext"`
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	d := detect([]byte(req.Content), StreamDescriptor{
		MIMEType: req.MIMEType,
		Ext:      req.Ext,
		Filename: req.Filename,
		URL:      req.URL,
	})
	return json.Marshal(map[string]any{"mime_type": d.MIMEType, "ext": d.Ext})
}
