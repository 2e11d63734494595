package convert

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/mdforge/kit"
)

// RegisterMCP registers the pipeline's tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerConvertTool(srv)
	p.registerConvertFileTool(srv)
	p.registerDetectTool(srv)
	p.registerHandlersTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- convert ---

type convertReq struct {
	Content  string `json:"content"`
	MIMEType string `json:"mime_type"`
	Ext      string `json:"ext"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

func (p *Pipeline) registerConvertTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdforge_convert",
		Description: "Convert raw document content (HTML, Office, PDF, email, archive, feed, notebook, text) to Markdown.",
		InputSchema: inputSchema(map[string]any{
			"content":   map[string]any{"type": "string", "description": "Raw document bytes"},
			"mime_type": map[string]any{"type": "string", "description": "Declared MIME type, if known"},
			"ext":       map[string]any{"type": "string", "description": "File extension, if known"},
			"filename":  map[string]any{"type": "string", "description": "Original filename, if known"},
			"url":       map[string]any{"type": "string", "description": "Source URL, if known"},
		}, []string{"content"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*convertReq)
		result, err := p.Convert([]byte(r.Content), StreamDescriptor{
			MIMEType: r.MIMEType,
			Ext:      r.Ext,
			Filename: r.Filename,
			URL:      r.URL,
		})
		if err != nil {
			return nil, err
		}
		return conversionResultToMap(result), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r convertReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- convert_file ---

type convertFileReq struct {
	Path string `json:"path"`
}

func (p *Pipeline) registerConvertFileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdforge_convert_file",
		Description: "Convert a document file on disk to Markdown, inferring format from its path.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to convert"},
		}, []string{"path"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*convertFileReq)
		result, err := p.ConvertFile(r.Path)
		if err != nil {
			return nil, err
		}
		return conversionResultToMap(result), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r convertFileReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- detect ---

type detectReq struct {
	Content  string `json:"content"`
	MIMEType string `json:"mime_type"`
	Ext      string `json:"ext"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

func (p *Pipeline) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdforge_detect",
		Description: "Run format detection on content and hints, without converting, returning the completed descriptor.",
		InputSchema: inputSchema(map[string]any{
			"content":   map[string]any{"type": "string", "description": "Raw document bytes"},
			"mime_type": map[string]any{"type": "string"},
			"ext":       map[string]any{"type": "string"},
			"filename":  map[string]any{"type": "string"},
			"url":       map[string]any{"type": "string"},
		}, []string{"content"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*detectReq)
		d := detect([]byte(r.Content), StreamDescriptor{
			MIMEType: r.MIMEType,
			Ext:      r.Ext,
			Filename: r.Filename,
			URL:      r.URL,
		})
		return map[string]any{
			"mime_type": d.MIMEType,
			"ext":       d.Ext,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r detectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- handlers ---

func (p *Pipeline) registerHandlersTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "mdforge_handlers",
		Description: "List the registered handlers in dispatch order.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		names := make([]string, len(p.handlers))
		for i, h := range p.handlers {
			names[i] = h.Name()
		}
		return map[string]any{"handlers": names}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func conversionResultToMap(r ConversionResult) map[string]any {
	return map[string]any{
		"body":     r.Body,
		"title":    r.Title,
		"metadata": r.Metadata,
	}
}
