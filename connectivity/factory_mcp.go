package connectivity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// mcpConfig is the per-route config parsed from the routes table JSON
// for MCP transport.
type mcpConfig struct {
	ToolName string `json:"tool_name"`
}

// mcpClientInfo identifies this router as an MCP client.
var mcpClientInfo = &mcp.Implementation{Name: "connectivity-router", Version: "0.1.0"}

// MCPFactory creates Handlers that dispatch calls as MCP tool invocations
// against a remote MCP server reachable over Streamable HTTP. The payload
// is unmarshalled as a JSON object of tool arguments; the endpoint is the
// server's HTTP URL (e.g. "https://10.0.0.5:8443/mcp").
//
// The route config JSON must include "tool_name" to specify which MCP tool
// to call. Example config:
//
//	{"tool_name": "mdforge_convert"}
//
// Register it with:
//
//	router.RegisterTransport("mcp", connectivity.MCPFactory())
func MCPFactory() TransportFactory {
	return func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		var cfg mcpConfig
		if len(config) > 0 {
			if err := json.Unmarshal(config, &cfg); err != nil {
				return nil, nil, fmt.Errorf("connectivity/mcp: parse config: %w", err)
			}
		}
		if cfg.ToolName == "" {
			return nil, nil, fmt.Errorf("connectivity/mcp: tool_name required in config")
		}

		client := mcp.NewClient(mcpClientInfo, nil)
		transport := mcp.NewStreamableClientTransport(endpoint, nil)

		session, err := client.Connect(context.Background(), transport, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("connectivity/mcp: connect to %s: %w", endpoint, err)
		}

		handler := func(ctx context.Context, payload []byte) ([]byte, error) {
			var args map[string]any
			if len(payload) > 0 {
				if err := json.Unmarshal(payload, &args); err != nil {
					return nil, fmt.Errorf("connectivity/mcp: unmarshal args: %w", err)
				}
			}

			result, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      cfg.ToolName,
				Arguments: args,
			})
			if err != nil {
				return nil, fmt.Errorf("connectivity/mcp: call %s: %w", cfg.ToolName, err)
			}
			if toolErr := result.GetError(); toolErr != nil {
				return nil, fmt.Errorf("connectivity/mcp: %s returned error: %w", cfg.ToolName, toolErr)
			}

			for _, c := range result.Content {
				if tc, ok := c.(*mcp.TextContent); ok {
					return []byte(tc.Text), nil
				}
			}
			return nil, nil
		}

		closeFn := func() {
			session.Close()
		}

		return handler, closeFn, nil
	}
}
