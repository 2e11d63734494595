package connectivity

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/mdforge/kit"
)

// RegisterMCP registers route administration and introspection tools on
// an MCP server, so an LLM (or an operator) can list, inspect, and edit
// the routes table and see what the running router actually has wired up.
//
// admin may be nil if only introspection is needed (read-only deployments);
// the mutating tools then return an error instead of panicking.
func RegisterMCP(srv *mcp.Server, admin *Admin, router *Router) {
	registerRoutesListTool(srv, admin)
	registerRouteGetTool(srv, admin)
	registerRouteUpsertTool(srv, admin)
	registerRouteDeleteTool(srv, admin)
	registerRouteSetStrategyTool(srv, admin)
	registerServicesListTool(srv, router)
	registerServiceInspectTool(srv, router)
}

func connInputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func requireAdmin(admin *Admin) error {
	if admin == nil {
		return &ErrServiceNotFound{Service: "routes admin (read-only router)"}
	}
	return nil
}

// --- routes_list ---

func registerRoutesListTool(srv *mcp.Server, admin *Admin) {
	tool := &mcp.Tool{
		Name:        "mdforge_routes_list",
		Description: "List every row in the routes table: service name, strategy, endpoint, config.",
		InputSchema: connInputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		if err := requireAdmin(admin); err != nil {
			return nil, err
		}
		rows, err := admin.ListRoutes(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"routes": rows}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- routes_get ---

type routeGetReq struct {
	ServiceName string `json:"service_name"`
}

func registerRouteGetTool(srv *mcp.Server, admin *Admin) {
	tool := &mcp.Tool{
		Name:        "mdforge_routes_get",
		Description: "Fetch a single routes table row by service name.",
		InputSchema: connInputSchema(map[string]any{
			"service_name": map[string]any{"type": "string"},
		}, []string{"service_name"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := requireAdmin(admin); err != nil {
			return nil, err
		}
		r := req.(*routeGetReq)
		row, err := admin.GetRoute(ctx, r.ServiceName)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return map[string]any{"found": false}, nil
		}
		return map[string]any{"found": true, "route": row}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r routeGetReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- routes_upsert ---

type routeUpsertReq struct {
	ServiceName string          `json:"service_name"`
	Strategy    string          `json:"strategy"`
	Endpoint    string          `json:"endpoint"`
	Config      json.RawMessage `json:"config"`
}

func registerRouteUpsertTool(srv *mcp.Server, admin *Admin) {
	tool := &mcp.Tool{
		Name:        "mdforge_routes_upsert",
		Description: "Create or update a routes table row. The router's Watch loop picks up the change automatically.",
		InputSchema: connInputSchema(map[string]any{
			"service_name": map[string]any{"type": "string"},
			"strategy":     map[string]any{"type": "string", "description": "local, http, mcp, quic, dbsync, or noop"},
			"endpoint":     map[string]any{"type": "string"},
			"config":       map[string]any{"type": "object", "description": "per-route JSON config"},
		}, []string{"service_name", "strategy"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := requireAdmin(admin); err != nil {
			return nil, err
		}
		r := req.(*routeUpsertReq)
		if err := admin.UpsertRoute(ctx, r.ServiceName, r.Strategy, r.Endpoint, r.Config); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r routeUpsertReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- routes_delete ---

type routeDeleteReq struct {
	ServiceName string `json:"service_name"`
}

func registerRouteDeleteTool(srv *mcp.Server, admin *Admin) {
	tool := &mcp.Tool{
		Name:        "mdforge_routes_delete",
		Description: "Remove a row from the routes table.",
		InputSchema: connInputSchema(map[string]any{
			"service_name": map[string]any{"type": "string"},
		}, []string{"service_name"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := requireAdmin(admin); err != nil {
			return nil, err
		}
		r := req.(*routeDeleteReq)
		if err := admin.DeleteRoute(ctx, r.ServiceName); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r routeDeleteReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- routes_set_strategy ---

type routeSetStrategyReq struct {
	ServiceName string `json:"service_name"`
	Strategy    string `json:"strategy"`
}

func registerRouteSetStrategyTool(srv *mcp.Server, admin *Admin) {
	tool := &mcp.Tool{
		Name:        "mdforge_routes_set_strategy",
		Description: "Flip a route's strategy (e.g. to 'noop' to disable a service with zero downtime).",
		InputSchema: connInputSchema(map[string]any{
			"service_name": map[string]any{"type": "string"},
			"strategy":     map[string]any{"type": "string"},
		}, []string{"service_name", "strategy"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		if err := requireAdmin(admin); err != nil {
			return nil, err
		}
		r := req.(*routeSetStrategyReq)
		if err := admin.SetStrategy(ctx, r.ServiceName, r.Strategy); err != nil {
			return nil, err
		}
		return map[string]any{"ok": true}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r routeSetStrategyReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- services_list ---

func registerServicesListTool(srv *mcp.Server, router *Router) {
	tool := &mcp.Tool{
		Name:        "mdforge_services_list",
		Description: "List every service the router currently knows about, local or remote.",
		InputSchema: connInputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		var services []ServiceInfo
		for info := range router.ListServices() {
			services = append(services, info)
		}
		return map[string]any{"services": services}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- service_inspect ---

type serviceInspectReq struct {
	Service string `json:"service"`
}

func registerServiceInspectTool(srv *mcp.Server, router *Router) {
	tool := &mcp.Tool{
		Name:        "mdforge_service_inspect",
		Description: "Return routing details for a single service (strategy, endpoint, whether a local handler is registered).",
		InputSchema: connInputSchema(map[string]any{
			"service": map[string]any{"type": "string"},
		}, []string{"service"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*serviceInspectReq)
		info, ok := router.Inspect(r.Service)
		if !ok {
			return map[string]any{"found": false}, nil
		}
		return map[string]any{"found": true, "service": info}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r serviceInspectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
