package connectivity_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/mdforge/connectivity"
)

var testMCPImpl = &mcp.Implementation{Name: "connectivity-test", Version: "0.1.0"}

func mcpSession(t *testing.T, admin *connectivity.Admin, router *connectivity.Router) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	connectivity.RegisterMCP(srv, admin, router)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func setupMCPTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := connectivity.Init(db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestMCPRoutesUpsertListGetDelete(t *testing.T) {
	db := setupMCPTestDB(t)
	admin := connectivity.NewAdmin(db)
	router := connectivity.New()
	sess := mcpSession(t, admin, router)

	mcpCallTool(t, sess, "mdforge_routes_upsert", map[string]any{
		"service_name": "billing",
		"strategy":     "http",
		"endpoint":     "http://10.0.0.1:8080",
	})

	text := mcpCallTool(t, sess, "mdforge_routes_list", map[string]any{})
	var listResp struct {
		Routes []connectivity.RouteRow `json:"routes"`
	}
	if err := json.Unmarshal([]byte(text), &listResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(listResp.Routes) != 1 || listResp.Routes[0].ServiceName != "billing" {
		t.Fatalf("unexpected routes: %+v", listResp.Routes)
	}

	text = mcpCallTool(t, sess, "mdforge_routes_get", map[string]any{"service_name": "billing"})
	var getResp struct {
		Found bool                  `json:"found"`
		Route connectivity.RouteRow `json:"route"`
	}
	if err := json.Unmarshal([]byte(text), &getResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !getResp.Found || getResp.Route.Strategy != "http" {
		t.Fatalf("unexpected get result: %+v", getResp)
	}

	mcpCallTool(t, sess, "mdforge_routes_set_strategy", map[string]any{
		"service_name": "billing",
		"strategy":     "noop",
	})
	text = mcpCallTool(t, sess, "mdforge_routes_get", map[string]any{"service_name": "billing"})
	json.Unmarshal([]byte(text), &getResp)
	if getResp.Route.Strategy != "noop" {
		t.Fatalf("expected strategy noop after set_strategy, got %q", getResp.Route.Strategy)
	}

	mcpCallTool(t, sess, "mdforge_routes_delete", map[string]any{"service_name": "billing"})
	text = mcpCallTool(t, sess, "mdforge_routes_get", map[string]any{"service_name": "billing"})
	json.Unmarshal([]byte(text), &getResp)
	if getResp.Found {
		t.Fatal("expected route to be gone after delete")
	}
}

func TestMCPServicesListAndInspect(t *testing.T) {
	db := setupMCPTestDB(t)
	admin := connectivity.NewAdmin(db)
	router := connectivity.New()
	router.RegisterLocal("convert", func(ctx context.Context, payload []byte) ([]byte, error) {
		return payload, nil
	})
	sess := mcpSession(t, admin, router)

	text := mcpCallTool(t, sess, "mdforge_services_list", map[string]any{})
	var listResp struct {
		Services []connectivity.ServiceInfo `json:"services"`
	}
	if err := json.Unmarshal([]byte(text), &listResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(listResp.Services) != 1 || listResp.Services[0].Name != "convert" {
		t.Fatalf("unexpected services: %+v", listResp.Services)
	}

	text = mcpCallTool(t, sess, "mdforge_service_inspect", map[string]any{"service": "convert"})
	var inspectResp struct {
		Found   bool                     `json:"found"`
		Service connectivity.ServiceInfo `json:"service"`
	}
	if err := json.Unmarshal([]byte(text), &inspectResp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !inspectResp.Found || !inspectResp.Service.HasLocal {
		t.Fatalf("unexpected inspect result: %+v", inspectResp)
	}
}
