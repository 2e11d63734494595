// Command mdforge runs the document-to-Markdown conversion pipeline as an
// MCP server over stdio.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/mdforge/connectivity"
	"github.com/hazyhaar/mdforge/convert"
	"github.com/hazyhaar/mdforge/observability"
)

func main() {
	logLevel := env("LOG_LEVEL", "info")

	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := convert.Config{Logger: logger, RemoveNoiseWithBluemonday: true}
	if configPath := env("CONFIG_FILE", ""); configPath != "" {
		loaded, err := convert.LoadConfigFile(configPath)
		if err != nil {
			slog.Error("load config", "error", err)
			os.Exit(1)
		}
		loaded.Logger = logger
		cfg = *loaded
	}

	obsPath := env("OBSERVABILITY_DB", "")
	if obsPath != "" {
		db, err := sql.Open("sqlite", obsPath)
		if err != nil {
			slog.Error("observability db", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := observability.Init(db); err != nil {
			slog.Error("observability init", "error", err)
			os.Exit(1)
		}
		mm := observability.NewMetricsManager(db, 500, 5*time.Second)
		defer mm.Close()
		cfg.Metrics = mm

		hb := observability.NewHeartbeatWriter(db, "mdforge", 15*time.Second)
		hb.Start(ctx)
		defer hb.Stop()
	}

	pipeline := convert.New(cfg)

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "mdforge",
		Version: "0.1.0",
	}, nil)
	pipeline.RegisterMCP(srv)

	// Optional connectivity router: lets "mdforge_convert" and friends be
	// called as local services too, and hot-swapped to a remote instance
	// later by flipping a row in the routes table instead of redeploying.
	if routesPath := env("ROUTES_DB", ""); routesPath != "" {
		routesDB, err := connectivity.OpenDB(routesPath)
		if err != nil {
			slog.Error("routes db", "error", err)
			os.Exit(1)
		}
		defer routesDB.Close()
		if err := connectivity.Init(routesDB); err != nil {
			slog.Error("routes init", "error", err)
			os.Exit(1)
		}

		router := connectivity.New(connectivity.WithLogger(logger))
		defer router.Close()
		router.RegisterTransport("http", connectivity.HTTPFactory())
		router.RegisterTransport("mcp", connectivity.MCPFactory())
		pipeline.RegisterConnectivity(router)

		if err := router.Reload(ctx, routesDB); err != nil {
			slog.Error("routes reload", "error", err)
			os.Exit(1)
		}
		go router.Watch(ctx, routesDB, 200*time.Millisecond)

		// Route administration and introspection, exposed as MCP tools on
		// the same server as the conversion tools.
		admin := connectivity.NewAdmin(routesDB)
		connectivity.RegisterMCP(srv, admin, router)
	}

	slog.Info("mdforge starting", "transport", "stdio")
	if err := srv.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		slog.Error("mcp server", "error", err)
		os.Exit(1)
	}
	slog.Info("mdforge stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
