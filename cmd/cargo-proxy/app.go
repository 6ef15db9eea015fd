package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"cargo-proxy/internal/cargo"
	"cargo-proxy/internal/config"
	"cargo-proxy/internal/dirty"
	"cargo-proxy/internal/mcpserver"
	"cargo-proxy/internal/verify"
	"cargo-proxy/internal/workdir"
)

// app holds the process-wide state shared by the proxy and the MCP tools.
type app struct {
	registry *workdir.Registry
	tracker  *dirty.Tracker
	runner   *cargo.Runner
	observer *verify.Observer
	trigger  *verify.Trigger
	mcp      *mcp.Server
}

func newApp(cfg config.Config, cwd string, log *zap.Logger) *app {
	a := &app{
		registry: workdir.New(cwd),
		tracker:  &dirty.Tracker{},
		runner:   cargo.NewRunner(cfg.Tool.Binary, cfg.Tool.Timeout),
	}
	a.observer = verify.NewObserver(a.tracker, cfg.Tool.SourceExtensions, log.Named("verify"))
	a.trigger = verify.NewTrigger(a.runner, a.tracker, a.registry, verify.Options{
		Subcommand:   cfg.Tool.CheckSubcommand,
		Report:       cfg.Verify.Report,
		ReportDir:    cfg.Verify.ReportDir,
		NotifyClient: cfg.Verify.NotifyClient,
	}, log.Named("verify"))
	a.mcp = mcpserver.New(mcpserver.Options{
		Name:    cfg.MCP.Name,
		Version: version,
	}, a.runner, a.registry, log.Named("mcp"))
	return a
}
