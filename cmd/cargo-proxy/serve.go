package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cargo-proxy/internal/acp"
	"cargo-proxy/internal/config"
	"cargo-proxy/internal/mcpserver"
	"cargo-proxy/internal/proxy"
)

var serveCwd string

var serveCmd = &cobra.Command{
	Use:   "serve [flags] -- <agent command> [args...]",
	Short: "Run an agent behind the proxy on stdin/stdout",
	Example: `  cargo-proxy serve -- claude-code-acp
  cargo-proxy serve --cwd ./my-crate -- gemini --experimental-acp`,
	Args: cobra.MinimumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveCwd, "cwd", "", "initial directory for cargo commands")
	serveCmd.Flags().SetInterspersed(false)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(cfg, serveCwd, logger)

	entry, shutdown, err := startMCP(a)
	if err != nil {
		return err
	}
	defer shutdown()

	agent := exec.Command(args[0], args[1:]...)
	agent.Stderr = os.Stderr
	agentIn, err := agent.StdinPipe()
	if err != nil {
		return err
	}
	agentOut, err := agent.StdoutPipe()
	if err != nil {
		return err
	}
	if err := agent.Start(); err != nil {
		return fmt.Errorf("starting agent: %w", err)
	}
	logger.Info("agent started", zap.String("command", args[0]), zap.Int("pid", agent.Process.Pid))

	var observer proxy.Observer
	var trigger proxy.Trigger
	if cfg.Verify.Enabled {
		observer, trigger = a.observer, a.trigger
	}
	p := proxy.New(observer, trigger, proxy.Options{MCPServer: entry}, logger.Named("proxy"))

	runErr := p.Run(ctx,
		proxy.Stream{Reader: stdinReader(), Writer: os.Stdout},
		proxy.Stream{Reader: agentOut, Writer: agentIn})
	if ctx.Err() != nil {
		_ = agent.Process.Signal(os.Interrupt)
	}
	waitErr := agent.Wait()
	if runErr != nil {
		return runErr
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) && exitErr.ExitCode() > 0 {
		return exitCodeError{code: exitErr.ExitCode()}
	}
	return nil
}

// startMCP starts the configured MCP transport and returns the entry the
// proxy adds to each new session.
func startMCP(a *app) (any, func(), error) {
	switch cfg.MCP.Transport {
	case config.TransportHTTP:
		srv, err := mcpserver.ListenHTTP(cfg.MCP.Listen, a.mcp)
		if err != nil {
			return nil, nil, err
		}
		go func() {
			if err := srv.Serve(); err != nil {
				logger.Error("mcp http server stopped", zap.Error(err))
			}
		}()
		logger.Info("mcp server listening", zap.String("url", srv.URL()))
		shutdown := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}
		return acp.MCPServerHTTP{
			Type:    "http",
			Name:    cfg.MCP.Name,
			URL:     srv.URL(),
			Headers: []acp.HTTPHeader{},
		}, shutdown, nil

	case config.TransportStdio:
		exe, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("locating own executable: %w", err)
		}
		mcpArgs := []string{"mcp", "--config", configPath}
		if serveCwd != "" {
			mcpArgs = append(mcpArgs, "--cwd", serveCwd)
		}
		return acp.MCPServerStdio{
			Name:    cfg.MCP.Name,
			Command: exe,
			Args:    mcpArgs,
			Env:     []acp.EnvVariable{},
		}, func() {}, nil
	}
	return nil, func() {}, nil
}

// stdinReader wraps stdin in a pipe so the proxy can close it to unblock a
// pending read on shutdown.
func stdinReader() io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_, err := io.Copy(pw, os.Stdin)
		pw.CloseWithError(err)
	}()
	return pr
}
