// Package mcpserver exposes cargo commands as MCP tools.
package mcpserver

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"cargo-proxy/internal/cargo"
	"cargo-proxy/internal/render"
	"cargo-proxy/internal/workdir"
)

// Instructions is sent to clients on initialize.
const Instructions = "Run cargo commands. When possible, always use this instead of calling a shell command."

// Runner runs one cargo invocation. *cargo.Runner implements it.
type Runner interface {
	Run(ctx context.Context, inv cargo.Invocation) (*cargo.Result, error)
}

// Options names the server.
type Options struct {
	Name    string
	Version string
}

type CwdInput struct {
	Cwd string `json:"cwd,omitempty" jsonschema:"directory to run cargo in; defaults to the directory set with cargo_set_cwd"`
}

type TestInput struct {
	Cwd     string `json:"cwd,omitempty" jsonschema:"directory to run cargo in; defaults to the directory set with cargo_set_cwd"`
	TestArg string `json:"test_arg,omitempty" jsonschema:"test name filter passed to cargo test"`
}

type PackageInput struct {
	Cwd       string   `json:"cwd,omitempty" jsonschema:"directory to run cargo in; defaults to the directory set with cargo_set_cwd"`
	Package   string   `json:"package" jsonschema:"crate name, optionally with a version requirement such as serde@1"`
	ExtraArgs []string `json:"extra_args,omitempty" jsonschema:"additional arguments passed through to cargo"`
}

type ExtraArgsInput struct {
	Cwd       string   `json:"cwd,omitempty" jsonschema:"directory to run cargo in; defaults to the directory set with cargo_set_cwd"`
	ExtraArgs []string `json:"extra_args,omitempty" jsonschema:"additional arguments passed through to cargo"`
}

type RunInput struct {
	Cwd     string   `json:"cwd,omitempty" jsonschema:"directory to run cargo in; defaults to the directory set with cargo_set_cwd"`
	Release bool     `json:"release,omitempty" jsonschema:"build with the release profile"`
	Args    []string `json:"args,omitempty" jsonschema:"arguments passed to the binary after --"`
}

type UpdateInput struct {
	Cwd       string   `json:"cwd,omitempty" jsonschema:"directory to run cargo in; defaults to the directory set with cargo_set_cwd"`
	Package   string   `json:"package,omitempty" jsonschema:"update only this package"`
	ExtraArgs []string `json:"extra_args,omitempty" jsonschema:"additional arguments passed through to cargo"`
}

type SetCwdInput struct {
	Path string `json:"path,omitempty" jsonschema:"new default directory; empty clears it"`
}

type SetCwdOutput struct {
	Cwd string `json:"cwd" jsonschema:"the default directory now in effect, empty for the server's own directory"`
}

type tools struct {
	runner   Runner
	registry *workdir.Registry
	log      *zap.Logger
}

// New builds the MCP server with every cargo tool registered.
func New(opts Options, runner Runner, registry *workdir.Registry, log *zap.Logger) *mcp.Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "cargo-mcp"
	}
	t := &tools{runner: runner, registry: registry, log: log}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    opts.Name,
		Version: opts.Version,
	}, &mcp.ServerOptions{Instructions: Instructions})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cargo_check",
		Description: "Runs cargo check.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in CwdInput) (*mcp.CallToolResult, cargo.Result, error) {
		return t.run(ctx, in.Cwd, "check", nil, true)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cargo_build",
		Description: "Runs cargo build.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in CwdInput) (*mcp.CallToolResult, cargo.Result, error) {
		return t.run(ctx, in.Cwd, "build", nil, true)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cargo_test",
		Description: "Runs cargo test, optionally filtered to tests whose name contains test_arg.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in TestInput) (*mcp.CallToolResult, cargo.Result, error) {
		return t.run(ctx, in.Cwd, "test", []string{in.TestArg}, true)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cargo_add",
		Description: "Adds a dependency with cargo add.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in PackageInput) (*mcp.CallToolResult, cargo.Result, error) {
		if err := requirePackage(in.Package); err != nil {
			return nil, cargo.Result{}, err
		}
		return t.run(ctx, in.Cwd, "add", append([]string{in.Package}, in.ExtraArgs...), false)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cargo_remove",
		Description: "Removes a dependency with cargo remove.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in PackageInput) (*mcp.CallToolResult, cargo.Result, error) {
		if err := requirePackage(in.Package); err != nil {
			return nil, cargo.Result{}, err
		}
		return t.run(ctx, in.Cwd, "remove", append([]string{in.Package}, in.ExtraArgs...), false)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cargo_clean",
		Description: "Removes build artifacts with cargo clean.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in ExtraArgsInput) (*mcp.CallToolResult, cargo.Result, error) {
		return t.run(ctx, in.Cwd, "clean", in.ExtraArgs, false)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cargo_run",
		Description: "Builds and runs the package binary with cargo run.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in RunInput) (*mcp.CallToolResult, cargo.Result, error) {
		return t.run(ctx, in.Cwd, "run", runArgs(in), false)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cargo_update",
		Description: "Updates dependencies in Cargo.lock with cargo update.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in UpdateInput) (*mcp.CallToolResult, cargo.Result, error) {
		var args []string
		if in.Package != "" {
			args = append(args, "-p", in.Package)
		}
		return t.run(ctx, in.Cwd, "update", append(args, in.ExtraArgs...), false)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cargo_set_cwd",
		Description: "Sets the default directory for cargo commands, including the automatic check after edits. Returns the directory now in effect.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in SetCwdInput) (*mcp.CallToolResult, SetCwdOutput, error) {
		cwd := t.registry.Set(strings.TrimSpace(in.Path))
		t.log.Info("default directory changed", zap.String("cwd", cwd))
		text := cwd
		if text == "" {
			text = "(server working directory)"
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, SetCwdOutput{Cwd: cwd}, nil
	})

	return server
}

func (t *tools) run(ctx context.Context, cwd, sub string, args []string, structured bool) (*mcp.CallToolResult, cargo.Result, error) {
	inv := cargo.Invocation{
		Subcommand: sub,
		Args:       args,
		Dir:        t.registry.Resolve(cwd),
		Structured: structured,
	}
	res, err := t.runner.Run(ctx, inv)
	if err != nil {
		t.log.Warn("cargo did not start", zap.String("command", inv.Command()), zap.Error(err))
		return nil, cargo.Result{}, err
	}
	t.log.Debug("cargo finished",
		zap.String("command", res.Command),
		zap.String("dir", inv.Dir),
		zap.String("exit_code", render.ExitCode(res.ExitCode)))
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: render.Plain(res)}},
	}, *res, nil
}

func runArgs(in RunInput) []string {
	var args []string
	if in.Release {
		args = append(args, "--release")
	}
	if len(in.Args) > 0 {
		args = append(args, "--")
		args = append(args, in.Args...)
	}
	return args
}

type inputError string

func (e inputError) Error() string { return string(e) }

func requirePackage(pkg string) error {
	if strings.TrimSpace(pkg) == "" {
		return inputError("package is required")
	}
	return nil
}
