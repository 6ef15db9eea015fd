// Package cargo runs the cargo build tool as a subprocess and reduces its
// structured output to the diagnostics an agent needs to see.
package cargo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultBinary is the build tool looked up on PATH.
	DefaultBinary = "cargo"
	// CheckSubcommand is what the automatic verification loop runs.
	CheckSubcommand = "check"
)

// formatFlag switches cargo to line-delimited JSON messages.
var formatFlag = []string{"--message-format", "json"}

// Invocation describes one cargo run. Dir == "" means the caller's working
// directory.
type Invocation struct {
	Subcommand string
	Args       []string
	Dir        string
	Structured bool
}

// Command renders the invocation the way a user would type it.
func (inv Invocation) Command() string {
	return inv.CommandFor(DefaultBinary)
}

// CommandFor renders the invocation as run by binary. Only the base name of
// a path is shown.
func (inv Invocation) CommandFor(binary string) string {
	parts := make([]string, 0, len(inv.Args)+4)
	parts = append(parts, filepath.Base(binary), inv.Subcommand)
	for _, arg := range inv.Args {
		if arg != "" {
			parts = append(parts, arg)
		}
	}
	if inv.Structured {
		parts = append(parts, formatFlag...)
	}
	return strings.Join(parts, " ")
}

func (inv Invocation) argv() []string {
	argv := make([]string, 0, len(inv.Args)+3)
	argv = append(argv, inv.Subcommand)
	for _, arg := range inv.Args {
		if arg != "" {
			argv = append(argv, arg)
		}
	}
	if inv.Structured {
		argv = append(argv, formatFlag...)
	}
	return argv
}

// Result is the outcome of a cargo run that got as far as starting the
// process. A non-zero or missing exit code is a normal Result.
type Result struct {
	ExitCode *int         `json:"exit_code" jsonschema:"process exit code, null if the process was killed"`
	Messages []Diagnostic `json:"messages" jsonschema:"compiler messages and build-finished markers in emission order"`
	Success  bool         `json:"success" jsonschema:"true when cargo exited 0 and the build did not report failure"`
	Stderr   string       `json:"stderr" jsonschema:"stderr with lock-wait noise removed"`
	Command  string       `json:"command" jsonschema:"the command that was run"`
}

// Passed reports whether the process exited with status zero.
func (r *Result) Passed() bool {
	return r != nil && r.ExitCode != nil && *r.ExitCode == 0
}

// ErrorCount returns the number of compiler messages rendered as errors.
func (r *Result) ErrorCount() int {
	n := 0
	for _, m := range r.Messages {
		if m.IsError() {
			n++
		}
	}
	return n
}

// LaunchError is returned when the cargo process could not be started at all.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Runner starts cargo processes. The zero value runs "cargo" from PATH with
// no timeout.
type Runner struct {
	// Binary overrides the executable; empty means DefaultBinary.
	Binary string
	// PrefixArgs are passed before the subcommand.
	PrefixArgs []string
	// Env replaces the process environment when non-nil.
	Env []string
	// Timeout kills the process after the given duration; zero disables it.
	Timeout time.Duration
}

// NewRunner returns a Runner for binary with the given per-run timeout.
func NewRunner(binary string, timeout time.Duration) *Runner {
	return &Runner{Binary: binary, Timeout: timeout}
}

// Run executes inv and waits for it to finish. The only error it returns is a
// *LaunchError; everything after a successful start is reported in Result.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	binary := r.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	args := append(append([]string{}, r.PrefixArgs...), inv.argv()...)
	command := inv.CommandFor(binary)

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = inv.Dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil && cmd.ProcessState == nil {
		return nil, &LaunchError{Command: command, Err: err}
	}
	var exitCode *int
	if code := cmd.ProcessState.ExitCode(); code >= 0 {
		exitCode = &code
	}

	messages := FilterMessages(stdout.String())
	return &Result{
		ExitCode: exitCode,
		Messages: nonNil(messages),
		Success:  exitCode != nil && *exitCode == 0 && buildSucceeded(messages),
		Stderr:   FilterStderr(stderr.String()),
		Command:  command,
	}, nil
}

func nonNil(messages []Diagnostic) []Diagnostic {
	if messages == nil {
		return []Diagnostic{}
	}
	return messages
}
