package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cargo-proxy/internal/cargo"
)

func failedResult() *cargo.Result {
	code := 101
	no := false
	return &cargo.Result{
		ExitCode: &code,
		Command:  "cargo check --message-format json",
		Stderr:   "error: could not compile `demo`",
		Messages: []cargo.Diagnostic{
			{Reason: cargo.ReasonCompilerMessage, RenderedMessage: "warning: unused import\n"},
			{Reason: cargo.ReasonCompilerMessage, RenderedMessage: "error[E0308]: mismatched types\n"},
			{Reason: cargo.ReasonBuildFinished, Success: &no},
		},
	}
}

func TestCount(t *testing.T) {
	assert.Equal(t, Counts{Errors: 1, Warnings: 1}, Count(failedResult()))
}

func TestSummary(t *testing.T) {
	assert.Equal(t,
		"cargo check --message-format json failed (exit code 101): 1 error, 1 warning",
		Summary(failedResult()))

	zero := 0
	ok := &cargo.Result{ExitCode: &zero, Success: true, Command: "cargo build --message-format json"}
	assert.Equal(t, "cargo build --message-format json passed (exit code 0): 0 errors, 0 warnings", Summary(ok))

	killed := &cargo.Result{Command: "cargo check"}
	assert.Contains(t, Summary(killed), "exit code none")
}

func TestPlain(t *testing.T) {
	want := strings.Join([]string{
		"$ cargo check --message-format json",
		"exit code: 101",
		"success: false",
		"",
		"warning: unused import",
		"",
		"error[E0308]: mismatched types",
		"",
		"stderr:",
		"error: could not compile `demo`",
		"",
	}, "\n")
	assert.Equal(t, want, Plain(failedResult()))
}

func TestPretty_ContainsMessages(t *testing.T) {
	out := Pretty(failedResult())
	assert.Contains(t, out, "mismatched types")
	assert.Contains(t, out, "unused import")
	assert.Contains(t, out, "could not compile")
}

func TestDivider(t *testing.T) {
	assert.Contains(t, Divider(3), "───")
	assert.NotPanics(t, func() { Divider(-1) })
}
