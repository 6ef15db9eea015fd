// Package render turns cargo results into text for agents, clients and
// terminals.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"cargo-proxy/internal/cargo"
)

// Counts tallies compiler messages by severity.
type Counts struct {
	Errors   int
	Warnings int
}

// Count returns the error and warning totals of r.
func Count(r *cargo.Result) Counts {
	var c Counts
	for _, m := range r.Messages {
		switch {
		case m.IsError():
			c.Errors++
		case m.IsWarning():
			c.Warnings++
		}
	}
	return c
}

// ExitCode formats an optional exit code.
func ExitCode(code *int) string {
	if code == nil {
		return "none"
	}
	return strconv.Itoa(*code)
}

// Summary is a one-line description of r.
func Summary(r *cargo.Result) string {
	c := Count(r)
	state := "passed"
	if !r.Success {
		state = "failed"
	}
	return fmt.Sprintf("%s %s (exit code %s): %s, %s",
		r.Command, state, ExitCode(r.ExitCode),
		plural(c.Errors, "error"), plural(c.Warnings, "warning"))
}

// Plain renders r without styling. Compiler messages appear in emission
// order followed by the filtered stderr.
func Plain(r *cargo.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "$ %s\n", r.Command)
	fmt.Fprintf(&b, "exit code: %s\n", ExitCode(r.ExitCode))
	fmt.Fprintf(&b, "success: %t\n", r.Success)
	for _, m := range r.Messages {
		if m.Reason != cargo.ReasonCompilerMessage {
			continue
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(m.RenderedMessage, "\n"))
		b.WriteString("\n")
	}
	if stderr := strings.TrimSpace(r.Stderr); stderr != "" {
		b.WriteString("\nstderr:\n")
		b.WriteString(stderr)
		b.WriteString("\n")
	}
	return b.String()
}

// Pretty renders r for an interactive terminal.
func Pretty(r *cargo.Result) string {
	var b strings.Builder
	b.WriteString(Header(r.Command))
	b.WriteString("\n")

	status := StatusOK
	if !r.Success {
		status = StatusError
	}
	c := Count(r)
	fmt.Fprintf(&b, "%s %s %s  %s %s  %s %s\n",
		StatusIcon(status),
		Label("exit"), Value(ExitCode(r.ExitCode)),
		Label("errors"), Value(strconv.Itoa(c.Errors)),
		Label("warnings"), Value(strconv.Itoa(c.Warnings)))

	for _, m := range r.Messages {
		if m.Reason != cargo.ReasonCompilerMessage {
			continue
		}
		text := strings.TrimRight(m.RenderedMessage, "\n")
		if m.IsError() {
			b.WriteString(errorBoxStyle.Render(text))
		} else {
			b.WriteString(warnBoxStyle.Render(text))
		}
		b.WriteString("\n")
	}

	if stderr := strings.TrimSpace(r.Stderr); stderr != "" && !r.Success {
		b.WriteString(Section("stderr"))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(stderr))
		b.WriteString("\n")
	}
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
