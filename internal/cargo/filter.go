package cargo

import (
	"encoding/json"
	"strings"
)

// Reason is the "reason" tag cargo puts on every --message-format json record.
type Reason string

const (
	ReasonCompilerMessage Reason = "compiler-message"
	ReasonBuildFinished   Reason = "build-finished"
)

// lockWaitMessage is printed by cargo when another cargo process holds the
// package cache or build directory lock.
const lockWaitMessage = "Blocking waiting for file lock"

// Diagnostic is one retained record of cargo's structured output: either a
// rendered compiler message or the build-finished marker.
type Diagnostic struct {
	Reason          Reason `json:"reason" jsonschema:"compiler-message or build-finished"`
	PackageID       string `json:"package_id,omitempty" jsonschema:"package the compiler message belongs to"`
	RenderedMessage string `json:"rendered_message,omitempty" jsonschema:"human-readable compiler output"`
	Success         *bool  `json:"success,omitempty" jsonschema:"build outcome, set on build-finished records"`
}

// IsError reports whether d is a compiler message rendered as an error.
func (d Diagnostic) IsError() bool {
	return d.Reason == ReasonCompilerMessage && strings.HasPrefix(d.RenderedMessage, "error")
}

// IsWarning reports whether d is a compiler message rendered as a warning.
func (d Diagnostic) IsWarning() bool {
	return d.Reason == ReasonCompilerMessage && strings.HasPrefix(d.RenderedMessage, "warning")
}

// rawRecord mirrors the subset of cargo's JSON message schema we read.
type rawRecord struct {
	Reason    string `json:"reason"`
	PackageID string `json:"package_id"`
	Message   *struct {
		Rendered *string `json:"rendered"`
	} `json:"message"`
	Success *bool `json:"success"`
}

// FilterMessages parses cargo JSON output line by line and keeps compiler
// messages and build-finished markers in emission order. Lines that are not
// JSON (cargo interleaves progress output) are skipped.
func FilterMessages(stdout string) []Diagnostic {
	var out []Diagnostic
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] != '{' {
			continue
		}
		var rec rawRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		switch Reason(rec.Reason) {
		case ReasonCompilerMessage:
			if rec.Message == nil || rec.Message.Rendered == nil {
				continue
			}
			out = append(out, Diagnostic{
				Reason:          ReasonCompilerMessage,
				PackageID:       rec.PackageID,
				RenderedMessage: *rec.Message.Rendered,
			})
		case ReasonBuildFinished:
			success := true
			if rec.Success != nil {
				success = *rec.Success
			}
			out = append(out, Diagnostic{
				Reason:  ReasonBuildFinished,
				Success: &success,
			})
		}
	}
	return out
}

// FilterStderr drops cargo's lock-wait lines and keeps everything else
// verbatim, in order.
func FilterStderr(stderr string) string {
	if !strings.Contains(stderr, lockWaitMessage) {
		return stderr
	}
	lines := strings.Split(stderr, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Contains(line, lockWaitMessage) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// buildSucceeded reports the outcome of the last build-finished marker, or
// true if cargo did not emit one.
func buildSucceeded(messages []Diagnostic) bool {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Reason == ReasonBuildFinished && messages[i].Success != nil {
			return *messages[i].Success
		}
	}
	return true
}
