// Package verify decides when a finished agent turn needs a cargo check and
// turns failed checks into follow-up prompts.
package verify

import (
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"cargo-proxy/internal/acp"
	"cargo-proxy/internal/dirty"
)

// Observer watches tool-call updates for completed edits to source files.
// Agents often announce locations only while a call is pending, so locations
// seen earlier for a call are used when its completion carries none.
type Observer struct {
	tracker *dirty.Tracker
	exts    map[string]struct{}
	log     *zap.Logger

	mu        sync.Mutex
	locations map[string][]acp.ToolCallLocation // session + tool call id
}

// NewObserver returns an Observer marking tracker dirty for files whose
// extension is one of extensions. Extensions may be given with or without the
// leading dot and are matched case-insensitively.
func NewObserver(tracker *dirty.Tracker, extensions []string, log *zap.Logger) *Observer {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts[ext] = struct{}{}
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Observer{
		tracker:   tracker,
		exts:      exts,
		log:       log,
		locations: make(map[string][]acp.ToolCallLocation),
	}
}

// Observe marks the tracker dirty and returns true when u is a completed tool
// call that touched at least one matching file.
func (o *Observer) Observe(u acp.ToolCallUpdate) bool {
	locs := o.remember(u)
	if u.Status != acp.ToolCallCompleted {
		return false
	}
	for _, loc := range locs {
		if o.matches(loc.Path) {
			o.tracker.MarkDirty()
			o.log.Debug("source edit observed",
				zap.String("session", u.SessionID),
				zap.String("tool_call", u.ToolCallID),
				zap.String("path", loc.Path))
			return true
		}
	}
	return false
}

// remember records the locations of an unfinished call and returns the
// locations that apply to u.
func (o *Observer) remember(u acp.ToolCallUpdate) []acp.ToolCallLocation {
	if u.ToolCallID == "" {
		return u.Locations
	}
	key := u.SessionID + "\x00" + u.ToolCallID

	o.mu.Lock()
	defer o.mu.Unlock()
	switch u.Status {
	case acp.ToolCallCompleted, acp.ToolCallFailed:
		locs := u.Locations
		if len(locs) == 0 {
			locs = o.locations[key]
		}
		delete(o.locations, key)
		return locs
	}
	if len(u.Locations) > 0 {
		o.locations[key] = u.Locations
	}
	return o.locations[key]
}

func (o *Observer) matches(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	_, ok := o.exts[strings.ToLower(ext)]
	return ok
}
