package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cargo-proxy/internal/acp"
	"cargo-proxy/internal/dirty"
)

func update(status acp.ToolCallStatus, paths ...string) acp.ToolCallUpdate {
	u := acp.ToolCallUpdate{SessionID: "s1", ToolCallID: "t1", Status: status}
	for _, p := range paths {
		u.Locations = append(u.Locations, acp.ToolCallLocation{Path: p})
	}
	return u
}

func TestObserver_Observe(t *testing.T) {
	tests := []struct {
		name   string
		update acp.ToolCallUpdate
		want   bool
	}{
		{"completed rust edit", update(acp.ToolCallCompleted, "src/main.rs"), true},
		{"extension is case-insensitive", update(acp.ToolCallCompleted, "src/LIB.RS"), true},
		{"one matching location is enough", update(acp.ToolCallCompleted, "README.md", "src/a.rs"), true},
		{"in progress", update(acp.ToolCallInProgress, "src/main.rs"), false},
		{"failed", update(acp.ToolCallFailed, "src/main.rs"), false},
		{"no locations", update(acp.ToolCallCompleted), false},
		{"other extension", update(acp.ToolCallCompleted, "Cargo.toml", "notes.txt"), false},
		{"no extension", update(acp.ToolCallCompleted, "src/rs"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tracker dirty.Tracker
			o := NewObserver(&tracker, []string{"rs"}, nil)

			assert.Equal(t, tt.want, o.Observe(tt.update))
			assert.Equal(t, tt.want, tracker.TakeAndClear())
		})
	}
}

func TestObserver_ConfiguredExtensions(t *testing.T) {
	var tracker dirty.Tracker
	o := NewObserver(&tracker, []string{".toml", " RS ", ""}, nil)

	assert.True(t, o.Observe(update(acp.ToolCallCompleted, "Cargo.toml")))
	assert.True(t, o.Observe(update(acp.ToolCallCompleted, "src/main.rs")))
	assert.False(t, o.Observe(update(acp.ToolCallCompleted, "Makefile")))
}

func TestObserver_CompletionWithoutLocationsUsesEarlierOnes(t *testing.T) {
	var tracker dirty.Tracker
	o := NewObserver(&tracker, []string{"rs"}, nil)

	assert.False(t, o.Observe(update(acp.ToolCallPending, "src/lib.rs")))
	assert.False(t, o.Observe(update(acp.ToolCallInProgress)))
	assert.False(t, tracker.Peek())

	assert.True(t, o.Observe(update(acp.ToolCallCompleted)))
	assert.True(t, tracker.TakeAndClear())

	// The call is forgotten once it finished.
	assert.False(t, o.Observe(update(acp.ToolCallCompleted)))
	assert.False(t, tracker.Peek())
}

func TestObserver_RememberedLocationsAreScopedToTheCall(t *testing.T) {
	var tracker dirty.Tracker
	o := NewObserver(&tracker, []string{"rs"}, nil)

	o.Observe(update(acp.ToolCallPending, "src/lib.rs"))

	other := update(acp.ToolCallCompleted)
	other.ToolCallID = "t2"
	assert.False(t, o.Observe(other))

	otherSession := update(acp.ToolCallCompleted)
	otherSession.SessionID = "s2"
	assert.False(t, o.Observe(otherSession))

	assert.False(t, o.Observe(update(acp.ToolCallFailed)))
	assert.False(t, o.Observe(update(acp.ToolCallCompleted)), "a failed call is forgotten")
	assert.False(t, tracker.Peek())
}
