// Package dirty records whether a relevant source file changed since the
// last verification.
package dirty

import "sync/atomic"

// Tracker is a single flag set by edit notifications and consumed by the
// verification trigger. The zero value is clean.
type Tracker struct {
	flag atomic.Bool
}

// MarkDirty sets the flag. Calling it repeatedly has the same effect as once.
func (t *Tracker) MarkDirty() {
	t.flag.Store(true)
}

// TakeAndClear reports whether the flag was set and clears it in the same
// step. A concurrent MarkDirty is seen either by this call or the next one.
func (t *Tracker) TakeAndClear() bool {
	return t.flag.Swap(false)
}

// Peek reports the flag without clearing it.
func (t *Tracker) Peek() bool {
	return t.flag.Load()
}
