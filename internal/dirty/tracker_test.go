package dirty

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_TakeAndClear(t *testing.T) {
	var tr Tracker

	assert.False(t, tr.TakeAndClear())

	tr.MarkDirty()
	tr.MarkDirty()
	assert.True(t, tr.Peek())
	assert.True(t, tr.TakeAndClear())
	assert.False(t, tr.TakeAndClear())
	assert.False(t, tr.Peek())
}

// Every MarkDirty is observed by some TakeAndClear, including one final take
// after all writers are done.
func TestTracker_NoLostMarks(t *testing.T) {
	var tr Tracker
	var taken atomic.Int64
	const writers, marks = 4, 1000

	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
				if tr.TakeAndClear() {
					taken.Add(1)
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < marks; j++ {
				tr.MarkDirty()
			}
		}()
	}
	wg.Wait()
	close(stop)
	readers.Wait()
	if tr.TakeAndClear() {
		taken.Add(1)
	}

	assert.Positive(t, taken.Load())
	assert.LessOrEqual(t, taken.Load(), int64(writers*marks))
	assert.False(t, tr.Peek())
}
