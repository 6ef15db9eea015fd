package workdir

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SetGet(t *testing.T) {
	var r Registry

	path, ok := r.Get()
	assert.False(t, ok)
	assert.Empty(t, path)

	assert.Equal(t, "/tmp/a", r.Set("/tmp/a"))
	path, ok = r.Get()
	assert.True(t, ok)
	assert.Equal(t, "/tmp/a", path)

	r.Set("/tmp/b")
	path, _ = r.Get()
	assert.Equal(t, "/tmp/b", path)

	assert.Empty(t, r.Set(""))
	_, ok = r.Get()
	assert.False(t, ok)
}

func TestRegistry_Resolve(t *testing.T) {
	r := New("/work/crate")

	assert.Equal(t, "/other", r.Resolve("/other"))
	assert.Equal(t, "/work/crate", r.Resolve(""))

	r.Set("")
	assert.Empty(t, r.Resolve(""))
}

func TestRegistry_ConcurrentReadersSeeWholeValues(t *testing.T) {
	r := New("/a")
	valid := map[string]bool{"/a": true, "/b": true}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if i%2 == 0 {
					if j%2 == 0 {
						r.Set("/a")
					} else {
						r.Set("/b")
					}
					continue
				}
				got := r.Resolve("")
				if !valid[got] {
					t.Errorf("torn read: %q", got)
				}
			}
		}(i)
	}
	wg.Wait()
}
