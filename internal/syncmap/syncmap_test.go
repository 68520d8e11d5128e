package syncmap

import (
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_Basic(t *testing.T) {
	m := New[string, int]()

	_, ok := m.Load("a")
	assert.False(t, ok)

	m.Store("a", 1)
	v, ok := m.Load("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, m.Len())

	m.Delete("a")
	assert.Equal(t, 0, m.Len())
}

func TestMap_SwapHandsOutEachPreviousOnce(t *testing.T) {
	m := New[string, int]()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var seen []int
	for i := 1; i <= 50; i++ {
		wg.Go(func() {
			if prev, ok := m.Swap("k", i); ok {
				mu.Lock()
				seen = append(seen, prev)
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	last, ok := m.Load("k")
	assert.True(t, ok)
	assert.NotContains(t, seen, last)
	slices.Sort(seen)
	assert.Len(t, slices.Compact(seen), 49)
}

func TestMap_LoadOrCreateRunsOnce(t *testing.T) {
	m := New[string, *sync.Mutex]()
	var created atomic.Int32

	var wg sync.WaitGroup
	results := make([]*sync.Mutex, 50)
	for i := range results {
		wg.Go(func() {
			results[i] = m.LoadOrCreate("reader", func() *sync.Mutex {
				created.Add(1)
				return &sync.Mutex{}
			})
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestMap_DeleteIf(t *testing.T) {
	m := New[string, string]()
	m.Store("r1", "scan_a")

	assert.False(t, m.DeleteIf("r1", func(v string) bool { return v == "scan_b" }))
	assert.True(t, m.DeleteIf("r1", func(v string) bool { return v == "scan_a" }))
	assert.False(t, m.DeleteIf("r1", func(string) bool { return true }))
}

func TestMap_RangeAllowsMutation(t *testing.T) {
	m := New[int, int]()
	for i := range 5 {
		m.Store(i, i)
	}

	m.Range(func(k, _ int) bool {
		m.Delete(k)
		return true
	})
	assert.Equal(t, 0, m.Len())
}
