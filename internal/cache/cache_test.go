package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

func estimates(ids ...string) []estimate.Estimate {
	out := make([]estimate.Estimate, 0, len(ids))
	for _, id := range ids {
		out = append(out, estimate.Estimate{ID: id, Name: "Estimate " + id, Rooms: map[string]estimate.Room{}})
	}
	return out
}

// TestStoreAndRead tests a fetched list fills list and per-estimate entries
func TestStoreAndRead(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)

	_, ok := c.Estimates()
	assert.False(t, ok)

	require.True(t, c.StoreEstimates(c.Generation(), estimates("a", "b")))

	list, ok := c.Estimates()
	require.True(t, ok)
	assert.Len(t, list, 2)

	b, ok := c.Estimate("b")
	require.True(t, ok)
	assert.Equal(t, "Estimate b", b.Name)
	assert.Equal(t, 2, c.Len())
}

// TestInvalidateIsImmediate tests a read right after invalidation misses
func TestInvalidateIsImmediate(t *testing.T) {
	var hooked []string
	c, err := New(8, WithInvalidationHook(func(id string) { hooked = append(hooked, id) }))
	require.NoError(t, err)
	require.True(t, c.StoreEstimates(c.Generation(), estimates("a", "b")))

	c.Invalidate("a")

	_, ok := c.Estimate("a")
	assert.False(t, ok)
	_, ok = c.Estimates()
	assert.False(t, ok, "the list holds the invalidated estimate")
	_, ok = c.Estimate("b")
	assert.True(t, ok, "other estimates stay cached")

	c.InvalidateAll()
	assert.Zero(t, c.Len())
	assert.Equal(t, []string{"a", ""}, hooked)
}

// TestStaleFetchIsDropped tests a fetch started before a mutation cannot
// repopulate the cache afterwards
func TestStaleFetchIsDropped(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)

	gen := c.Generation()
	stale := estimates("a")

	// mutation completes while the fetch is in flight
	c.Invalidate("a")

	assert.False(t, c.StoreEstimates(gen, stale))
	assert.False(t, c.StoreEstimate(gen, stale[0]))
	_, ok := c.Estimates()
	assert.False(t, ok)

	assert.True(t, c.StoreEstimate(c.Generation(), stale[0]))
}

// TestReadsAreCopies tests callers cannot change cached values
func TestReadsAreCopies(t *testing.T) {
	c, err := New(8)
	require.NoError(t, err)
	list := estimates("a")
	list[0].Rooms["r"] = estimate.Room{ID: "r", Name: "Kitchen"}
	require.True(t, c.StoreEstimates(c.Generation(), list))

	list[0].Rooms["r"] = estimate.Room{ID: "r", Name: "mutated"}
	got, _ := c.Estimate("a")
	assert.Equal(t, "Kitchen", got.Rooms["r"].Name)

	got.Rooms["r"] = estimate.Room{ID: "r", Name: "mutated again"}
	again, _ := c.Estimate("a")
	assert.Equal(t, "Kitchen", again.Rooms["r"].Name)
}

// TestConcurrentAccess tests invalidation racing with reads and writes
func TestConcurrentAccess(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			c.StoreEstimates(c.Generation(), estimates("a", "b", "c"))
		}()
		go func() {
			defer wg.Done()
			c.Invalidate("b")
		}()
		go func() {
			defer wg.Done()
			c.Estimates()
			c.Estimate("a")
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 4)
}
