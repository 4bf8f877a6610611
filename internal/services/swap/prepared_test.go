package swap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreparedStore_TakeOnce(t *testing.T) {
	e := newTestEnv(t)
	prepared, err := e.executor().Prepare(context.Background(), e.intent)
	require.NoError(t, err)

	store := NewPreparedStore(8, time.Minute)
	store.Put(prepared)
	assert.Equal(t, 1, store.Len())

	got, ok := store.Peek(prepared.ID)
	require.True(t, ok)
	assert.Same(t, prepared, got)

	got, ok = store.Take(prepared.ID)
	require.True(t, ok)
	assert.Same(t, prepared, got)

	_, ok = store.Take(prepared.ID)
	assert.False(t, ok, "a prepared swap can only be submitted once")
	assert.Zero(t, store.Len())
}

func TestPreparedStore_Bounded(t *testing.T) {
	store := NewPreparedStore(2, 0)
	for _, id := range []string{"a", "b", "c"} {
		store.Put(&PreparedSwap{ID: id})
	}
	assert.Equal(t, 2, store.Len())
	_, ok := store.Peek("a")
	assert.False(t, ok, "oldest entry is evicted")
}

func TestNewSwapID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newSwapID()
		assert.Len(t, id, 32)
		assert.False(t, seen[id])
		seen[id] = true
	}
}
