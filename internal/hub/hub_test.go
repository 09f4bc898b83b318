package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memorystate "collaborative-canvas/internal/infra/state/memory"
	"collaborative-canvas/internal/infra/wake"
	"collaborative-canvas/internal/room"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h, _ := newTestHubWithStore(t)
	return h
}

func newTestHubWithStore(t *testing.T) (*Hub, *memorystate.MemoryRoomStore) {
	t.Helper()
	store := memorystate.NewMemoryRoomStore()
	scheduler := wake.NewLocalScheduler()
	h := NewHub(store, scheduler, room.DefaultOptions())
	scheduler.Bind(h.Wake)
	t.Cleanup(func() {
		scheduler.Stop()
		h.Shutdown()
	})
	return h, store
}

func TestHub_RoomIsSingletonPerID(t *testing.T) {
	h := newTestHub(t)

	const workers = 32
	got := make([]*room.Room, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := h.Room("shared")
			assert.NoError(t, err)
			got[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range got {
		assert.Same(t, got[0], r)
	}
	assert.Equal(t, []string{"shared"}, h.ActiveRoomIDs())
}

func TestHub_LookupDoesNotCreate(t *testing.T) {
	h := newTestHub(t)

	_, ok := h.Lookup("nope")
	assert.False(t, ok)
	assert.Empty(t, h.ActiveRoomIDs())

	created, err := h.Room("yes")
	require.NoError(t, err)
	found, ok := h.Lookup("yes")
	require.True(t, ok)
	assert.Same(t, created, found)
}

func TestHub_WakeUnloadedRoomWipesWithoutLoading(t *testing.T) {
	h, store := newTestHubWithStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "cold", "drawing_1", []byte("stale")))
	require.NoError(t, store.Put(ctx, "other", "drawing_1", []byte("keep")))

	require.NoError(t, h.Wake(ctx, "cold"))

	_, ok := h.Lookup("cold")
	assert.False(t, ok, "wake does not start an actor for an unloaded room")
	assert.Empty(t, h.ActiveRoomIDs())
	values, err := store.List(ctx, "cold", "")
	require.NoError(t, err)
	assert.Empty(t, values)
	values, err = store.List(ctx, "other", "")
	require.NoError(t, err)
	assert.Len(t, values, 1)
}

func TestHub_WakeLoadedRoomDeliversAlarm(t *testing.T) {
	h, store := newTestHubWithStore(t)
	ctx := context.Background()
	r, err := h.Room("warm")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "warm", "drawing_1", []byte("stale")))

	require.NoError(t, h.Wake(ctx, "warm"))

	statsCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	stats, err := r.Stats(statsCtx)
	require.NoError(t, err)
	assert.Zero(t, stats.Connections)
	values, err := store.List(ctx, "warm", "")
	require.NoError(t, err)
	assert.Empty(t, values, "an empty loaded room wipes on the alarm")
}

func TestHub_ShutdownStopsRooms(t *testing.T) {
	h := newTestHub(t)
	r, err := h.Room("r1")
	require.NoError(t, err)

	h.Shutdown()

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("room actor did not stop")
	}
	_, err = h.Room("r2")
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.ErrorIs(t, h.Wake(context.Background(), "r1"), ErrHubClosed)
}
