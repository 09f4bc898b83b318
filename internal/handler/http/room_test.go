package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaborative-canvas/internal/hub"
	memorystate "collaborative-canvas/internal/infra/state/memory"
	"collaborative-canvas/internal/infra/wake"
	"collaborative-canvas/internal/room"
)

func setupRoomRouter(t *testing.T) (*gin.Engine, *hub.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	scheduler := wake.NewLocalScheduler()
	h := hub.NewHub(memorystate.NewMemoryRoomStore(), scheduler, room.DefaultOptions())
	scheduler.Bind(h.Wake)
	t.Cleanup(func() {
		scheduler.Stop()
		h.Shutdown()
	})

	handler := NewRoomHandler(h)
	router := gin.New()
	router.GET("/api/rooms", handler.ListRooms)
	router.GET("/api/rooms/:roomId", handler.GetRoom)
	return router, h
}

func TestRoomHandler_ListRooms(t *testing.T) {
	router, h := setupRoomRouter(t)
	_, err := h.Room("b")
	require.NoError(t, err)
	_, err = h.Room("a")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ListRoomsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"a", "b"}, resp.Rooms)
}

func TestRoomHandler_GetRoom(t *testing.T) {
	router, h := setupRoomRouter(t)
	_, err := h.Room("r1")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms/r1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var stats room.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "r1", stats.RoomID)
	assert.Zero(t, stats.Connections)
	assert.False(t, stats.Closed)
	assert.Nil(t, stats.FileName)
}

func TestRoomHandler_GetRoomNotLoaded(t *testing.T) {
	router, _ := setupRoomRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"room not found"}`, w.Body.String())
}

func TestRoomHandler_GetRoomAfterShutdown(t *testing.T) {
	router, h := setupRoomRouter(t)
	_, err := h.Room("r1")
	require.NoError(t, err)
	h.Shutdown()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rooms/r1", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
