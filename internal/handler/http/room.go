package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/room"
)

const statsTimeout = 2 * time.Second

// RoomDirectory 是 RoomHandler 需要的房间目录，由 hub.Hub 实现
type RoomDirectory interface {
	Lookup(roomID string) (*room.Room, bool)
	ActiveRoomIDs() []string
}

// RoomHandler 封装了房间查询相关的 HTTP 处理逻辑
type RoomHandler struct {
	rooms RoomDirectory
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(rooms RoomDirectory) *RoomHandler {
	if rooms == nil {
		panic("RoomDirectory cannot be nil for RoomHandler")
	}
	return &RoomHandler{rooms: rooms}
}

// ListRoomsResponse 已加载房间列表
type ListRoomsResponse struct {
	Rooms []string `json:"rooms"`
}

// ListRooms GET /api/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, ListRoomsResponse{Rooms: h.rooms.ActiveRoomIDs()})
}

// GetRoom GET /api/rooms/:roomId，经由房间 mailbox 读取实时状态
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	logCtx := logrus.WithFields(logrus.Fields{"component": "room_handler", "room_id": roomID})

	r, ok := h.rooms.Lookup(roomID)
	if !ok {
		HandleError(c, ErrRoomNotLoaded)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), statsTimeout)
	defer cancel()
	stats, err := r.Stats(ctx)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.GetRoom: Failed to read room stats")
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, stats)
}
