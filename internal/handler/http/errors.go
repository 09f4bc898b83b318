package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/hub"
	"collaborative-canvas/internal/room"
)

// ErrRoomNotLoaded 房间当前没有在本进程中加载
var ErrRoomNotLoaded = errors.New("room not found")

// HandleError 把内部错误映射为 HTTP 状态码
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRoomNotLoaded):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, room.ErrRoomStopped), errors.Is(err, hub.ErrHubClosed):
		ErrorResponse(c, http.StatusServiceUnavailable, "Room is shutting down")
	case errors.Is(err, context.DeadlineExceeded):
		ErrorResponse(c, http.StatusGatewayTimeout, "Room did not respond in time")
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
