package websocket

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/hub"
)

// WebSocketHandler 负责处理 WebSocket 升级请求，并把连接挂到对应房间
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 来源由前置的 CORS 配置控制，这里不再二次校验
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return &WebSocketHandler{upgrader: upgrader, hub: h}
}

// HandleConnection 处理 WebSocket 连接请求
// URL 格式: /ws/room/{roomId} 或 /ws/room?roomId={roomId}
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	roomID := c.Param("roomId")
	if roomID == "" {
		roomID = c.Query("roomId")
	}
	logCtx := logrus.WithFields(logrus.Fields{"component": "ws_handler", "client_ip": c.ClientIP()})

	if roomID == "" {
		logCtx.Warn("WS Handler: Missing room id")
		c.String(http.StatusBadRequest, "Missing roomId")
		return
	}
	logCtx = logCtx.WithField("room_id", roomID)

	if !websocket.IsWebSocketUpgrade(c.Request) {
		logCtx.Debug("WS Handler: Not a websocket upgrade request")
		c.String(http.StatusUpgradeRequired, "Expected Upgrade: websocket")
		return
	}

	r, err := h.hub.Room(roomID)
	if err != nil {
		if errors.Is(err, hub.ErrHubClosed) {
			c.String(http.StatusServiceUnavailable, "Server shutting down")
			return
		}
		logCtx.WithError(err).Error("WS Handler: Failed to load room")
		c.String(http.StatusInternalServerError, "Failed to load room")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	client := hub.NewClient(conn, r)
	logCtx.WithField("conn_id", client.ID()).Info("WS Handler: Connection upgraded to WebSocket")
	client.Run()
}
