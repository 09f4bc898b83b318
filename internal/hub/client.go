package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/room"
)

var (
	// ErrClientClosed 连接已关闭
	ErrClientClosed = errors.New("hub: client closed")
	// ErrSendBufferFull 客户端发送队列已满（慢客户端），本条消息被丢弃
	ErrSendBufferFull = errors.New("hub: send buffer full")
)

// Client 代表一个连接到房间的 WebSocket 客户端，实现 room.Conn。
type Client struct {
	id   string
	conn *websocket.Conn
	room *room.Room
	send chan []byte // 用于向此客户端发送消息的缓冲通道
	log  *logrus.Entry

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string
}

var _ room.Conn = (*Client)(nil)

// NewClient 创建一个新的 Client 实例
func NewClient(conn *websocket.Conn, r *room.Room) *Client {
	id := uuid.NewString()
	return &Client{
		id:   id,
		conn: conn,
		room: r,
		send: make(chan []byte, sendBufferSize),
		log:  logrus.WithFields(logrus.Fields{"component": "client", "conn_id": id, "room_id": r.ID()}),
	}
}

// ID 连接 id
func (c *Client) ID() string { return c.id }

// Send 非阻塞入队，慢客户端不会拖住房间
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close 在已入队的消息发完后发送关闭帧，可重复调用
func (c *Client) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

// Run 把连接挂到房间上，并启动读写 goroutine
func (c *Client) Run() {
	if !c.room.Connect(c) {
		c.log.Warn("Room actor stopped, rejecting connection")
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
		return
	}
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump 将消息从 WebSocket 连接投递到房间 mailbox
func (c *Client) ReadPump() {
	defer func() {
		c.room.Disconnect(c)
		c.Close(websocket.CloseNormalClosure, "")
		_ = c.conn.Close()
		c.log.Info("readPump exited, client detached")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait)) // 收到 Pong 后重置读取超时
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.log.Debug("WebSocket connection closed")
			}
			return
		}

		if messageType != websocket.TextMessage {
			c.log.Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}
		if !c.room.Message(c, message) {
			return
		}
	}
}

// WritePump 将消息从 send 通道写到 WebSocket 连接，并定期发送 ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.log.Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Close 关闭，队列里的消息都已写出
				c.mu.Lock()
				code, reason := c.closeCode, c.closeReason
				c.mu.Unlock()
				if code == 0 {
					code = websocket.CloseNormalClosure
				}
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("Failed to send ping message")
				return
			}
		}
	}
}
