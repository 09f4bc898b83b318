// Package room 实现单个协作房间的协调者 (actor)。
//
// 每个房间一个 goroutine，从自己的 mailbox 依次取出连接、消息、断开、
// 清理唤醒等事件处理，房间内存状态只在这个 goroutine 中读写，不需要加锁。
package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/domain"
	"collaborative-canvas/internal/dto"
	"collaborative-canvas/internal/ratelimit"
	"collaborative-canvas/internal/repository"
)

// ErrRoomStopped 房间 actor 已经退出
var ErrRoomStopped = errors.New("room: actor stopped")

// Conn 是房间看到的连接，由传输层实现
type Conn interface {
	ID() string
	Send(data []byte) error
	Close(code int, reason string)
}

// Options 房间的可调参数
type Options struct {
	ChatLimit    int
	ChatWindow   time.Duration
	DrawLimit    int
	DrawWindow   time.Duration
	CleanupDelay time.Duration
	CloseGrace   time.Duration
	StoreTimeout time.Duration
	MailboxSize  int
	Now          func() time.Time
}

// DefaultOptions 返回默认参数：聊天 10 次/5s，绘图类 100 次/5s，空房间 3 分钟后清理
func DefaultOptions() Options {
	return Options{
		ChatLimit:    10,
		ChatWindow:   5 * time.Second,
		DrawLimit:    100,
		DrawWindow:   5 * time.Second,
		CleanupDelay: 3 * time.Minute,
		CloseGrace:   time.Second,
		StoreTimeout: 5 * time.Second,
		MailboxSize:  256,
		Now:          time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ChatLimit <= 0 {
		o.ChatLimit = d.ChatLimit
	}
	if o.ChatWindow <= 0 {
		o.ChatWindow = d.ChatWindow
	}
	if o.DrawLimit <= 0 {
		o.DrawLimit = d.DrawLimit
	}
	if o.DrawWindow <= 0 {
		o.DrawWindow = d.DrawWindow
	}
	if o.CleanupDelay <= 0 {
		o.CleanupDelay = d.CleanupDelay
	}
	if o.CloseGrace <= 0 {
		o.CloseGrace = d.CloseGrace
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = d.StoreTimeout
	}
	if o.MailboxSize <= 0 {
		o.MailboxSize = d.MailboxSize
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

type eventKind int

const (
	eventConnect eventKind = iota
	eventMessage
	eventDisconnect
	eventAlarm
	eventFinishClose
	eventStats
)

type event struct {
	kind  eventKind
	conn  Conn
	data  []byte
	reply chan Stats
}

// Stats 是房间的只读快照，供 HTTP 查询接口使用
type Stats struct {
	RoomID             string               `json:"roomId"`
	Connections        int                  `json:"connections"`
	Users              []domain.UserSession `json:"users"`
	Closed             bool                 `json:"closed"`
	MinProtocolVersion int                  `json:"minProtocolVersion"`
	MessageCount       int                  `json:"messageCount"`
	FileName           *string              `json:"fileName"`
	PendingCleanupAt   *time.Time           `json:"pendingCleanupAt,omitempty"`
}

// Room 是单个房间的协调者
type Room struct {
	id      string
	store   repository.RoomStore
	opts    Options
	log     *logrus.Entry
	mailbox chan event
	done    chan struct{}

	// 以下字段只在 Run 的 goroutine 中访问
	conns              map[string]Conn
	registry           *registry
	closed             bool
	minProtocolVersion int
	hostUserID         string
	fileName           *string
	messages           []domain.ChatMessage
	lastTimestamp      int64
	chatLimiter        *ratelimit.FixedWindow
	drawLimiter        *ratelimit.FixedWindow
	cleanup            *cleanupScheduler
	closeTimer         *time.Timer
}

// New 创建房间，调用方需要另起 goroutine 执行 Run
func New(id string, store repository.RoomStore, wake repository.WakeScheduler, opts Options) *Room {
	if store == nil {
		panic("RoomStore cannot be nil for Room")
	}
	if wake == nil {
		panic("WakeScheduler cannot be nil for Room")
	}
	opts = opts.withDefaults()
	log := logrus.WithFields(logrus.Fields{"component": "room", "room_id": id})
	return &Room{
		id:          id,
		store:       store,
		opts:        opts,
		log:         log,
		mailbox:     make(chan event, opts.MailboxSize),
		done:        make(chan struct{}),
		conns:       make(map[string]Conn),
		registry:    newRegistry(),
		chatLimiter: ratelimit.NewFixedWindow(opts.ChatLimit, opts.ChatWindow, opts.Now),
		drawLimiter: ratelimit.NewFixedWindow(opts.DrawLimit, opts.DrawWindow, opts.Now),
		cleanup: &cleanupScheduler{
			roomID: id,
			wake:   wake,
			delay:  opts.CleanupDelay,
			now:    opts.Now,
			log:    log.WithField("component", "cleanup"),
		},
	}
}

// ID 返回房间 id
func (r *Room) ID() string { return r.id }

// Done 在 Run 退出后关闭
func (r *Room) Done() <-chan struct{} { return r.done }

// Run 处理 mailbox 直到 ctx 被取消
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	r.log.Debug("Room actor started")
	for {
		select {
		case <-ctx.Done():
			if r.closeTimer != nil {
				r.closeTimer.Stop()
			}
			r.log.Debug("Room actor stopped")
			return
		case ev := <-r.mailbox:
			r.handle(ctx, ev)
		}
	}
}

// Connect 通知房间有新连接接入
func (r *Room) Connect(conn Conn) bool {
	return r.post(event{kind: eventConnect, conn: conn})
}

// Message 投递一条原始入站消息
func (r *Room) Message(conn Conn, data []byte) bool {
	return r.post(event{kind: eventMessage, conn: conn, data: data})
}

// Disconnect 通知房间连接已断开
func (r *Room) Disconnect(conn Conn) bool {
	return r.post(event{kind: eventDisconnect, conn: conn})
}

// CleanupAlarm 投递清理唤醒
func (r *Room) CleanupAlarm() bool {
	return r.post(event{kind: eventAlarm})
}

// Stats 经由 mailbox 读取房间状态，返回时之前投递的事件都已处理完
func (r *Room) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := r.postContext(ctx, event{kind: eventStats, reply: reply}); err != nil {
		return Stats{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-r.done:
		return Stats{}, ErrRoomStopped
	}
}

func (r *Room) post(ev event) bool {
	return r.postContext(context.Background(), ev) == nil
}

func (r *Room) postContext(ctx context.Context, ev event) error {
	select {
	case <-r.done:
		return ErrRoomStopped
	default:
	}
	select {
	case r.mailbox <- ev:
		return nil
	case <-r.done:
		return ErrRoomStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) handle(ctx context.Context, ev event) {
	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("panic", fmt.Sprint(p)).Error("Recovered from panic in room handler")
			if ev.kind == eventMessage && ev.conn != nil {
				r.sendError(ev.conn, dto.ErrInvalidFormat)
			}
		}
	}()

	switch ev.kind {
	case eventConnect:
		r.onConnect(ctx, ev.conn)
	case eventMessage:
		r.dispatch(ctx, ev.conn, ev.data)
	case eventDisconnect:
		r.onDisconnect(ctx, ev.conn)
	case eventAlarm:
		r.onAlarm(ctx)
	case eventFinishClose:
		r.onFinishClose(ctx)
	case eventStats:
		ev.reply <- r.stats()
	}
}

func (r *Room) onConnect(ctx context.Context, conn Conn) {
	r.conns[conn.ID()] = conn
	r.log.WithField("conn_id", conn.ID()).Info("Connection attached")
	r.cleanup.cancel(ctx)
}

func (r *Room) onDisconnect(ctx context.Context, conn Conn) {
	if _, ok := r.conns[conn.ID()]; !ok {
		return
	}
	delete(r.conns, conn.ID())

	logCtx := r.log.WithField("conn_id", conn.ID())
	if userID, ok := r.registry.lookup(conn); ok {
		session, _ := r.registry.get(userID)
		r.registry.unregister(conn)
		logCtx.WithField("user_id", userID).Info("User left")
		r.systemMessage(session.UserName + " left")
		r.broadcastRoster()
	} else {
		logCtx.Info("Connection detached")
	}

	if len(r.conns) == 0 {
		r.cleanup.schedule(ctx)
	}
}

func (r *Room) onAlarm(ctx context.Context) {
	r.cleanup.fired()
	if len(r.conns) > 0 {
		r.log.WithField("connections", len(r.conns)).Debug("Cleanup alarm fired on a non-empty room, ignoring")
		return
	}
	r.wipe(ctx, "empty_room_timeout")
}

func (r *Room) onFinishClose(ctx context.Context) {
	r.closeTimer = nil
	for _, conn := range r.conns {
		conn.Close(dto.CloseNormal, dto.CloseReasonClosedByHost)
	}
	r.conns = make(map[string]Conn)
	r.cleanup.cancel(ctx)
	r.wipe(ctx, "closed_by_host")
}

// wipe 清空房间的持久化数据和内存状态
func (r *Room) wipe(ctx context.Context, reason string) {
	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()
	if err := r.store.DeleteAll(storeCtx, r.id); err != nil {
		r.log.WithError(err).WithField("reason", reason).Error("Failed to delete room data")
	}

	r.registry.reset()
	r.closed = false
	r.minProtocolVersion = 0
	r.hostUserID = ""
	r.fileName = nil
	r.messages = nil
	r.lastTimestamp = 0
	r.chatLimiter.Reset()
	r.drawLimiter.Reset()
	r.log.WithField("reason", reason).Info("Room state wiped")
}

func (r *Room) stats() Stats {
	return Stats{
		RoomID:             r.id,
		Connections:        len(r.conns),
		Users:              r.registry.all(),
		Closed:             r.closed,
		MinProtocolVersion: r.minProtocolVersion,
		MessageCount:       len(r.messages),
		FileName:           r.fileName,
		PendingCleanupAt:   r.cleanup.pending(),
	}
}

// nextTimestamp 返回毫秒时间戳，保证房间内单调不减
func (r *Room) nextTimestamp() int64 {
	ts := r.opts.Now().UnixMilli()
	if ts < r.lastTimestamp {
		ts = r.lastTimestamp
	}
	r.lastTimestamp = ts
	return ts
}

func (r *Room) appendMessage(session domain.UserSession, content string, kind domain.MessageType) domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:          uuid.NewString(),
		UserID:      session.UserID,
		UserName:    session.UserName,
		Content:     content,
		Timestamp:   r.nextTimestamp(),
		MessageType: kind,
	}
	r.messages = append(r.messages, msg)
	return msg
}

// systemMessage 记录并广播一条系统消息
func (r *Room) systemMessage(content string) {
	msg := r.appendMessage(domain.UserSession{UserID: "system", UserName: "System"}, content, domain.MessageTypeSystem)
	r.broadcast(dto.Frame{Type: dto.TypeChat, Content: msg}, nil)
}

func (r *Room) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.opts.StoreTimeout)
}
