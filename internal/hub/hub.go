package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/repository"
	"collaborative-canvas/internal/room"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// 笔画数据可能比较大
	maxMessageSize = 1 << 20

	sendBufferSize = 256
)

// ErrHubClosed Hub 已经关闭，不再创建房间
var ErrHubClosed = errors.New("hub: closed")

// Hub 是房间目录：按 roomID 懒创建房间 actor，保证同一个 id 只有一个实例。
// 它不参与任何房间内部逻辑。
type Hub struct {
	rooms   map[string]*room.Room
	roomsMu sync.Mutex
	closed  bool

	store repository.RoomStore
	wake  repository.WakeScheduler
	opts  room.Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(store repository.RoomStore, wake repository.WakeScheduler, opts room.Options) *Hub {
	if store == nil {
		panic("RoomStore cannot be nil for Hub")
	}
	if wake == nil {
		panic("WakeScheduler cannot be nil for Hub")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		rooms:  make(map[string]*room.Room),
		store:  store,
		wake:   wake,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Room 返回房间实例，不存在则创建并启动
func (h *Hub) Room(roomID string) (*room.Room, error) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	if r, ok := h.rooms[roomID]; ok {
		return r, nil
	}

	r := room.New(roomID, h.store, h.wake, h.opts)
	h.rooms[roomID] = r
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		r.Run(h.ctx)
	}()
	logrus.WithFields(logrus.Fields{"component": "hub", "room_id": roomID}).Info("Room actor created")
	return r, nil
}

// Lookup 只查找已加载的房间
func (h *Hub) Lookup(roomID string) (*room.Room, bool) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	r, ok := h.rooms[roomID]
	return r, ok
}

// ActiveRoomIDs 返回已加载的房间 id，按字典序
func (h *Hub) ActiveRoomIDs() []string {
	h.roomsMu.Lock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.roomsMu.Unlock()
	sort.Strings(ids)
	return ids
}

// Wake 把清理唤醒投递给已加载的房间，由房间自己判断是否为空。
// 房间未加载时（例如进程重启后）说明没有连接，直接清理残留数据，不创建 actor。
func (h *Hub) Wake(ctx context.Context, roomID string) error {
	h.roomsMu.Lock()
	if h.closed {
		h.roomsMu.Unlock()
		return ErrHubClosed
	}
	if r, ok := h.rooms[roomID]; ok {
		h.roomsMu.Unlock()
		if !r.CleanupAlarm() {
			return room.ErrRoomStopped
		}
		return nil
	}
	// 持锁清理，避免同时有连接加载这个房间
	defer h.roomsMu.Unlock()

	storeCtx, cancel := context.WithTimeout(ctx, h.storeTimeout())
	defer cancel()
	if err := h.store.DeleteAll(storeCtx, roomID); err != nil {
		return fmt.Errorf("hub: wipe unloaded room %s: %w", roomID, err)
	}
	logrus.WithFields(logrus.Fields{"component": "hub", "room_id": roomID}).Info("Wiped data of unloaded room")
	return nil
}

func (h *Hub) storeTimeout() time.Duration {
	if h.opts.StoreTimeout > 0 {
		return h.opts.StoreTimeout
	}
	return room.DefaultOptions().StoreTimeout
}

// Shutdown 停止所有房间 actor 并等待退出
func (h *Hub) Shutdown() {
	h.roomsMu.Lock()
	h.closed = true
	h.roomsMu.Unlock()

	h.cancel()
	h.wg.Wait()
	logrus.WithField("component", "hub").Info("All room actors stopped")
}
