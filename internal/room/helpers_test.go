package room

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"collaborative-canvas/internal/dto"
	"collaborative-canvas/internal/repository"
)

const testRoomID = "room-1"

type recordedFrame struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// fakeConn 记录房间发给它的所有 frame 和关闭动作
type fakeConn struct {
	id string

	mu      sync.Mutex
	events  []string // 按发生顺序记录 frame type，关闭记为 "<close>"
	frames  []recordedFrame
	closed  bool
	code    int
	reason  string
	sendErr error
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	var f recordedFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.frames = append(c.frames, f)
	c.events = append(c.events, f.Type)
	return nil
}

func (c *fakeConn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.code = code
	c.reason = reason
	c.events = append(c.events, "<close>")
}

func (c *fakeConn) framesOf(typ string) []recordedFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []recordedFrame
	for _, f := range c.frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) errors() []string {
	var out []string
	for _, f := range c.framesOf(dto.TypeError) {
		var msg string
		_ = json.Unmarshal(f.Content, &msg)
		out = append(out, msg)
	}
	return out
}

func (c *fakeConn) lastError() string {
	errs := c.errors()
	if len(errs) == 0 {
		return ""
	}
	return errs[len(errs)-1]
}

func (c *fakeConn) closeState() (bool, int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.code, c.reason
}

func (c *fakeConn) eventLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// fakeWake 记录 SetWake / CancelWake 调用
type fakeWake struct {
	mu      sync.Mutex
	sets    []time.Time
	cancels int
	setErr  error
}

var _ repository.WakeScheduler = (*fakeWake)(nil)

func (w *fakeWake) SetWake(_ context.Context, _ string, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.setErr != nil {
		return w.setErr
	}
	w.sets = append(w.sets, at)
	return nil
}

func (w *fakeWake) CancelWake(_ context.Context, _ string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancels++
	return nil
}

func (w *fakeWake) counts() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sets), w.cancels
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock { return &testClock{t: time.Unix(1700000000, 0)} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// startRoom 启动房间 actor，测试结束时停止
func startRoom(t *testing.T, store repository.RoomStore, opts Options) (*Room, *fakeWake) {
	t.Helper()
	wake := &fakeWake{}
	r := New(testRoomID, store, wake, opts)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-r.Done()
	})
	return r, wake
}

// barrier 等待之前投递的事件全部处理完
func barrier(t *testing.T, r *Room) Stats {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	return stats
}

func attach(t *testing.T, r *Room, id string) *fakeConn {
	t.Helper()
	conn := newFakeConn(id)
	require.True(t, r.Connect(conn))
	return conn
}

func sendFrame(t *testing.T, r *Room, conn Conn, typ string, content interface{}, broadcast bool) {
	t.Helper()
	frame := map[string]interface{}{"type": typ}
	if content != nil {
		frame["content"] = content
	}
	if broadcast {
		frame["broadcast"] = true
	}
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	require.True(t, r.Message(conn, data))
}

func userInfo(userID, userName, role string) map[string]interface{} {
	return map[string]interface{}{"userId": userID, "userName": userName, "role": role}
}

func decodeInit(t *testing.T, conn *fakeConn) dto.InitContent {
	t.Helper()
	frames := conn.framesOf(dto.TypeInit)
	require.NotEmpty(t, frames, "expected an init frame")
	var snap dto.InitContent
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Content, &snap))
	return snap
}
