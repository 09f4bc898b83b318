// Package wake 实现房间清理的单次延迟唤醒。
package wake

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/repository"
)

// WakeFunc 唤醒触发时的回调，通常是 hub.Wake
type WakeFunc func(ctx context.Context, roomID string) error

type localEntry struct {
	timer *time.Timer
	gen   uint64
}

// LocalScheduler 进程内定时器实现，进程重启后待触发的唤醒会丢失。
// 适合单实例部署和 STORE_DRIVER=memory。
type LocalScheduler struct {
	mu      sync.Mutex
	entries map[string]localEntry
	gen     uint64
	wake    WakeFunc
	log     *logrus.Entry
}

var _ repository.WakeScheduler = (*LocalScheduler)(nil)

// NewLocalScheduler 创建进程内调度器，需要 Bind 回调后才会真正唤醒
func NewLocalScheduler() *LocalScheduler {
	return &LocalScheduler{
		entries: make(map[string]localEntry),
		log:     logrus.WithField("component", "local_wake"),
	}
}

// Bind 设置唤醒回调
func (s *LocalScheduler) Bind(fn WakeFunc) {
	s.mu.Lock()
	s.wake = fn
	s.mu.Unlock()
}

// SetWake 替换房间已有的唤醒时间
func (s *LocalScheduler) SetWake(_ context.Context, roomID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[roomID]; ok {
		old.timer.Stop()
	}
	s.gen++
	gen := s.gen
	timer := time.AfterFunc(time.Until(at), func() { s.fire(roomID, gen) })
	s.entries[roomID] = localEntry{timer: timer, gen: gen}
	return nil
}

// CancelWake 取消不存在的唤醒不是错误
func (s *LocalScheduler) CancelWake(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[roomID]; ok {
		entry.timer.Stop()
		delete(s.entries, roomID)
	}
	return nil
}

// Pending 返回待触发的房间数
func (s *LocalScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop 停止所有定时器
func (s *LocalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for roomID, entry := range s.entries {
		entry.timer.Stop()
		delete(s.entries, roomID)
	}
}

func (s *LocalScheduler) fire(roomID string, gen uint64) {
	s.mu.Lock()
	entry, ok := s.entries[roomID]
	if !ok || entry.gen != gen {
		// 已被取消或替换
		s.mu.Unlock()
		return
	}
	delete(s.entries, roomID)
	fn := s.wake
	s.mu.Unlock()

	if fn == nil {
		s.log.WithField("room_id", roomID).Warn("Wake fired with no callback bound")
		return
	}
	if err := fn(context.Background(), roomID); err != nil {
		s.log.WithField("room_id", roomID).WithError(err).Error("Wake callback failed")
	}
}
