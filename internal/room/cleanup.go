package room

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/repository"
)

// cleanupScheduler 在房间没有任何连接时预约一次延迟清理，
// 容忍移动端切后台之类的短暂断线。
type cleanupScheduler struct {
	roomID    string
	wake      repository.WakeScheduler
	delay     time.Duration
	now       func() time.Time
	pendingAt *time.Time
	log       *logrus.Entry
}

// schedule 已有待触发的清理时不做任何事。预约失败只记录日志。
func (c *cleanupScheduler) schedule(ctx context.Context) {
	if c.pendingAt != nil {
		return
	}
	at := c.now().Add(c.delay)
	if err := c.wake.SetWake(ctx, c.roomID, at); err != nil {
		c.log.WithError(err).Error("Failed to schedule room cleanup")
		return
	}
	c.pendingAt = &at
	c.log.WithField("cleanup_at", at).Info("Room cleanup scheduled")
}

// cancel 尽力取消；取消失败也没关系，触发时会重新检查房间是否为空
func (c *cleanupScheduler) cancel(ctx context.Context) {
	if c.pendingAt == nil {
		return
	}
	c.pendingAt = nil
	if err := c.wake.CancelWake(ctx, c.roomID); err != nil {
		c.log.WithError(err).Warn("Failed to cancel room cleanup")
		return
	}
	c.log.Debug("Room cleanup cancelled")
}

func (c *cleanupScheduler) fired() {
	c.pendingAt = nil
}

func (c *cleanupScheduler) pending() *time.Time {
	if c.pendingAt == nil {
		return nil
	}
	at := *c.pendingAt
	return &at
}
