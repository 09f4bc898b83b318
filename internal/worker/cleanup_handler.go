package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/tasks"
)

// Waker 把到期的清理任务交回房间，由 hub 实现
type Waker interface {
	Wake(ctx context.Context, roomID string) error
}

// RoomCleanupHandler 处理 room:cleanup 任务
type RoomCleanupHandler struct {
	waker Waker
}

// NewRoomCleanupHandler 创建 Handler 实例
func NewRoomCleanupHandler(waker Waker) *RoomCleanupHandler {
	if waker == nil {
		panic("Waker cannot be nil for RoomCleanupHandler")
	}
	return &RoomCleanupHandler{waker: waker}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *RoomCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)

	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
	})

	payload, err := tasks.ParseRoomCleanupPayload(t.Payload())
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx = logCtx.WithField("room_id", payload.RoomID)
	if err := h.waker.Wake(ctx, payload.RoomID); err != nil {
		logCtx.WithError(err).Error("Failed to wake room for cleanup")
		return fmt.Errorf("failed to wake room %s: %w", payload.RoomID, err)
	}

	logCtx.Info("Room cleanup task delivered")
	return nil
}
