package wake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/repository"
	"collaborative-canvas/internal/tasks"
)

// AsynqScheduler 把唤醒保存为 asynq 的定时任务，进程重启后仍然有效。
// 任务到期后由 worker 的 room:cleanup 处理器回调 hub。
type AsynqScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
	maxRetry  int
	log       *logrus.Entry
}

var _ repository.WakeScheduler = (*AsynqScheduler)(nil)

// NewAsynqScheduler 创建基于 asynq 的调度器
func NewAsynqScheduler(client *asynq.Client, inspector *asynq.Inspector) *AsynqScheduler {
	if client == nil || inspector == nil {
		panic("asynq client and inspector cannot be nil for AsynqScheduler")
	}
	return &AsynqScheduler{
		client:    client,
		inspector: inspector,
		queue:     tasks.QueueCleanup,
		maxRetry:  3,
		log:       logrus.WithField("component", "asynq_wake"),
	}
}

// SetWake 以固定 TaskID 入队；已存在同名任务时先删除再入队，实现替换语义
func (s *AsynqScheduler) SetWake(ctx context.Context, roomID string, at time.Time) error {
	task, err := tasks.NewRoomCleanupTask(roomID)
	if err != nil {
		return err
	}
	taskID := tasks.CleanupTaskID(roomID)
	opts := []asynq.Option{
		asynq.TaskID(taskID),
		asynq.ProcessAt(at),
		asynq.Queue(s.queue),
		asynq.MaxRetry(s.maxRetry),
	}

	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		if derr := s.inspector.DeleteTask(s.queue, taskID); derr != nil && !isMissing(derr) {
			return fmt.Errorf("asynq: replace cleanup task for room %s: %w", roomID, derr)
		}
		info, err = s.client.EnqueueContext(ctx, task, opts...)
	}
	if err != nil {
		return fmt.Errorf("asynq: schedule cleanup for room %s: %w", roomID, err)
	}

	s.log.WithFields(logrus.Fields{
		"room_id":    roomID,
		"task_id":    info.ID,
		"process_at": info.NextProcessAt,
	}).Debug("Cleanup task enqueued")
	return nil
}

// CancelWake 删除待执行的清理任务；任务不存在不是错误
func (s *AsynqScheduler) CancelWake(_ context.Context, roomID string) error {
	err := s.inspector.DeleteTask(s.queue, tasks.CleanupTaskID(roomID))
	if err != nil && !isMissing(err) {
		return fmt.Errorf("asynq: cancel cleanup for room %s: %w", roomID, err)
	}
	return nil
}

func isMissing(err error) bool {
	return errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound)
}
