package repository

import (
	"context"
	"time"
)

// RoomStore 定义了房间持久化状态的键值存储操作。
// 每个房间的 key 空间相互独立，实现必须按 roomID 隔离，不允许跨房间读写。
type RoomStore interface {
	// Get 读取单个 key。key 不存在时返回 ErrNotFound。
	Get(ctx context.Context, roomID, key string) ([]byte, error)

	// Put 写入（覆盖）单个 key。
	Put(ctx context.Context, roomID, key string, value []byte) error

	// Delete 删除单个 key。key 不存在不是错误。
	Delete(ctx context.Context, roomID, key string) error

	// DeletePrefix 删除所有以 prefix 开头的 key。
	DeletePrefix(ctx context.Context, roomID, prefix string) error

	// List 按 key 的字典序返回所有以 prefix 开头的 value。
	List(ctx context.Context, roomID, prefix string) ([][]byte, error)

	// DeleteAll 清空房间的全部 key。
	DeleteAll(ctx context.Context, roomID string) error
}

// WakeScheduler 是单次延迟唤醒原语。每个房间同时最多有一个待触发的唤醒，
// 再次 SetWake 会替换之前的时间。触发时由实现回调房间的清理入口。
type WakeScheduler interface {
	SetWake(ctx context.Context, roomID string, at time.Time) error
	CancelWake(ctx context.Context, roomID string) error
}
