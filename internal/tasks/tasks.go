package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 定义任务类型常量
const (
	TypeRoomCleanup = "room:cleanup" // 空房间延迟清理
)

// QueueCleanup 清理任务使用的队列
const QueueCleanup = "default"

// RoomCleanupPayload 定义了房间清理任务的数据结构
type RoomCleanupPayload struct {
	RoomID string `json:"room_id"`
}

// CleanupTaskID 每个房间同一时间只有一个清理任务，用固定的 TaskID 去重
func CleanupTaskID(roomID string) string {
	return "cleanup:" + roomID
}

// NewRoomCleanupTask 创建一个新的房间清理任务
func NewRoomCleanupTask(roomID string, opts ...asynq.Option) (*asynq.Task, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room id is required for %s task", TypeRoomCleanup)
	}
	payloadBytes, err := json.Marshal(RoomCleanupPayload{RoomID: roomID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRoomCleanup, payloadBytes, opts...), nil
}

// ParseRoomCleanupPayload 解析任务 payload
func ParseRoomCleanupPayload(data []byte) (RoomCleanupPayload, error) {
	var payload RoomCleanupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, err
	}
	if payload.RoomID == "" {
		return payload, fmt.Errorf("missing room_id in %s payload", TypeRoomCleanup)
	}
	return payload, nil
}
