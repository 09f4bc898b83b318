package domain

import (
	"encoding/json"
	"strings"
)

// 持久化 key 的命名空间。每个 id 最多只有一条记录（后写覆盖）。
const (
	MoveViewKeyPrefix = "moveview_"
	DrawingKeyPrefix  = "drawing_"
	BackgroundKey     = "background"
)

// MoveViewKey 返回图层记录的存储 key
func MoveViewKey(id string) string { return MoveViewKeyPrefix + id }

// DrawingKey 返回笔画记录的存储 key
func DrawingKey(id string) string { return DrawingKeyPrefix + id }

// MoveViewMetadata 描述一个可移动图层的位置信息。
// Model 是客户端定义的数据，服务端不做解析。
type MoveViewMetadata struct {
	ID        string          `json:"id"`
	Model     json.RawMessage `json:"model"`
	Timestamp int64           `json:"timestamp"`
}

// DrawingAction 是绘图操作的类型
type DrawingAction string

const (
	DrawingAddStrokes    DrawingAction = "addStrokes"
	DrawingMoveStrokes   DrawingAction = "moveStrokes"
	DrawingRemoveStrokes DrawingAction = "removeStrokes"
	DrawingClearStrokes  DrawingAction = "clearStrokes"
)

// ParseDrawingAction 校验并规范化客户端传入的 action（大小写不敏感）。
func ParseDrawingAction(s string) (DrawingAction, bool) {
	switch strings.ToLower(s) {
	case "addstrokes":
		return DrawingAddStrokes, true
	case "movestrokes":
		return DrawingMoveStrokes, true
	case "removestrokes":
		return DrawingRemoveStrokes, true
	case "clearstrokes":
		return DrawingClearStrokes, true
	default:
		return "", false
	}
}

// DrawingMutation 是一条持久化的笔画操作记录。
type DrawingMutation struct {
	ID        string          `json:"id"`
	Action    DrawingAction   `json:"action"`
	Model     json.RawMessage `json:"model"`
	Timestamp int64           `json:"timestamp"`
}
