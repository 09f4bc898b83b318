package dto

import (
	"encoding/json"

	"collaborative-canvas/internal/domain"
)

// 客户端命令类型 (入站 frame 的 type 字段)
const (
	TypeCreate           = "create"
	TypeJoin             = "join"
	TypeChat             = "chat"
	TypeUpdateBackground = "updateBackground"
	TypeUpdateMoveView   = "updateMoveView"
	TypeDeleteMoveView   = "deleteMoveView"
	TypeUserUpdate       = "userUpdate"
	TypeClear            = "clear"
	TypeDrawingUpdate    = "drawingUpdate"
	TypeCloseRoom        = "closeRoom"
)

// 只出现在出站 frame 中的类型
const (
	TypeInit  = "init"
	TypeUsers = "users"
	TypeError = "error"
)

// Envelope 是所有入站消息的外层结构。
// Broadcast 仅对 updateBackground / updateMoveView / drawingUpdate 有意义。
type Envelope struct {
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content,omitempty"`
	Broadcast bool            `json:"broadcast,omitempty"`
}

// Frame 是所有出站消息的结构
type Frame struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content,omitempty"`
}

// UserInfo 是 create / join 命令的 content
type UserInfo struct {
	UserID          string      `json:"userId"`
	UserName        string      `json:"userName"`
	Role            string      `json:"role"`
	ProtocolVersion interface{} `json:"protocolVersion,omitempty"`
	Platform        string      `json:"platform,omitempty"`
	AppVersion      string      `json:"appVersion,omitempty"`
	FileName        *string     `json:"fileName,omitempty"`
}

// MoveViewContent 是 updateMoveView / deleteMoveView 的 content
type MoveViewContent struct {
	ID    string          `json:"id"`
	Model json.RawMessage `json:"model,omitempty"`
}

// DrawingContent 是 drawingUpdate 的 content
type DrawingContent struct {
	ID     string          `json:"id"`
	Action string          `json:"action"`
	Model  json.RawMessage `json:"model,omitempty"`
}

// UserUpdateContent 是 userUpdate 的 content
type UserUpdateContent struct {
	UserName string `json:"userName"`
}

// InitContent 是 join/create 成功后回复给客户端的完整快照
type InitContent struct {
	Messages           []domain.ChatMessage      `json:"messages"`
	Users              []domain.UserSession      `json:"users"`
	FileName           *string                   `json:"fileName"`
	MinProtocolVersion int                       `json:"minProtocolVersion"`
	MoveModels         []domain.MoveViewMetadata `json:"moveModels"`
	BackgroundModel    json.RawMessage           `json:"backgroundModel"`
	DrawingModels      []domain.DrawingMutation  `json:"drawingModels"`
}

// CloseRoomContent 是 closeRoom 广播的 content
type CloseRoomContent struct {
	Reason string `json:"reason"`
}

// ErrorFrame 构造一个 error 类型的出站消息
func ErrorFrame(message string) Frame {
	return Frame{Type: TypeError, Content: message}
}
