package domain

import "strings"

// Role 表示用户在房间内的角色。
type Role string

const (
	RoleHost   Role = "Host"   // 房间创建者，只在 create 时确定
	RoleEditor Role = "Editor" // 可以编辑画布
	RoleViewer Role = "Viewer" // 只读
)

// ParseRole 解析客户端传入的角色字符串（大小写不敏感）。
// 无法识别时返回 false。
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "host":
		return RoleHost, true
	case "editor":
		return RoleEditor, true
	case "viewer":
		return RoleViewer, true
	default:
		return "", false
	}
}

// UserSession 表示房间花名册中的一个参与者。
type UserSession struct {
	UserID          string `json:"userId"`
	UserName        string `json:"userName"`
	Role            Role   `json:"role"`
	RoomID          string `json:"roomId"`
	ProtocolVersion int    `json:"protocolVersion"`
	Platform        string `json:"platform,omitempty"`
	AppVersion      string `json:"appVersion,omitempty"`
}

// MessageType 区分普通聊天消息和系统消息
type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeSystem MessageType = "system"
)

// ChatMessage 是房间消息日志中的一条记录。
// Timestamp 为服务端分配的毫秒时间戳，同一房间内单调不减。
type ChatMessage struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	UserName    string      `json:"userName"`
	Content     string      `json:"content"`
	Timestamp   int64       `json:"timestamp"`
	MessageType MessageType `json:"messageType"`
}
