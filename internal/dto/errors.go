package dto

// 发送给客户端的错误文本。这些字符串是与已发布客户端的兼容性约定，不要修改。
const (
	ErrMissingUserInfo     = "Missing user information"
	ErrUserNotFound        = "User not found"
	ErrSessionNotFound     = "User session not found"
	ErrUserNotJoined       = "User not joined"
	ErrDrawingUpdateFailed = "Failed to process drawing update"
	ErrOnlyHostCanDo       = "Only host can close the room"
	ErrRoomIsClosed        = "Room is closed"
	ErrInvalidFormat       = "invalid_format"
	ErrRateLimited         = "rate_limited"
	ErrUpgradeRequired     = "upgrade_required"
	ErrMessageTooLong      = "message_too_long"
)

// WebSocket 关闭码和原因
const (
	CloseNormal          = 1000
	CloseRoomClosed      = 4003
	CloseUpgradeRequired = 4426

	CloseReasonClosedByHost    = "closed by host"
	CloseReasonRoomClosed      = "room_closed"
	CloseReasonUpgradeRequired = "upgrade_required"
)
