package room

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/domain"
	"collaborative-canvas/internal/dto"
	"collaborative-canvas/internal/repository"
)

const maxChatLength = 1000

var errMalformedFrame = errors.New("room: malformed frame")

// command 是解析后的入站命令，每种 type 对应一个具体类型
type command interface {
	name() string
}

type createCommand struct{ info dto.UserInfo }
type joinCommand struct{ info dto.UserInfo }
type chatCommand struct{ content json.RawMessage }
type updateBackgroundCommand struct {
	model     json.RawMessage
	broadcast bool
}
type updateMoveViewCommand struct {
	payload   dto.MoveViewContent
	raw       json.RawMessage
	broadcast bool
}
type deleteMoveViewCommand struct{ payload dto.MoveViewContent }
type userUpdateCommand struct{ payload dto.UserUpdateContent }
type clearCommand struct{ content json.RawMessage }
type drawingUpdateCommand struct {
	payload   dto.DrawingContent
	raw       json.RawMessage
	broadcast bool
}
type closeRoomCommand struct{}
type unknownCommand struct{ typ string }

func (createCommand) name() string           { return dto.TypeCreate }
func (joinCommand) name() string             { return dto.TypeJoin }
func (chatCommand) name() string             { return dto.TypeChat }
func (updateBackgroundCommand) name() string { return dto.TypeUpdateBackground }
func (updateMoveViewCommand) name() string   { return dto.TypeUpdateMoveView }
func (deleteMoveViewCommand) name() string   { return dto.TypeDeleteMoveView }
func (userUpdateCommand) name() string       { return dto.TypeUserUpdate }
func (clearCommand) name() string            { return dto.TypeClear }
func (drawingUpdateCommand) name() string    { return dto.TypeDrawingUpdate }
func (closeRoomCommand) name() string        { return dto.TypeCloseRoom }
func (c unknownCommand) name() string        { return c.typ }

// decodeCommand 解析外层 envelope 和各命令的 content
func decodeCommand(data []byte) (command, error) {
	var env dto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", errMalformedFrame)
	}

	switch env.Type {
	case dto.TypeCreate:
		var info dto.UserInfo
		if err := decodeContent(env.Content, &info); err != nil {
			return nil, err
		}
		return createCommand{info: info}, nil
	case dto.TypeJoin:
		var info dto.UserInfo
		if err := decodeContent(env.Content, &info); err != nil {
			return nil, err
		}
		return joinCommand{info: info}, nil
	case dto.TypeChat:
		return chatCommand{content: env.Content}, nil
	case dto.TypeUpdateBackground:
		return updateBackgroundCommand{model: env.Content, broadcast: env.Broadcast}, nil
	case dto.TypeUpdateMoveView:
		var payload dto.MoveViewContent
		if err := decodeContent(env.Content, &payload); err != nil {
			return nil, err
		}
		return updateMoveViewCommand{payload: payload, raw: env.Content, broadcast: env.Broadcast}, nil
	case dto.TypeDeleteMoveView:
		var payload dto.MoveViewContent
		if err := decodeContent(env.Content, &payload); err != nil {
			return nil, err
		}
		return deleteMoveViewCommand{payload: payload}, nil
	case dto.TypeUserUpdate:
		var payload dto.UserUpdateContent
		if err := decodeContent(env.Content, &payload); err != nil {
			return nil, err
		}
		return userUpdateCommand{payload: payload}, nil
	case dto.TypeClear:
		return clearCommand{content: env.Content}, nil
	case dto.TypeDrawingUpdate:
		var payload dto.DrawingContent
		if err := decodeContent(env.Content, &payload); err != nil {
			return nil, err
		}
		return drawingUpdateCommand{payload: payload, raw: env.Content, broadcast: env.Broadcast}, nil
	case dto.TypeCloseRoom:
		return closeRoomCommand{}, nil
	default:
		return unknownCommand{typ: env.Type}, nil
	}
}

// decodeContent content 缺失时保留零值，由各命令自己校验必填字段
func decodeContent(raw json.RawMessage, v interface{}) error {
	if isEmptyContent(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errMalformedFrame, err)
	}
	return nil
}

func isEmptyContent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (r *Room) dispatch(ctx context.Context, conn Conn, data []byte) {
	cmd, err := decodeCommand(data)
	if err != nil {
		r.log.WithField("conn_id", conn.ID()).WithError(err).Warn("Invalid frame")
		r.sendError(conn, dto.ErrInvalidFormat)
		return
	}

	switch c := cmd.(type) {
	case createCommand:
		r.handleCreate(ctx, conn, c)
	case joinCommand:
		r.handleJoin(ctx, conn, c)
	case chatCommand:
		r.handleChat(conn, c)
	case updateBackgroundCommand:
		r.handleUpdateBackground(ctx, conn, c)
	case updateMoveViewCommand:
		r.handleUpdateMoveView(ctx, conn, c)
	case deleteMoveViewCommand:
		r.handleDeleteMoveView(ctx, conn, c)
	case userUpdateCommand:
		r.handleUserUpdate(conn, c)
	case clearCommand:
		r.broadcast(dto.Frame{Type: dto.TypeClear, Content: c.content}, nil)
	case drawingUpdateCommand:
		r.handleDrawingUpdate(ctx, conn, c)
	case closeRoomCommand:
		r.handleCloseRoom(conn)
	default:
		r.log.WithFields(logrus.Fields{"conn_id": conn.ID(), "command": cmd.name()}).Warn("Unknown command type, ignoring")
	}
}

func hasUserInfo(info dto.UserInfo) bool {
	return strings.TrimSpace(info.UserID) != "" &&
		strings.TrimSpace(info.UserName) != "" &&
		strings.TrimSpace(info.Role) != ""
}

// sessionRole 房间已有房主时，其他用户声明的 Host 降级为 Editor
func (r *Room) sessionRole(userID string, role domain.Role) domain.Role {
	if role == domain.RoleHost && r.hostUserID != "" && r.hostUserID != userID {
		return domain.RoleEditor
	}
	return role
}

func (r *Room) newSession(info dto.UserInfo, role domain.Role) domain.UserSession {
	return domain.UserSession{
		UserID:          info.UserID,
		UserName:        info.UserName,
		Role:            r.sessionRole(info.UserID, role),
		RoomID:          r.id,
		ProtocolVersion: resolveClientVersion(info.ProtocolVersion),
		Platform:        info.Platform,
		AppVersion:      info.AppVersion,
	}
}

func (r *Room) handleCreate(ctx context.Context, conn Conn, c createCommand) {
	logCtx := r.log.WithFields(logrus.Fields{"conn_id": conn.ID(), "command": c.name(), "user_id": c.info.UserID})
	if !hasUserInfo(c.info) {
		r.sendError(conn, dto.ErrMissingUserInfo)
		return
	}
	role, _ := domain.ParseRole(c.info.Role)
	if role != domain.RoleHost || r.closed {
		logCtx.Warn("Create rejected")
		r.sendError(conn, dto.ErrRoomIsClosed)
		return
	}

	fresh := r.registry.len() == 0
	if fresh {
		// 没有在线用户，残留数据属于上一次会话
		r.wipe(ctx, "fresh_create")
	}
	session := r.newSession(c.info, role)
	if !fresh && !isCompatible(session.ProtocolVersion, r.minProtocolVersion) {
		// 房间已在使用中，create 和 join 走同样的版本门槛
		r.rejectOutdated(logCtx, conn, session)
		return
	}
	if r.minProtocolVersion == 0 {
		r.minProtocolVersion = session.ProtocolVersion
	}
	if r.hostUserID == "" {
		r.hostUserID = session.UserID
	}
	if c.info.FileName != nil {
		name := *c.info.FileName
		r.fileName = &name
	}

	r.registry.register(conn, session)
	logCtx.WithField("min_protocol_version", r.minProtocolVersion).Info("Room created")
	r.send(conn, dto.Frame{Type: dto.TypeInit, Content: r.snapshot(ctx)})
	r.systemMessage(session.UserName + " joined")
	r.broadcastRoster()
}

func (r *Room) handleJoin(ctx context.Context, conn Conn, c joinCommand) {
	logCtx := r.log.WithFields(logrus.Fields{"conn_id": conn.ID(), "command": c.name(), "user_id": c.info.UserID})
	role, roleOK := domain.ParseRole(c.info.Role)
	if r.closed || (r.registry.len() == 0 && role != domain.RoleHost) {
		logCtx.WithField("closed", r.closed).Info("Join rejected, room is closed")
		r.sendError(conn, dto.ErrRoomIsClosed)
		conn.Close(dto.CloseRoomClosed, dto.CloseReasonRoomClosed)
		return
	}
	if !hasUserInfo(c.info) || !roleOK {
		r.sendError(conn, dto.ErrMissingUserInfo)
		return
	}

	session := r.newSession(c.info, role)
	if !isCompatible(session.ProtocolVersion, r.minProtocolVersion) {
		r.rejectOutdated(logCtx, conn, session)
		return
	}

	r.registry.register(conn, session)
	logCtx.WithField("role", session.Role).Info("User joined")
	r.send(conn, dto.Frame{Type: dto.TypeInit, Content: r.snapshot(ctx)})
	r.systemMessage(session.UserName + " joined")
	r.broadcastRoster()
}

// rejectOutdated 客户端协议版本低于房间要求，回复 upgrade_required 并断开
func (r *Room) rejectOutdated(logCtx *logrus.Entry, conn Conn, session domain.UserSession) {
	logCtx.WithFields(logrus.Fields{
		"client_version": session.ProtocolVersion,
		"room_version":   r.minProtocolVersion,
	}).Info("Rejected, client protocol too old")
	r.sendError(conn, dto.ErrUpgradeRequired)
	conn.Close(dto.CloseUpgradeRequired, dto.CloseReasonUpgradeRequired)
}

// snapshot 组装 init 快照。读存储失败时退化为空值。
func (r *Room) snapshot(ctx context.Context) dto.InitContent {
	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()

	messages := make([]domain.ChatMessage, len(r.messages))
	copy(messages, r.messages)

	snap := dto.InitContent{
		Messages:           messages,
		Users:              r.registry.all(),
		FileName:           r.fileName,
		MinProtocolVersion: r.minProtocolVersion,
		MoveModels:         []domain.MoveViewMetadata{},
		DrawingModels:      []domain.DrawingMutation{},
	}

	if values, err := r.store.List(storeCtx, r.id, domain.MoveViewKeyPrefix); err != nil {
		r.log.WithError(err).Error("Failed to list move views")
	} else {
		for _, v := range values {
			var m domain.MoveViewMetadata
			if err := json.Unmarshal(v, &m); err != nil {
				r.log.WithError(err).Warn("Skipping corrupt move view record")
				continue
			}
			snap.MoveModels = append(snap.MoveModels, m)
		}
	}

	if bg, err := r.store.Get(storeCtx, r.id, domain.BackgroundKey); err == nil {
		snap.BackgroundModel = json.RawMessage(bg)
	} else if !errors.Is(err, repository.ErrNotFound) {
		r.log.WithError(err).Error("Failed to load background")
	}

	if values, err := r.store.List(storeCtx, r.id, domain.DrawingKeyPrefix); err != nil {
		r.log.WithError(err).Error("Failed to list drawings")
	} else {
		for _, v := range values {
			var d domain.DrawingMutation
			if err := json.Unmarshal(v, &d); err != nil {
				r.log.WithError(err).Warn("Skipping corrupt drawing record")
				continue
			}
			snap.DrawingModels = append(snap.DrawingModels, d)
		}
	}
	return snap
}

// joinedUser 返回连接对应的会话；未加入时回复 errMsg
func (r *Room) joinedUser(conn Conn, errMsg string) (domain.UserSession, bool) {
	userID, ok := r.registry.lookup(conn)
	if !ok {
		r.sendError(conn, errMsg)
		return domain.UserSession{}, false
	}
	session, ok := r.registry.get(userID)
	if !ok {
		r.sendError(conn, errMsg)
		return domain.UserSession{}, false
	}
	return session, true
}

// drawingAllowed 绘图类命令共用的前置检查：已加入 + 限流
func (r *Room) drawingAllowed(conn Conn) (domain.UserSession, bool) {
	session, ok := r.joinedUser(conn, dto.ErrUserNotJoined)
	if !ok {
		return session, false
	}
	if !r.drawLimiter.Allow(session.UserID) {
		r.sendError(conn, dto.ErrRateLimited)
		return session, false
	}
	return session, true
}

func (r *Room) handleChat(conn Conn, c chatCommand) {
	session, ok := r.joinedUser(conn, dto.ErrUserNotJoined)
	if !ok {
		return
	}
	if !r.chatLimiter.Allow(session.UserID) {
		r.sendError(conn, dto.ErrRateLimited)
		return
	}

	var content string
	if isEmptyContent(c.content) || json.Unmarshal(c.content, &content) != nil || strings.TrimSpace(content) == "" {
		r.sendError(conn, dto.ErrInvalidFormat)
		return
	}
	if utf8.RuneCountInString(content) > maxChatLength {
		r.sendError(conn, dto.ErrMessageTooLong)
		return
	}

	msg := r.appendMessage(session, html.EscapeString(content), domain.MessageTypeText)
	r.broadcast(dto.Frame{Type: dto.TypeChat, Content: msg}, nil)
}

func (r *Room) handleUpdateBackground(ctx context.Context, conn Conn, c updateBackgroundCommand) {
	if _, ok := r.drawingAllowed(conn); !ok {
		return
	}
	if isEmptyContent(c.model) {
		r.sendError(conn, dto.ErrInvalidFormat)
		return
	}
	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()
	if err := r.store.Put(storeCtx, r.id, domain.BackgroundKey, c.model); err != nil {
		r.log.WithError(err).Error("Failed to persist background")
	}
	if c.broadcast {
		r.broadcast(dto.Frame{Type: dto.TypeUpdateBackground, Content: c.model}, conn)
	}
}

func (r *Room) handleUpdateMoveView(ctx context.Context, conn Conn, c updateMoveViewCommand) {
	if _, ok := r.drawingAllowed(conn); !ok {
		return
	}
	if c.payload.ID == "" {
		r.sendError(conn, dto.ErrInvalidFormat)
		return
	}
	record := domain.MoveViewMetadata{ID: c.payload.ID, Model: c.payload.Model, Timestamp: r.nextTimestamp()}
	r.persist(ctx, domain.MoveViewKey(record.ID), record)
	if c.broadcast {
		r.broadcast(dto.Frame{Type: dto.TypeUpdateMoveView, Content: c.raw}, conn)
	}
}

func (r *Room) handleDeleteMoveView(ctx context.Context, conn Conn, c deleteMoveViewCommand) {
	if _, ok := r.drawingAllowed(conn); !ok {
		return
	}
	if c.payload.ID == "" {
		r.sendError(conn, dto.ErrInvalidFormat)
		return
	}
	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()
	if err := r.store.Delete(storeCtx, r.id, domain.MoveViewKey(c.payload.ID)); err != nil {
		r.log.WithError(err).WithField("move_view_id", c.payload.ID).Error("Failed to delete move view")
	}
	r.broadcast(dto.Frame{Type: dto.TypeDeleteMoveView, Content: dto.MoveViewContent{ID: c.payload.ID}}, conn)
}

func (r *Room) handleDrawingUpdate(ctx context.Context, conn Conn, c drawingUpdateCommand) {
	if _, ok := r.drawingAllowed(conn); !ok {
		return
	}
	action, ok := domain.ParseDrawingAction(c.payload.Action)
	if !ok || (action != domain.DrawingClearStrokes && c.payload.ID == "") {
		r.sendError(conn, dto.ErrDrawingUpdateFailed)
		return
	}

	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()
	var err error
	if action == domain.DrawingClearStrokes {
		err = r.store.DeletePrefix(storeCtx, r.id, domain.DrawingKeyPrefix)
	} else {
		record := domain.DrawingMutation{ID: c.payload.ID, Action: action, Model: c.payload.Model, Timestamp: r.nextTimestamp()}
		var data []byte
		if data, err = json.Marshal(record); err == nil {
			err = r.store.Put(storeCtx, r.id, domain.DrawingKey(record.ID), data)
		}
	}
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"drawing_id": c.payload.ID, "action": action}).Error("Failed to persist drawing update")
		r.sendError(conn, dto.ErrDrawingUpdateFailed)
		return
	}

	if c.broadcast {
		r.broadcast(dto.Frame{Type: dto.TypeDrawingUpdate, Content: c.raw}, conn)
	}
}

func (r *Room) handleUserUpdate(conn Conn, c userUpdateCommand) {
	userID, ok := r.registry.lookup(conn)
	if !ok {
		r.sendError(conn, dto.ErrUserNotFound)
		return
	}
	session, ok := r.registry.get(userID)
	if !ok {
		r.sendError(conn, dto.ErrSessionNotFound)
		return
	}
	newName := strings.TrimSpace(c.payload.UserName)
	if newName == "" {
		r.sendError(conn, dto.ErrMissingUserInfo)
		return
	}

	r.registry.rename(userID, newName)
	r.log.WithFields(logrus.Fields{"user_id": userID, "old_name": session.UserName, "new_name": newName}).Info("User renamed")
	r.systemMessage(session.UserName + " is now " + newName)
	r.broadcastRoster()
}

func (r *Room) handleCloseRoom(conn Conn) {
	session, ok := r.joinedUser(conn, dto.ErrOnlyHostCanDo)
	if !ok {
		return
	}
	if session.Role != domain.RoleHost {
		r.sendError(conn, dto.ErrOnlyHostCanDo)
		return
	}
	if r.closed {
		r.sendError(conn, dto.ErrRoomIsClosed)
		return
	}

	r.closed = true
	r.log.WithField("user_id", session.UserID).Info("Room closing by host")
	// 宽限期后所有接入的连接都会被断开，所以未加入的连接也要收到通知
	r.broadcastAttached(dto.Frame{Type: dto.TypeCloseRoom, Content: dto.CloseRoomContent{Reason: dto.CloseReasonClosedByHost}})

	// 宽限期结束后由 mailbox 里的 finishClose 事件真正断开连接并清空状态
	r.closeTimer = time.AfterFunc(r.opts.CloseGrace, func() {
		r.post(event{kind: eventFinishClose})
	})
}

// persist 序列化后写入；失败只记录日志
func (r *Room) persist(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		r.log.WithError(err).WithField("key", key).Error("Failed to marshal record")
		return
	}
	storeCtx, cancel := r.storeContext(ctx)
	defer cancel()
	if err := r.store.Put(storeCtx, r.id, key, data); err != nil {
		r.log.WithError(err).WithField("key", key).Error("Failed to persist record")
	}
}
