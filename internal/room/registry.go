package room

import (
	"sort"

	"collaborative-canvas/internal/domain"
)

type registryEntry struct {
	conn    Conn
	session domain.UserSession
}

// registry 维护 连接 -> userId 和 userId -> 会话 的双向映射。
// 两个方向始终一致：一个 userId 同时只属于一个连接。
type registry struct {
	byConn map[string]string
	byUser map[string]*registryEntry
}

func newRegistry() *registry {
	return &registry{
		byConn: make(map[string]string),
		byUser: make(map[string]*registryEntry),
	}
}

// register 绑定连接和会话。
// 同一连接之前绑定的其他用户会被移除；同一用户之前的连接被挤掉（不关闭，只是不再收到广播）。
func (r *registry) register(conn Conn, session domain.UserSession) {
	connID := conn.ID()
	if prev, ok := r.byConn[connID]; ok && prev != session.UserID {
		delete(r.byUser, prev)
	}
	if old, ok := r.byUser[session.UserID]; ok && old.conn.ID() != connID {
		delete(r.byConn, old.conn.ID())
	}
	r.byConn[connID] = session.UserID
	r.byUser[session.UserID] = &registryEntry{conn: conn, session: session}
}

// unregister 移除连接，返回它绑定的 userId
func (r *registry) unregister(conn Conn) (string, bool) {
	connID := conn.ID()
	userID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	if entry, exists := r.byUser[userID]; exists && entry.conn.ID() == connID {
		delete(r.byUser, userID)
	}
	return userID, true
}

func (r *registry) lookup(conn Conn) (string, bool) {
	userID, ok := r.byConn[conn.ID()]
	return userID, ok
}

func (r *registry) get(userID string) (domain.UserSession, bool) {
	entry, ok := r.byUser[userID]
	if !ok {
		return domain.UserSession{}, false
	}
	return entry.session, true
}

// all 返回花名册快照，按 userId 排序以便输出稳定
func (r *registry) all() []domain.UserSession {
	sessions := make([]domain.UserSession, 0, len(r.byUser))
	for _, entry := range r.byUser {
		sessions = append(sessions, entry.session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].UserID < sessions[j].UserID })
	return sessions
}

// conns 返回所有已注册的连接
func (r *registry) conns() []Conn {
	conns := make([]Conn, 0, len(r.byUser))
	for _, entry := range r.byUser {
		conns = append(conns, entry.conn)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].ID() < conns[j].ID() })
	return conns
}

func (r *registry) rename(userID, userName string) bool {
	entry, ok := r.byUser[userID]
	if !ok {
		return false
	}
	entry.session.UserName = userName
	return true
}

func (r *registry) reset() {
	r.byConn = make(map[string]string)
	r.byUser = make(map[string]*registryEntry)
}

func (r *registry) len() int {
	return len(r.byUser)
}
