package room

import (
	"encoding/json"
	"sort"

	"github.com/sirupsen/logrus"

	"collaborative-canvas/internal/dto"
)

// broadcast 序列化一次，发送给所有已注册连接 (exclude 除外)。
// 单个连接发送失败只记录日志，不影响其他连接。
func (r *Room) broadcast(frame dto.Frame, exclude Conn) {
	data, err := json.Marshal(frame)
	if err != nil {
		r.log.WithError(err).WithField("type", frame.Type).Error("Failed to marshal broadcast frame")
		return
	}
	for _, conn := range r.registry.conns() {
		if exclude != nil && conn.ID() == exclude.ID() {
			continue
		}
		if err := conn.Send(data); err != nil {
			r.log.WithFields(logrus.Fields{
				"conn_id": conn.ID(),
				"type":    frame.Type,
			}).WithError(err).Warn("Broadcast send failed")
		}
	}
}

// broadcastAttached 发送给所有已接入的连接，包括还没有 create/join 的连接
func (r *Room) broadcastAttached(frame dto.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		r.log.WithError(err).WithField("type", frame.Type).Error("Failed to marshal broadcast frame")
		return
	}
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := r.conns[id].Send(data); err != nil {
			r.log.WithFields(logrus.Fields{
				"conn_id": id,
				"type":    frame.Type,
			}).WithError(err).Warn("Broadcast send failed")
		}
	}
}

// send 只发给一个连接
func (r *Room) send(conn Conn, frame dto.Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		r.log.WithError(err).WithField("type", frame.Type).Error("Failed to marshal frame")
		return
	}
	if err := conn.Send(data); err != nil {
		r.log.WithField("conn_id", conn.ID()).WithError(err).Warn("Send failed")
	}
}

func (r *Room) sendError(conn Conn, message string) {
	r.send(conn, dto.ErrorFrame(message))
}

func (r *Room) broadcastRoster() {
	r.broadcast(dto.Frame{Type: dto.TypeUsers, Content: r.registry.all()}, nil)
}
