package domain

import "time"

// RoomEntry 是房间键值存储在数据库中的一行 (MySQL 后端使用)。
// (room_id, entry_key) 唯一，同一个 key 只保留最后一次写入。
type RoomEntry struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"size:191;not null;uniqueIndex:idx_room_entry,priority:1"`
	EntryKey  string    `gorm:"size:191;not null;uniqueIndex:idx_room_entry,priority:2"`
	Value     []byte    `gorm:"type:longblob;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (RoomEntry) TableName() string { return "room_entries" }
