package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collaborative-canvas/internal/domain"
	"collaborative-canvas/internal/repository"
)

// GormRoomStore 是 RoomStore 接口的 GORM 实现，数据保存在 room_entries 表中
type GormRoomStore struct {
	db *gorm.DB
}

var _ repository.RoomStore = (*GormRoomStore)(nil)

// NewGormRoomStore 创建 GormRoomStore 实例
func NewGormRoomStore(db *gorm.DB) *GormRoomStore {
	if db == nil {
		panic("database connection cannot be nil for GormRoomStore")
	}
	return &GormRoomStore{db: db}
}

// Get 实现读取单个 key
func (s *GormRoomStore) Get(ctx context.Context, roomID, key string) ([]byte, error) {
	var entry domain.RoomEntry
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND entry_key = ?", roomID, key).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: get entry %s for room %s: %w", key, roomID, err)
	}
	return entry.Value, nil
}

// Put 使用 upsert 保证同一个 key 只有一行
func (s *GormRoomStore) Put(ctx context.Context, roomID, key string, value []byte) error {
	entry := domain.RoomEntry{RoomID: roomID, EntryKey: key, Value: value}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("gorm: put entry %s for room %s: %w", key, roomID, err)
	}
	return nil
}

// Delete 实现删除单个 key
func (s *GormRoomStore) Delete(ctx context.Context, roomID, key string) error {
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND entry_key = ?", roomID, key).
		Delete(&domain.RoomEntry{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete entry %s for room %s: %w", key, roomID, err)
	}
	return nil
}

// DeletePrefix 实现按前缀删除
func (s *GormRoomStore) DeletePrefix(ctx context.Context, roomID, prefix string) error {
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND entry_key LIKE ?", roomID, likePrefix(prefix)).
		Delete(&domain.RoomEntry{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete prefix %s for room %s: %w", prefix, roomID, err)
	}
	return nil
}

// List 实现按前缀查询，按 key 排序
func (s *GormRoomStore) List(ctx context.Context, roomID, prefix string) ([][]byte, error) {
	var entries []domain.RoomEntry
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND entry_key LIKE ?", roomID, likePrefix(prefix)).
		Order("entry_key").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list prefix %s for room %s: %w", prefix, roomID, err)
	}
	values := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		values = append(values, entry.Value)
	}
	return values, nil
}

// DeleteAll 删除房间的全部行
func (s *GormRoomStore) DeleteAll(ctx context.Context, roomID string) error {
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&domain.RoomEntry{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete all entries for room %s: %w", roomID, err)
	}
	return nil
}

// likePrefix 生成 LIKE 前缀模式。key 前缀里的 '_' 在 LIKE 中是通配符，必须转义。
func likePrefix(prefix string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(prefix) + "%"
}
