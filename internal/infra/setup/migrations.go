package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collaborative-canvas/internal/domain"
)

// MigrateDB 迁移房间键值表。返回错误以便调用者知道迁移是否成功。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}

	// room_entries 的 value 可能很大 (笔画数据)，显式指定 InnoDB + utf8mb4
	err := db.Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4").
		AutoMigrate(&domain.RoomEntry{})
	if err != nil {
		logrus.Errorf("Failed to auto-migrate room_entries: %v", err)
		return fmt.Errorf("failed to migrate room_entries: %w", err)
	}

	logrus.Info("Database migration completed successfully")
	return nil
}
