package database

import (
	"fmt"

	"github.com/wfunc/liar-roulette/internal/logger"
	"github.com/wfunc/liar-roulette/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	migrationModels := []interface{}{
		&models.User{},
		&models.Room{},
		&models.Game{},
		&models.ChatMessage{},
	}

	logger.Info("开始数据库迁移...")

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 清理扫描依赖的复合索引
	if err := createIndexes(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	// 清理任务按状态+更新时间扫描房间
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_rooms_status_updated_at ON rooms(status, updated_at)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_rooms_status_updated_at"), zap.Error(err))
	}

	// 聊天历史按房间+时间拉取
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_chat_messages_room_created ON chat_messages(room_id, created_at)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_chat_messages_room_created"), zap.Error(err))
	}

	// 排行榜按胜场排序
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_wins ON users(wins)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_users_wins"), zap.Error(err))
	}

	logger.Info("数据库索引创建完成")
	return nil
}
