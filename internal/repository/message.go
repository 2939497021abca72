package repository

import (
	"context"

	"github.com/wfunc/liar-roulette/internal/models"
	"gorm.io/gorm"
)

// MessageRepository 聊天消息仓储接口
type MessageRepository interface {
	BaseRepository
	Create(ctx context.Context, msg *models.ChatMessage) error
	// FindRecentByRoomID 拉取房间最近的消息（按时间升序返回）
	FindRecentByRoomID(ctx context.Context, roomID uint, limit int) ([]*models.ChatMessage, error)
	DeleteByRoomID(ctx context.Context, roomID uint) error
}

// messageRepo 聊天消息仓储实现
type messageRepo struct {
	*BaseRepo
}

// NewMessageRepository 创建聊天消息仓储
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 保存消息
func (r *messageRepo) Create(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// FindRecentByRoomID 拉取房间最近的消息
func (r *messageRepo) FindRecentByRoomID(ctx context.Context, roomID uint, limit int) ([]*models.ChatMessage, error) {
	var messages []*models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// 倒序查出后翻转为时间升序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// DeleteByRoomID 删除房间的全部消息
func (r *messageRepo) DeleteByRoomID(ctx context.Context, roomID uint) error {
	return r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&models.ChatMessage{}).Error
}

// WithTx 使用事务
func (r *messageRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &messageRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
