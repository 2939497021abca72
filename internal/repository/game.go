package repository

import (
	"context"

	"github.com/wfunc/liar-roulette/internal/models"
	"gorm.io/gorm"
)

// GameRepository 对局仓储接口
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.Game) error
	FindByID(ctx context.Context, id uint) (*models.Game, error)
	FindByRoomID(ctx context.Context, roomID uint) (*models.Game, error)
	// UpdateConditional 条件更新对局：仅当行仍处于读取时的(state, current_round)才生效。
	// 返回false表示另一并发请求抢先完成了同一转移，调用方按冲突处理。
	UpdateConditional(ctx context.Context, gameID uint, fromState models.GameState, fromRound int, updates map[string]interface{}) (bool, error)
	DeleteByRoomID(ctx context.Context, roomID uint) error
}

// gameRepo 对局仓储实现
type gameRepo struct {
	*BaseRepo
}

// NewGameRepository 创建对局仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建对局
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

// FindByID 根据ID查找
func (r *gameRepo) FindByID(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).First(&game, id).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// FindByRoomID 根据房间ID查找对局
func (r *gameRepo) FindByRoomID(ctx context.Context, roomID uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		First(&game).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// UpdateConditional 条件更新对局
func (r *gameRepo) UpdateConditional(ctx context.Context, gameID uint, fromState models.GameState, fromRound int, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("id = ? AND state = ? AND current_round = ?", gameID, fromState, fromRound).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// DeleteByRoomID 删除房间的对局
func (r *gameRepo) DeleteByRoomID(ctx context.Context, roomID uint) error {
	return r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Delete(&models.Game{}).Error
}

// WithTx 使用事务
func (r *gameRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
