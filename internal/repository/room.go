package repository

import (
	"context"
	"time"

	"github.com/wfunc/liar-roulette/internal/models"
	"gorm.io/gorm"
)

// RoomRepository 房间仓储接口
type RoomRepository interface {
	BaseRepository
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id uint) (*models.Room, error)
	FindByCode(ctx context.Context, code string) (*models.Room, error)
	FindByPlayer(ctx context.Context, userID uint) (*models.Room, error)
	// UpdateMembers 条件更新成员列表：仅当行的updated_at仍等于读取时的值才生效。
	// 返回false表示并发修改抢先，调用方应重读重试。
	UpdateMembers(ctx context.Context, roomID uint, readAt time.Time, players models.PlayerList, hostID uint) (bool, error)
	// UpdateStatus 条件推进房间状态，返回false表示状态已被他人推进
	UpdateStatus(ctx context.Context, roomID uint, from, to models.RoomStatus) (bool, error)
	FindFinishedBefore(ctx context.Context, before time.Time) ([]*models.Room, error)
	FindStaleWaiting(ctx context.Context, before time.Time) ([]*models.Room, error)
	// DeleteCascade 在一个事务内删除房间及其聊天记录与对局
	DeleteCascade(ctx context.Context, roomID uint) error
	ListWaiting(ctx context.Context, p *Pagination) ([]*models.Room, error)
}

// roomRepo 房间仓储实现
type roomRepo struct {
	*BaseRepo
}

// NewRoomRepository 创建房间仓储
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建房间
func (r *roomRepo) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

// FindByID 根据ID查找
func (r *roomRepo) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByCode 根据加入码查找
func (r *roomRepo) FindByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByPlayer 查找用户所在的未结束房间
// 成员存在JSON列里，按子串粗筛后在内存中精确确认。
func (r *roomRepo) FindByPlayer(ctx context.Context, userID uint) (*models.Room, error) {
	var rooms []*models.Room
	err := r.db.WithContext(ctx).
		Where("status IN ?", []models.RoomStatus{models.RoomStatusWaiting, models.RoomStatusActive}).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}

	for _, room := range rooms {
		if room.HasPlayer(userID) {
			return room, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// UpdateMembers 条件更新成员列表
func (r *roomRepo) UpdateMembers(ctx context.Context, roomID uint, readAt time.Time, players models.PlayerList, hostID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND updated_at = ?", roomID, readAt).
		Updates(map[string]interface{}{
			"players": players,
			"host_id": hostID,
		})
	return result.RowsAffected > 0, result.Error
}

// UpdateStatus 条件推进房间状态
func (r *roomRepo) UpdateStatus(ctx context.Context, roomID uint, from, to models.RoomStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND status = ?", roomID, from).
		Update("status", to)
	return result.RowsAffected > 0, result.Error
}

// FindFinishedBefore 查找早于指定时间结束的房间
func (r *roomRepo) FindFinishedBefore(ctx context.Context, before time.Time) ([]*models.Room, error) {
	var rooms []*models.Room
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.RoomStatusFinished, before).
		Find(&rooms).Error
	return rooms, err
}

// FindStaleWaiting 查找长时间无人的等待房间
func (r *roomRepo) FindStaleWaiting(ctx context.Context, before time.Time) ([]*models.Room, error) {
	var rooms []*models.Room
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.RoomStatusWaiting, before).
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}

	stale := make([]*models.Room, 0, len(rooms))
	for _, room := range rooms {
		if room.IsEmpty() {
			stale = append(stale, room)
		}
	}
	return stale, nil
}

// DeleteCascade 删除房间及其关联数据
func (r *roomRepo) DeleteCascade(ctx context.Context, roomID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Game{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Room{}, roomID).Error
	})
}

// ListWaiting 列出可加入的等待房间
func (r *roomRepo) ListWaiting(ctx context.Context, p *Pagination) ([]*models.Room, error) {
	var rooms []*models.Room

	r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("status = ?", models.RoomStatusWaiting).
		Count(&p.Total)

	err := r.db.WithContext(ctx).
		Where("status = ?", models.RoomStatusWaiting).
		Order("created_at desc").
		Scopes(Paginate(p)).
		Find(&rooms).Error

	return rooms, err
}

// WithTx 使用事务
func (r *roomRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &roomRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
