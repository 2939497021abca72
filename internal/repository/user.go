package repository

import (
	"context"
	"time"

	"github.com/wfunc/liar-roulette/internal/models"
	"gorm.io/gorm"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	BaseRepository
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByIDs(ctx context.Context, ids []uint) ([]*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLoginInfo(ctx context.Context, userID uint, ip string) error
	// IncrementStats 批量累加战绩（winner +1胜，losers 各+1负，所有人总场次+1）
	IncrementStats(ctx context.Context, winnerID uint, loserIDs []uint) error
	Leaderboard(ctx context.Context, p *Pagination) ([]*models.User, error)
}

// userRepo 用户仓储实现
type userRepo struct {
	*BaseRepo
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建用户
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Update 更新用户
func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// FindByID 根据ID查找
func (r *userRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs 批量查找用户
func (r *userRepo) FindByIDs(ctx context.Context, ids []uint) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&users).Error
	return users, err
}

// FindByUsername 根据用户名查找
func (r *userRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail 根据邮箱查找
func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLoginInfo 更新登录信息
func (r *userRepo) UpdateLoginInfo(ctx context.Context, userID uint, ip string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"last_login_at": &now,
			"last_login_ip": ip,
		}).Error
}

// IncrementStats 批量累加战绩
// 胜者与所有败者在同一事务内更新，对局结果不会只落一半。
func (r *userRepo) IncrementStats(ctx context.Context, winnerID uint, loserIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ?", winnerID).
			Updates(map[string]interface{}{
				"wins":        gorm.Expr("wins + 1"),
				"total_games": gorm.Expr("total_games + 1"),
			}).Error; err != nil {
			return err
		}

		if len(loserIDs) == 0 {
			return nil
		}

		return tx.Model(&models.User{}).
			Where("id IN ?", loserIDs).
			Updates(map[string]interface{}{
				"losses":      gorm.Expr("losses + 1"),
				"total_games": gorm.Expr("total_games + 1"),
			}).Error
	})
}

// Leaderboard 排行榜（按胜场降序，同胜场按总场次升序）
func (r *userRepo) Leaderboard(ctx context.Context, p *Pagination) ([]*models.User, error) {
	var users []*models.User

	r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("total_games > 0").
		Count(&p.Total)

	err := r.db.WithContext(ctx).
		Where("total_games > 0").
		Order("wins desc, total_games asc, id asc").
		Scopes(Paginate(p)).
		Find(&users).Error

	return users, err
}

// WithTx 使用事务
func (r *userRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &userRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
