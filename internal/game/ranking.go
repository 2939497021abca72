package game

import (
	"context"

	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/logger"
	"github.com/wfunc/liar-roulette/internal/repository"
	"gorm.io/gorm"
)

// RankingUpdater 战绩结算器
// 一局只结算一次：调用方在收局的同一事务里触发，胜者和全部败者
// 要么一起落库，要么一起回滚。
type RankingUpdater struct{}

// NewRankingUpdater 创建战绩结算器
func NewRankingUpdater() *RankingUpdater {
	return &RankingUpdater{}
}

// ApplyResult 在给定事务内结算一局的胜负
func (r *RankingUpdater) ApplyResult(ctx context.Context, tx *gorm.DB, winnerID uint, loserIDs []uint) error {
	userRepo := repository.NewUserRepository(tx)
	if err := userRepo.IncrementStats(ctx, winnerID, loserIDs); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
	}

	logger.LogGameEvent("ranking_applied", 0, map[string]interface{}{
		"winner_id": winnerID,
		"losers":    len(loserIDs),
	})
	return nil
}
