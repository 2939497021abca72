package game

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/liar-roulette/internal/config"
	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/logger"
	"github.com/wfunc/liar-roulette/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CleanupScheduler 过期房间清理器
// 定时扫两类房间：结束超过保留期的，和空置超过保留期的等待房间。
// 删除总是级联的，房间、对局、聊天记录在同一事务里一起消失。
type CleanupScheduler struct {
	roomRepo          repository.RoomRepository
	interval          time.Duration
	finishedRetention time.Duration
	emptyRetention    time.Duration
	log               *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewCleanupScheduler 创建清理器
func NewCleanupScheduler(db *gorm.DB, cfg *config.CleanupConfig) *CleanupScheduler {
	return &CleanupScheduler{
		roomRepo:          repository.NewRoomRepository(db),
		interval:          cfg.Interval,
		finishedRetention: cfg.FinishedRetention,
		emptyRetention:    cfg.EmptyRetention,
		log:               logger.GetModuleLogger("cleanup"),
		stopCh:            make(chan struct{}),
	}
}

// Start 启动后台清理循环
func (s *CleanupScheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info("清理任务已启动",
			zap.Duration("interval", s.interval),
			zap.Duration("finished_retention", s.finishedRetention),
			zap.Duration("empty_retention", s.emptyRetention),
		)

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				removed, err := s.RunOnce(ctx)
				cancel()
				if err != nil {
					s.log.Error("清理扫描失败", zap.Error(err))
				} else if removed > 0 {
					s.log.Info("清理扫描完成", zap.Int("removed", removed))
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop 停止清理循环并等待收尾
func (s *CleanupScheduler) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
	s.log.Info("清理任务已停止")
}

// RunOnce 执行一次全量扫描，返回删除的房间数
func (s *CleanupScheduler) RunOnce(ctx context.Context) (int, error) {
	removed := 0

	// 结束超过保留期的房间
	finished, err := s.roomRepo.FindFinishedBefore(ctx, time.Now().Add(-s.finishedRetention))
	if err != nil {
		return removed, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	for _, room := range finished {
		if err := s.CleanupRoom(ctx, room.ID); err != nil {
			s.log.Warn("删除过期房间失败", zap.Uint("room_id", room.ID), zap.Error(err))
			continue
		}
		removed++
	}

	// 空置超过保留期的等待房间
	stale, err := s.roomRepo.FindStaleWaiting(ctx, time.Now().Add(-s.emptyRetention))
	if err != nil {
		return removed, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	for _, room := range stale {
		if err := s.CleanupRoom(ctx, room.ID); err != nil {
			s.log.Warn("删除空置房间失败", zap.Uint("room_id", room.ID), zap.Error(err))
			continue
		}
		removed++
	}

	return removed, nil
}

// CleanupRoom 级联删除单个房间
// 最后一名成员退出时也会走这里，不必等定时扫描。
func (s *CleanupScheduler) CleanupRoom(ctx context.Context, roomID uint) error {
	if err := s.roomRepo.DeleteCascade(ctx, roomID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseDelete)
	}
	s.log.Debug("房间已级联删除", zap.Uint("room_id", roomID))
	return nil
}
