package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-roulette/internal/config"
	"github.com/wfunc/liar-roulette/internal/models"
	"github.com/wfunc/liar-roulette/internal/repository"
	"gorm.io/gorm"
)

func newTestScheduler(db *gorm.DB) *CleanupScheduler {
	return NewCleanupScheduler(db, &config.CleanupConfig{
		Enabled:           true,
		Interval:          24 * time.Hour,
		FinishedRetention: 24 * time.Hour,
		EmptyRetention:    time.Hour,
	})
}

func TestCleanupScheduler_RunOnce(t *testing.T) {
	db := repository.TestDB(t)
	scheduler := newTestScheduler(db)
	ctx := context.Background()

	users := repository.SeedUsers(t, db, 2)

	// 结束超过24小时的房间及其关联数据
	expired := repository.SeedRoom(t, db, users, true)
	require.NoError(t, db.Model(expired).Update("status", models.RoomStatusFinished).Error)
	require.NoError(t, db.Model(expired).UpdateColumn("updated_at", time.Now().Add(-25*time.Hour)).Error)
	require.NoError(t, db.Create(&models.ChatMessage{RoomID: expired.ID, UserID: users[0].ID, Content: "gg"}).Error)

	// 刚结束的房间还在保留期内
	fresh := repository.SeedRoom(t, db, users, true)
	require.NoError(t, db.Model(fresh).Update("status", models.RoomStatusFinished).Error)

	// 空置超过1小时的等待房间
	empty := &models.Room{
		Code:       "ROOM-GONE1",
		HostID:     users[0].ID,
		Players:    models.PlayerList{},
		MaxPlayers: 6,
		Status:     models.RoomStatusWaiting,
	}
	require.NoError(t, db.Create(empty).Error)
	require.NoError(t, db.Model(empty).UpdateColumn("updated_at", time.Now().Add(-2*time.Hour)).Error)

	removed, err := scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	roomRepo := repository.NewRoomRepository(db)
	_, err = roomRepo.FindByID(ctx, expired.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = roomRepo.FindByID(ctx, empty.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 保留期内的房间不受影响
	_, err = roomRepo.FindByID(ctx, fresh.ID)
	assert.NoError(t, err)

	// 聊天记录随房间一起消失
	var count int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Where("room_id = ?", expired.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCleanupScheduler_CleanupRoom(t *testing.T) {
	db := repository.TestDB(t)
	scheduler := newTestScheduler(db)
	ctx := context.Background()

	users := repository.SeedUsers(t, db, 2)
	room := repository.SeedRoom(t, db, users, true)
	require.NoError(t, db.Create(&models.Game{
		RoomID:       room.ID,
		State:        models.StateFinished,
		Chamber:      1,
		CurrentRound: 1,
		Rounds: models.RoundList{{
			RoundNumber:      1,
			MissionPlayerID:  users[0].ID,
			DecisionPlayerID: users[1].ID,
			Mission:          models.MissionTruth,
			RoleBadge:        "🐴",
		}},
		AlivePlayers: models.UintList{users[1].ID},
		WinnerID:     &users[1].ID,
	}).Error)

	require.NoError(t, scheduler.CleanupRoom(ctx, room.ID))

	_, err := repository.NewRoomRepository(db).FindByID(ctx, room.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repository.NewGameRepository(db).FindByRoomID(ctx, room.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	db := repository.TestDB(t)
	scheduler := newTestScheduler(db)

	scheduler.Start()
	scheduler.Stop()
}
