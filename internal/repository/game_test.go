package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-roulette/internal/models"
	"gorm.io/gorm"
)

func seedGame(t *testing.T, db *gorm.DB, roomID uint, players []models.User) *models.Game {
	game := &models.Game{
		RoomID:       roomID,
		State:        models.StateMissionPhase,
		Chamber:      4,
		CurrentRound: 1,
		Rounds: models.RoundList{{
			RoundNumber:      1,
			MissionPlayerID:  players[0].ID,
			DecisionPlayerID: players[1].ID,
			Mission:          models.MissionLie,
			RoleBadge:        "🎭",
		}},
		AlivePlayers: models.UintList{players[0].ID, players[1].ID},
	}
	require.NoError(t, NewGameRepository(db).Create(context.Background(), game))
	return game
}

func TestGameRepository_RoundTrip(t *testing.T) {
	db := TestDB(t)
	repo := NewGameRepository(db)
	ctx := context.Background()

	users := SeedUsers(t, db, 2)
	room := SeedRoom(t, db, users, true)
	game := seedGame(t, db, room.ID, users)

	found, err := repo.FindByRoomID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, game.ID, found.ID)
	assert.Equal(t, models.StateMissionPhase, found.State)
	assert.Equal(t, 4, found.Chamber)
	require.Len(t, found.Rounds, 1)
	assert.Equal(t, models.MissionLie, found.Rounds[0].Mission)
	assert.Equal(t, models.UintList{users[0].ID, users[1].ID}, found.AlivePlayers)
	assert.NoError(t, found.Validate())
}

func TestGameRepository_UpdateConditional(t *testing.T) {
	db := TestDB(t)
	repo := NewGameRepository(db)
	ctx := context.Background()

	users := SeedUsers(t, db, 2)
	room := SeedRoom(t, db, users, true)
	game := seedGame(t, db, room.ID, users)

	rounds := append(models.RoundList{}, game.Rounds...)
	rounds[0].Decision = models.MissionLie

	// 第一次条件更新生效
	ok, err := repo.UpdateConditional(ctx, game.ID, models.StateMissionPhase, 1, map[string]interface{}{
		"state":  models.StateRoulettePhase,
		"rounds": rounds,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// 同一转移的并发重放不再生效
	ok, err = repo.UpdateConditional(ctx, game.ID, models.StateMissionPhase, 1, map[string]interface{}{
		"state": models.StateRoulettePhase,
	})
	require.NoError(t, err)
	assert.False(t, ok, "已完成的状态转移不应重复生效")

	found, err := repo.FindByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRoulettePhase, found.State)
	assert.Equal(t, models.MissionLie, found.Rounds[0].Decision)
}

func TestGameRepository_OneGamePerRoom(t *testing.T) {
	db := TestDB(t)
	repo := NewGameRepository(db)
	ctx := context.Background()

	users := SeedUsers(t, db, 2)
	room := SeedRoom(t, db, users, true)
	seedGame(t, db, room.ID, users)

	// room_id唯一索引拒绝同房间的第二局
	dup := &models.Game{
		RoomID:       room.ID,
		State:        models.StateMissionPhase,
		Chamber:      2,
		CurrentRound: 1,
		Rounds: models.RoundList{{
			RoundNumber:      1,
			MissionPlayerID:  users[1].ID,
			DecisionPlayerID: users[0].ID,
			Mission:          models.MissionTruth,
			RoleBadge:        "🐺",
		}},
		AlivePlayers: models.UintList{users[0].ID, users[1].ID},
	}
	err := repo.Create(ctx, dup)
	assert.Error(t, err)
}
