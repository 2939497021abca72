package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-roulette/internal/models"
	"gorm.io/gorm"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	db := TestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{
		Username: "alice",
		Suffix:   "3F7K2",
		Password: "hashed",
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	// BeforeCreate钩子填充默认昵称与状态
	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Nickname)
	assert.Equal(t, "active", found.Status)
	assert.Equal(t, "alice#3F7K2", found.DisplayName())

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_EmailOptional(t *testing.T) {
	db := TestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	// 未填邮箱的用户不占用唯一索引，可以创建任意多个
	require.NoError(t, repo.Create(ctx, &models.User{Username: "u1", Suffix: "AAAAA", Password: "hashed"}))
	require.NoError(t, repo.Create(ctx, &models.User{Username: "u2", Suffix: "BBBBB", Password: "hashed"}))

	email := "u3@example.com"
	require.NoError(t, repo.Create(ctx, &models.User{Username: "u3", Suffix: "CCCCC", Password: "hashed", Email: &email}))

	found, err := repo.FindByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "u3", found.Username)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 重复邮箱撞唯一索引
	err = repo.Create(ctx, &models.User{Username: "u4", Suffix: "DDDDD", Password: "hashed", Email: &email})
	assert.Error(t, err)
}

func TestSeedHelpers_RepeatedSeeding(t *testing.T) {
	db := TestDB(t)

	// 同一测试库里多次播种：用户名与加入码都不撞唯一索引
	first := SeedUsers(t, db, 2)
	second := SeedUsers(t, db, 2)
	for _, a := range first {
		for _, b := range second {
			assert.NotEqual(t, a.Username, b.Username)
		}
	}

	SeedRoom(t, db, first, true)
	SeedRoom(t, db, second, true)
}

func TestUserRepository_IncrementStats(t *testing.T) {
	db := TestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	users := SeedUsers(t, db, 4)
	winner := users[0]
	losers := []uint{users[1].ID, users[2].ID, users[3].ID}

	require.NoError(t, repo.IncrementStats(ctx, winner.ID, losers))
	require.NoError(t, repo.IncrementStats(ctx, winner.ID, losers))

	// 胜者两胜，总场次2
	w, err := repo.FindByID(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), w.Wins)
	assert.Equal(t, int64(0), w.Losses)
	assert.Equal(t, int64(2), w.TotalGames)

	// 每个败者两负，总场次2
	for _, id := range losers {
		l, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(0), l.Wins)
		assert.Equal(t, int64(2), l.Losses)
		assert.Equal(t, int64(2), l.TotalGames)
	}
}

func TestUserRepository_Leaderboard(t *testing.T) {
	db := TestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	users := SeedUsers(t, db, 3)
	// 玩家1：2胜1负；玩家2：2胜0负；玩家3：从未对局
	require.NoError(t, db.Model(&users[0]).Updates(map[string]interface{}{"wins": 2, "losses": 1, "total_games": 3}).Error)
	require.NoError(t, db.Model(&users[1]).Updates(map[string]interface{}{"wins": 2, "losses": 0, "total_games": 2}).Error)

	p := NewPagination(1, 10)
	board, err := repo.Leaderboard(ctx, p)
	require.NoError(t, err)

	// 没有对局的玩家不上榜；同胜场时总场次少的排前
	require.Len(t, board, 2)
	assert.Equal(t, users[1].ID, board[0].ID)
	assert.Equal(t, users[0].ID, board[1].ID)
	assert.Equal(t, int64(2), p.Total)
}
