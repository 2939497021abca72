package game

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/models"
	"github.com/wfunc/liar-roulette/internal/repository"
	"gorm.io/gorm"
)

// stubRandom 确定性随机源，按队列出值，队列耗尽后回落到固定值
type stubRandom struct {
	mu       sync.Mutex
	ints     []int
	missions []models.Mission
	badges   []models.RoleBadge
	pairs    [][2]int
}

func (s *stubRandom) NextInt(min, max int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) > 0 {
		n := s.ints[0]
		s.ints = s.ints[1:]
		return n
	}
	return min
}

func (s *stubRandom) NextMission() models.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.missions) > 0 {
		m := s.missions[0]
		s.missions = s.missions[1:]
		return m
	}
	return models.MissionTruth
}

func (s *stubRandom) NextBadge() models.RoleBadge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.badges) > 0 {
		b := s.badges[0]
		s.badges = s.badges[1:]
		return b
	}
	return models.RoleBadges[0]
}

func (s *stubRandom) PickPair(n int) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pairs) > 0 {
		p := s.pairs[0]
		s.pairs = s.pairs[1:]
		return p[0], p[1]
	}
	return 0, 1
}

func newTestEngine(t *testing.T, db *gorm.DB, random RandomGenerator) *Engine {
	t.Helper()
	return NewEngine(db, random, 2)
}

func TestEngine_StartGame(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 3)
	room := repository.SeedRoom(t, db, users, true)

	random := &stubRandom{ints: []int{5}, pairs: [][2]int{{1, 2}}}
	engine := newTestEngine(t, db, random)
	ctx := context.Background()

	game, err := engine.StartGame(ctx, users[0].ID, room.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StateMissionPhase, game.State)
	assert.Equal(t, 5, game.Chamber)
	assert.Equal(t, 1, game.CurrentRound)
	require.Len(t, game.Rounds, 1)
	assert.Equal(t, users[1].ID, game.Rounds[0].MissionPlayerID)
	assert.Equal(t, users[2].ID, game.Rounds[0].DecisionPlayerID)
	assert.NotEqual(t, game.Rounds[0].MissionPlayerID, game.Rounds[0].DecisionPlayerID)
	assert.Equal(t, models.UintList{users[0].ID, users[1].ID, users[2].ID}, game.AlivePlayers)

	// 房间转为进行中
	updated, err := repository.NewRoomRepository(db).FindByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusActive, updated.Status)
}

func TestEngine_StartGame_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("房间不存在", func(t *testing.T) {
		db := repository.TestDB(t)
		engine := newTestEngine(t, db, &stubRandom{})
		_, err := engine.StartGame(ctx, 1, 999)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("非房主开局", func(t *testing.T) {
		db := repository.TestDB(t)
		users := repository.SeedUsers(t, db, 2)
		room := repository.SeedRoom(t, db, users, true)
		engine := newTestEngine(t, db, &stubRandom{})
		_, err := engine.StartGame(ctx, users[1].ID, room.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotHost))
	})

	t.Run("人数不足", func(t *testing.T) {
		db := repository.TestDB(t)
		users := repository.SeedUsers(t, db, 1)
		room := repository.SeedRoom(t, db, users, true)
		engine := newTestEngine(t, db, &stubRandom{})
		_, err := engine.StartGame(ctx, users[0].ID, room.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotEnoughPlayer))
	})

	t.Run("有人未准备", func(t *testing.T) {
		db := repository.TestDB(t)
		users := repository.SeedUsers(t, db, 3)
		room := repository.SeedRoom(t, db, users, false)
		engine := newTestEngine(t, db, &stubRandom{})
		_, err := engine.StartGame(ctx, users[0].ID, room.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrPlayerNotReady))
	})

	t.Run("重复开局", func(t *testing.T) {
		db := repository.TestDB(t)
		users := repository.SeedUsers(t, db, 2)
		room := repository.SeedRoom(t, db, users, true)
		engine := newTestEngine(t, db, &stubRandom{})

		_, err := engine.StartGame(ctx, users[0].ID, room.ID)
		require.NoError(t, err)

		_, err = engine.StartGame(ctx, users[0].ID, room.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrGameAlreadyStarted))
	})
}

func TestEngine_SubmitDecision_NoElimination(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 2)
	room := repository.SeedRoom(t, db, users, true)

	// 弹仓6，掷点3：判定正确但任务玩家逃过一劫
	random := &stubRandom{ints: []int{6, 3}, missions: []models.Mission{models.MissionTruth}}
	engine := newTestEngine(t, db, random)
	ctx := context.Background()

	_, err := engine.StartGame(ctx, users[0].ID, room.ID)
	require.NoError(t, err)

	game, err := engine.SubmitDecision(ctx, users[1].ID, room.ID, models.MissionTruth)
	require.NoError(t, err)

	assert.Equal(t, models.StateRoulettePhase, game.State)
	round := game.LastRound()
	assert.Equal(t, models.MissionTruth, round.Decision)
	require.NotNil(t, round.RouletteResult)
	assert.Equal(t, 3, *round.RouletteResult)
	assert.Nil(t, round.EliminatedPlayerID)
	assert.Len(t, game.AlivePlayers, 2)
}

func TestEngine_SubmitDecision_Guards(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 2)
	room := repository.SeedRoom(t, db, users, true)

	random := &stubRandom{ints: []int{6, 3}}
	engine := newTestEngine(t, db, random)
	ctx := context.Background()

	_, err := engine.StartGame(ctx, users[0].ID, room.ID)
	require.NoError(t, err)

	// 非法判定值
	_, err = engine.SubmitDecision(ctx, users[1].ID, room.ID, "MAYBE")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidDecision))

	// 非判定玩家提交
	_, err = engine.SubmitDecision(ctx, users[0].ID, room.ID, models.MissionTruth)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotDecisionPlayer))

	// 正常提交后阶段推进，重放同一判定被拒
	_, err = engine.SubmitDecision(ctx, users[1].ID, room.ID, models.MissionTruth)
	require.NoError(t, err)
	_, err = engine.SubmitDecision(ctx, users[1].ID, room.ID, models.MissionTruth)
	assert.True(t, apperrors.Is(err, apperrors.ErrWrongGamePhase))
}

func TestEngine_SubmitDecision_WrongDecisionPutsDeciderAtRisk(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 3)
	room := repository.SeedRoom(t, db, users, true)

	// 弹仓4，掷点4：判定错误，判定玩家自己被淘汰
	random := &stubRandom{ints: []int{4, 4}, missions: []models.Mission{models.MissionTruth}, pairs: [][2]int{{0, 1}}}
	engine := newTestEngine(t, db, random)
	ctx := context.Background()

	_, err := engine.StartGame(ctx, users[0].ID, room.ID)
	require.NoError(t, err)

	game, err := engine.SubmitDecision(ctx, users[1].ID, room.ID, models.MissionLie)
	require.NoError(t, err)

	round := game.LastRound()
	require.NotNil(t, round.EliminatedPlayerID)
	assert.Equal(t, users[1].ID, *round.EliminatedPlayerID)
	assert.False(t, game.AlivePlayers.Contains(users[1].ID))
	assert.Len(t, game.AlivePlayers, 2)
	assert.Equal(t, models.StateRoulettePhase, game.State)

	// 房间成员列表同步标记淘汰
	updated, err := repository.NewRoomRepository(db).FindByID(ctx, room.ID)
	require.NoError(t, err)
	p, ok := updated.Players.Find(users[1].ID)
	require.True(t, ok)
	assert.False(t, p.IsAlive)
}

func TestEngine_SubmitDecision_FinishesTwoPlayerGame(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 2)
	room := repository.SeedRoom(t, db, users, true)

	// 弹仓2，掷点2：判定正确，任务玩家（房主）被淘汰，判定玩家获胜
	random := &stubRandom{ints: []int{2, 2}, missions: []models.Mission{models.MissionLie}}
	engine := newTestEngine(t, db, random)
	ctx := context.Background()

	_, err := engine.StartGame(ctx, users[0].ID, room.ID)
	require.NoError(t, err)

	game, err := engine.SubmitDecision(ctx, users[1].ID, room.ID, models.MissionLie)
	require.NoError(t, err)

	assert.Equal(t, models.StateFinished, game.State)
	require.NotNil(t, game.WinnerID)
	assert.Equal(t, users[1].ID, *game.WinnerID)
	assert.Equal(t, models.UintList{users[1].ID}, game.AlivePlayers)

	// 房间收尾、战绩结算一步到位
	userRepo := repository.NewUserRepository(db)
	winner, err := userRepo.FindByID(ctx, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), winner.Wins)
	assert.Equal(t, int64(1), winner.TotalGames)

	loser, err := userRepo.FindByID(ctx, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loser.Losses)
	assert.Equal(t, int64(1), loser.TotalGames)

	updated, err := repository.NewRoomRepository(db).FindByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusFinished, updated.Status)
}

func TestEngine_SubmitDecision_ConcurrentOnlyOneWins(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 3)
	room := repository.SeedRoom(t, db, users, true)

	// 弹仓5，掷点1：本轮判定不产生淘汰
	random := &stubRandom{ints: []int{5, 1, 1}, pairs: [][2]int{{0, 1}}}
	engine := newTestEngine(t, db, random)
	ctx := context.Background()

	_, err := engine.StartGame(ctx, users[0].ID, room.ID)
	require.NoError(t, err)

	// 同一轮的两个并发判定最多只有一个生效
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.SubmitDecision(ctx, users[1].ID, room.ID, models.MissionTruth)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		rejected++
		// 输掉竞争的一方要么输在条件更新上，要么读取时已见到推进后的阶段
		lost := apperrors.Is(err, apperrors.ErrConflict) || apperrors.Is(err, apperrors.ErrWrongGamePhase)
		assert.True(t, lost, "意外的错误: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	// 轮次只被结算一次
	stored, err := repository.NewGameRepository(db).FindByRoomID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateRoulettePhase, stored.State)
	assert.Equal(t, 1, stored.CurrentRound)
	require.Len(t, stored.Rounds, 1)
	require.NotNil(t, stored.Rounds[0].RouletteResult)
}

func TestMarkPlayerDead_StaleRosterConflict(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 3)
	room := repository.SeedRoom(t, db, users, true)

	repo := repository.NewRoomRepository(db)
	ctx := context.Background()

	snapshot, err := repo.FindByID(ctx, room.ID)
	require.NoError(t, err)

	// 快照之后名单被并发改动：users[2]退出
	remaining := append(models.PlayerList{}, snapshot.Players[:2]...)
	ok, err := repo.UpdateMembers(ctx, room.ID, snapshot.UpdatedAt, remaining, snapshot.HostID)
	require.NoError(t, err)
	require.True(t, ok)

	// 旧快照的写回被条件更新拒绝，不会把已退出的成员写回名单
	err = markPlayerDead(ctx, repo, snapshot, users[1].ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	fresh, err := repo.FindByID(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Players, 2)
	for _, p := range fresh.Players {
		assert.NotEqual(t, users[2].ID, p.ID)
	}
}

func TestEngine_GetGame(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 2)
	room := repository.SeedRoom(t, db, users, true)

	engine := newTestEngine(t, db, &stubRandom{})
	ctx := context.Background()

	// 开局前没有对局可查
	_, err := engine.GetGame(ctx, users[0].ID, room.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	started, err := engine.StartGame(ctx, users[0].ID, room.ID)
	require.NoError(t, err)

	got, err := engine.GetGame(ctx, users[1].ID, room.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, got.ID)
	assert.Equal(t, models.StateMissionPhase, got.State)

	// 非房间成员不能查看对局
	_, err = engine.GetGame(ctx, 999, room.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInRoom))
}

func TestEngine_AdvanceRound(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 3)
	room := repository.SeedRoom(t, db, users, true)

	// 第一轮淘汰任务玩家（房主），第二轮只能在剩下两人中抽取
	random := &stubRandom{
		ints:  []int{3, 3},
		pairs: [][2]int{{0, 1}, {0, 1}},
	}
	engine := newTestEngine(t, db, random)
	ctx := context.Background()

	_, err := engine.StartGame(ctx, users[0].ID, room.ID)
	require.NoError(t, err)

	// 转轮展示阶段之前不允许进轮
	_, err = engine.AdvanceRound(ctx, users[1].ID, room.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrWrongGamePhase))

	_, err = engine.SubmitDecision(ctx, users[1].ID, room.ID, models.MissionTruth)
	require.NoError(t, err)

	// 非房间成员不能进轮
	_, err = engine.AdvanceRound(ctx, 999, room.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInRoom))

	game, err := engine.AdvanceRound(ctx, users[1].ID, room.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StateMissionPhase, game.State)
	assert.Equal(t, 2, game.CurrentRound)
	require.Len(t, game.Rounds, 2)
	next := game.LastRound()
	assert.Equal(t, 2, next.RoundNumber)
	// 新一轮参与者只会来自存活玩家
	assert.True(t, game.AlivePlayers.Contains(next.MissionPlayerID))
	assert.True(t, game.AlivePlayers.Contains(next.DecisionPlayerID))
	assert.NotEqual(t, users[0].ID, next.MissionPlayerID)
	assert.NotEqual(t, users[0].ID, next.DecisionPlayerID)
}

func TestEngine_FullGameSixPlayers(t *testing.T) {
	db := repository.TestDB(t)
	users := repository.SeedUsers(t, db, 6)
	room := repository.SeedRoom(t, db, users, true)

	// 每轮掷点都命中弹仓，任务玩家依次出局，最后一人获胜
	random := &stubRandom{ints: []int{1}}
	engine := newTestEngine(t, db, random)
	ctx := context.Background()

	game, err := engine.StartGame(ctx, users[0].ID, room.ID)
	require.NoError(t, err)
	require.Equal(t, 1, game.Chamber)

	for game.State != models.StateFinished {
		round := game.LastRound()

		// 弹仓位置整局不变，轮次历史与轮号保持一致
		assert.Equal(t, 1, game.Chamber)
		assert.Len(t, game.Rounds, game.CurrentRound)

		game, err = engine.SubmitDecision(ctx, round.DecisionPlayerID, room.ID, round.Mission)
		require.NoError(t, err)

		if game.State == models.StateRoulettePhase {
			game, err = engine.AdvanceRound(ctx, round.DecisionPlayerID, room.ID)
			require.NoError(t, err)
		}
	}

	// 5轮淘汰5人
	assert.Equal(t, 5, game.CurrentRound)
	require.NotNil(t, game.WinnerID)
	winnerID := *game.WinnerID
	require.Len(t, game.AlivePlayers, 1)

	// 胜者1胜，其余5人各1负，所有人总场次1
	userRepo := repository.NewUserRepository(db)
	for _, u := range users {
		stats, err := userRepo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalGames)
		if u.ID == winnerID {
			assert.Equal(t, int64(1), stats.Wins)
			assert.Equal(t, int64(0), stats.Losses)
		} else {
			assert.Equal(t, int64(0), stats.Wins)
			assert.Equal(t, int64(1), stats.Losses)
		}
	}

	// 落库的对局通过完整性校验
	stored, err := repository.NewGameRepository(db).FindByRoomID(ctx, room.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.Validate())
}
