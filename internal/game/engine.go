package game

import (
	"context"

	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/logger"
	"github.com/wfunc/liar-roulette/internal/models"
	"github.com/wfunc/liar-roulette/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier 房间事件广播接口（由WebSocket层实现）
type Notifier interface {
	NotifyRoom(roomID uint, event string, payload interface{})
}

// 广播事件名
const (
	EventGameStarted   = "game_started"
	EventRoundResolved = "round_resolved"
	EventRoundAdvanced = "round_advanced"
	EventGameFinished  = "game_finished"
)

// noopNotifier 空实现，未接入推送时使用
type noopNotifier struct{}

func (noopNotifier) NotifyRoom(roomID uint, event string, payload interface{}) {}

// Engine 对局引擎
// 所有状态转移都通过条件更新落库：仅当对局仍处于读取时的
// (state, current_round) 才生效，抢先失败的一方收到可重试的冲突错误。
type Engine struct {
	db         *gorm.DB
	roomRepo   repository.RoomRepository
	gameRepo   repository.GameRepository
	random     RandomGenerator
	notifier   Notifier
	ranking    *RankingUpdater
	minPlayers int
	log        *zap.Logger
}

// NewEngine 创建对局引擎
func NewEngine(db *gorm.DB, random RandomGenerator, minPlayers int) *Engine {
	if random == nil {
		random = NewCryptoRandomGenerator()
	}
	if minPlayers < 2 {
		minPlayers = 2
	}
	return &Engine{
		db:         db,
		roomRepo:   repository.NewRoomRepository(db),
		gameRepo:   repository.NewGameRepository(db),
		random:     random,
		notifier:   noopNotifier{},
		ranking:    NewRankingUpdater(),
		minPlayers: minPlayers,
		log:        logger.GetModuleLogger("game"),
	}
}

// SetNotifier 接入房间事件广播
func (e *Engine) SetNotifier(n Notifier) {
	if n != nil {
		e.notifier = n
	}
}

// newRound 从存活玩家中抽取新一轮的参与者
func (e *Engine) newRound(roundNumber int, alive models.UintList) models.Round {
	i, j := e.random.PickPair(len(alive))
	return models.Round{
		RoundNumber:      roundNumber,
		MissionPlayerID:  alive[i],
		DecisionPlayerID: alive[j],
		Mission:          e.random.NextMission(),
		RoleBadge:        e.random.NextBadge(),
	}
}

// StartGame 房主开局
// 前置条件依次校验：房间存在、调用者是房主、房间在等待状态、
// 人数达标、所有人已准备。弹仓位置开局一次定死，整局不再变。
func (e *Engine) StartGame(ctx context.Context, userID, roomID uint) (*models.Game, error) {
	room, err := e.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "房间不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	if room.HostID != userID {
		return nil, apperrors.New(apperrors.ErrNotHost)
	}
	if room.Status != models.RoomStatusWaiting {
		if room.Status == models.RoomStatusActive {
			return nil, apperrors.New(apperrors.ErrGameAlreadyStarted)
		}
		return nil, apperrors.New(apperrors.ErrRoomNotWaiting)
	}
	if len(room.Players) < e.minPlayers {
		return nil, apperrors.Newf(apperrors.ErrNotEnoughPlayer, "当前%d人，至少需要%d人", len(room.Players), e.minPlayers)
	}
	if !room.Players.AllReady() {
		return nil, apperrors.New(apperrors.ErrPlayerNotReady)
	}

	var game *models.Game
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roomTx := repository.NewRoomRepository(tx)
		gameTx := repository.NewGameRepository(tx)

		// 房间状态条件推进兼作开局互斥：两个并发开局只有一个能赢
		ok, err := roomTx.UpdateStatus(ctx, roomID, models.RoomStatusWaiting, models.RoomStatusActive)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		if !ok {
			return apperrors.New(apperrors.ErrGameAlreadyStarted)
		}

		// 拿到互斥后重读名单，事务外刚提交的退出/准备变动不会被旧快照覆盖
		fresh, err := roomTx.FindByID(ctx, roomID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}
		if len(fresh.Players) < e.minPlayers {
			return apperrors.Newf(apperrors.ErrNotEnoughPlayer, "当前%d人，至少需要%d人", len(fresh.Players), e.minPlayers)
		}
		if !fresh.Players.AllReady() {
			return apperrors.New(apperrors.ErrPlayerNotReady)
		}

		alive := models.UintList(fresh.Players.IDs())
		game = &models.Game{
			RoomID:       roomID,
			State:        models.StateMissionPhase,
			Chamber:      e.random.NextInt(models.ChamberMin, models.ChamberMax),
			CurrentRound: 1,
			Rounds:       models.RoundList{e.newRound(1, alive)},
			AlivePlayers: alive,
		}

		// 开局时全员存活
		players := append(models.PlayerList{}, fresh.Players...)
		for i := range players {
			players[i].IsAlive = true
		}
		ok, err = roomTx.UpdateMembers(ctx, roomID, fresh.UpdatedAt, players, fresh.HostID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		if !ok {
			return apperrors.New(apperrors.ErrConflict, "房间成员变动频繁，请重试")
		}

		if err := gameTx.Create(ctx, game); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
		}
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			return nil, appErr
		}
		return nil, apperrors.Wrap(err, apperrors.ErrTransaction)
	}

	logger.LogGameEvent("game_started", game.ID, map[string]interface{}{
		"room_id": roomID,
		"host_id": userID,
		"players": len(game.AlivePlayers),
	})
	e.notifier.NotifyRoom(roomID, EventGameStarted, game)
	return game, nil
}

// GetGame 查看房间当前对局，仅限房间成员
// 弹仓位置不参与序列化，读接口不会泄露它。
func (e *Engine) GetGame(ctx context.Context, userID, roomID uint) (*models.Game, error) {
	room, err := e.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "房间不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if !room.HasPlayer(userID) {
		return nil, apperrors.New(apperrors.ErrNotInRoom)
	}

	game, err := e.gameRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "对局不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return game, nil
}

// SubmitDecision 判定玩家提交判定
// 判定正确则任务玩家上转轮，判定错误则判定玩家自己上。转轮掷点
// 命中弹仓位置即淘汰，只剩一人时整局结束并批量结算战绩。
func (e *Engine) SubmitDecision(ctx context.Context, userID, roomID uint, decision models.Mission) (*models.Game, error) {
	if !decision.Valid() {
		return nil, apperrors.New(apperrors.ErrInvalidDecision)
	}

	game, err := e.gameRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "对局不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	if game.State != models.StateMissionPhase {
		return nil, apperrors.New(apperrors.ErrWrongGamePhase)
	}

	round := game.LastRound()
	if round == nil {
		return nil, apperrors.New(apperrors.ErrDataIntegrity, "对局缺少轮次记录")
	}
	if round.DecisionPlayerID != userID {
		return nil, apperrors.New(apperrors.ErrNotDecisionPlayer)
	}

	// 判定正确时任务玩家上转轮，否则判定玩家自己上
	atRisk := round.DecisionPlayerID
	if decision == round.Mission {
		atRisk = round.MissionPlayerID
	}

	roll := e.random.NextInt(models.ChamberMin, models.ChamberMax)

	rounds := append(models.RoundList{}, game.Rounds...)
	resolved := &rounds[len(rounds)-1]
	resolved.Decision = decision
	resolved.RouletteResult = &roll

	alive := game.AlivePlayers
	var eliminated *uint
	if roll == game.Chamber {
		id := atRisk
		eliminated = &id
		resolved.EliminatedPlayerID = eliminated
		alive = alive.Remove(atRisk)
	}

	finished := len(alive) == 1
	updates := map[string]interface{}{
		"rounds":        rounds,
		"alive_players": alive,
	}
	var winnerID uint
	if finished {
		winnerID = alive[0]
		updates["state"] = models.StateFinished
		updates["winner_id"] = winnerID
	} else {
		updates["state"] = models.StateRoulettePhase
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roomTx := repository.NewRoomRepository(tx)
		gameTx := repository.NewGameRepository(tx)

		ok, err := gameTx.UpdateConditional(ctx, game.ID, models.StateMissionPhase, game.CurrentRound, updates)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		if !ok {
			return apperrors.New(apperrors.ErrConflict, "该轮判定已被处理")
		}

		var room *models.Room
		if eliminated != nil || finished {
			room, err = roomTx.FindByID(ctx, roomID)
			if err != nil {
				return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
			}
		}

		if eliminated != nil {
			if err := markPlayerDead(ctx, roomTx, room, *eliminated); err != nil {
				return err
			}
		}

		if finished {
			losers := make([]uint, 0, len(game.AlivePlayers))
			for _, id := range game.AlivePlayers {
				if id != winnerID {
					losers = append(losers, id)
				}
			}
			// 对局期间已淘汰的成员一并按负场结算
			for _, id := range room.Players.IDs() {
				if id != winnerID && !containsUint(losers, id) {
					losers = append(losers, id)
				}
			}
			if err := e.ranking.ApplyResult(ctx, tx, winnerID, losers); err != nil {
				return err
			}
			if _, err := roomTx.UpdateStatus(ctx, roomID, models.RoomStatusActive, models.RoomStatusFinished); err != nil {
				return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
			}
		}
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			return nil, appErr
		}
		return nil, apperrors.Wrap(err, apperrors.ErrTransaction)
	}

	game.Rounds = rounds
	game.AlivePlayers = alive
	if finished {
		game.State = models.StateFinished
		game.WinnerID = &winnerID
	} else {
		game.State = models.StateRoulettePhase
	}

	logger.LogGameEvent("round_resolved", game.ID, map[string]interface{}{
		"room_id":    roomID,
		"round":      game.CurrentRound,
		"roll":       roll,
		"eliminated": eliminated != nil,
		"finished":   finished,
	})
	if finished {
		e.notifier.NotifyRoom(roomID, EventGameFinished, game)
	} else {
		e.notifier.NotifyRoom(roomID, EventRoundResolved, game)
	}
	return game, nil
}

// AdvanceRound 进入下一轮
// 只允许房间成员在转轮展示阶段触发；若存活人数已不足则直接收局。
func (e *Engine) AdvanceRound(ctx context.Context, userID, roomID uint) (*models.Game, error) {
	room, err := e.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "房间不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if !room.HasPlayer(userID) {
		return nil, apperrors.New(apperrors.ErrNotInRoom)
	}

	game, err := e.gameRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "对局不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	if game.State != models.StateRoulettePhase {
		return nil, apperrors.New(apperrors.ErrWrongGamePhase)
	}

	// 正常流程中收局发生在判定结算里，这里兜底处理
	if len(game.AlivePlayers) <= 1 {
		return e.finalize(ctx, room, game)
	}

	nextRound := game.CurrentRound + 1
	rounds := append(models.RoundList{}, game.Rounds...)
	rounds = append(rounds, e.newRound(nextRound, game.AlivePlayers))

	ok, err := e.gameRepo.UpdateConditional(ctx, game.ID, models.StateRoulettePhase, game.CurrentRound, map[string]interface{}{
		"state":         models.StateMissionPhase,
		"current_round": nextRound,
		"rounds":        rounds,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
	}
	if !ok {
		return nil, apperrors.New(apperrors.ErrConflict, "下一轮已由其他请求开启")
	}

	game.State = models.StateMissionPhase
	game.CurrentRound = nextRound
	game.Rounds = rounds

	logger.LogGameEvent("round_advanced", game.ID, map[string]interface{}{
		"room_id": roomID,
		"round":   nextRound,
	})
	e.notifier.NotifyRoom(roomID, EventRoundAdvanced, game)
	return game, nil
}

// finalize 收局：确定胜者、批量结算战绩、房间转为已结束
func (e *Engine) finalize(ctx context.Context, room *models.Room, game *models.Game) (*models.Game, error) {
	if len(game.AlivePlayers) == 0 {
		return nil, apperrors.New(apperrors.ErrDataIntegrity, "对局没有存活玩家")
	}
	winnerID := game.AlivePlayers[0]

	losers := make([]uint, 0, len(room.Players))
	for _, id := range room.Players.IDs() {
		if id != winnerID {
			losers = append(losers, id)
		}
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roomTx := repository.NewRoomRepository(tx)
		gameTx := repository.NewGameRepository(tx)

		ok, err := gameTx.UpdateConditional(ctx, game.ID, game.State, game.CurrentRound, map[string]interface{}{
			"state":     models.StateFinished,
			"winner_id": winnerID,
		})
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		if !ok {
			return apperrors.New(apperrors.ErrConflict, "对局已由其他请求收局")
		}

		if err := e.ranking.ApplyResult(ctx, tx, winnerID, losers); err != nil {
			return err
		}
		if _, err := roomTx.UpdateStatus(ctx, room.ID, models.RoomStatusActive, models.RoomStatusFinished); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok {
			return nil, appErr
		}
		return nil, apperrors.Wrap(err, apperrors.ErrTransaction)
	}

	game.State = models.StateFinished
	game.WinnerID = &winnerID

	logger.LogGameEvent("game_finished", game.ID, map[string]interface{}{
		"room_id":   room.ID,
		"winner_id": winnerID,
	})
	e.notifier.NotifyRoom(room.ID, EventGameFinished, game)
	return game, nil
}

// markPlayerDead 在房间成员列表里标记淘汰
// 以快照读取时的updated_at做条件写，名单被并发改动时放弃并让事务回滚。
func markPlayerDead(ctx context.Context, roomRepo repository.RoomRepository, room *models.Room, playerID uint) error {
	players := append(models.PlayerList{}, room.Players...)
	for i := range players {
		if players[i].ID == playerID {
			players[i].IsAlive = false
		}
	}
	ok, err := roomRepo.UpdateMembers(ctx, room.ID, room.UpdatedAt, players, room.HostID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
	}
	if !ok {
		return apperrors.New(apperrors.ErrConflict, "房间成员已变动，请重试")
	}
	return nil
}

func containsUint(list []uint, id uint) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
