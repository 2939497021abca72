package service

import (
	"context"

	"github.com/wfunc/liar-roulette/internal/config"
	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/game"
	"github.com/wfunc/liar-roulette/internal/models"
	"github.com/wfunc/liar-roulette/internal/repository"
	"github.com/wfunc/liar-roulette/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 成员变更的乐观重试次数
const memberUpdateRetries = 3

// RoomService 房间服务接口
type RoomService interface {
	CreateRoom(ctx context.Context, userID uint, maxPlayers int) (*models.Room, error)
	JoinRoom(ctx context.Context, userID uint, code string) (*models.Room, error)
	LeaveRoom(ctx context.Context, userID, roomID uint) error
	SetReady(ctx context.Context, userID, roomID uint, ready bool) (*models.Room, error)
	GetRoom(ctx context.Context, roomID uint) (*models.Room, error)
	ListRooms(ctx context.Context, p *repository.Pagination) ([]*models.Room, error)
	Leaderboard(ctx context.Context, p *repository.Pagination) ([]*models.User, error)
}

// roomService 房间服务实现
type roomService struct {
	db       *gorm.DB
	roomRepo repository.RoomRepository
	gameRepo repository.GameRepository
	userRepo repository.UserRepository
	cleanup  *game.CleanupScheduler
	cfg      *config.RoomConfig
	log      *zap.Logger
}

// NewRoomService 创建房间服务
func NewRoomService(
	db *gorm.DB,
	roomRepo repository.RoomRepository,
	gameRepo repository.GameRepository,
	userRepo repository.UserRepository,
	cleanup *game.CleanupScheduler,
	cfg *config.RoomConfig,
	log *zap.Logger,
) RoomService {
	return &roomService{
		db:       db,
		roomRepo: roomRepo,
		gameRepo: gameRepo,
		userRepo: userRepo,
		cleanup:  cleanup,
		cfg:      cfg,
		log:      log,
	}
}

// CreateRoom 创建房间，创建者成为房主并默认已准备
func (s *roomService) CreateRoom(ctx context.Context, userID uint, maxPlayers int) (*models.Room, error) {
	if maxPlayers <= 0 {
		maxPlayers = s.cfg.DefaultMaxPlayers
	}
	if maxPlayers < s.cfg.MinPlayers || maxPlayers > s.cfg.MaxPlayersLimit {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "人数上限须在%d到%d之间", s.cfg.MinPlayers, s.cfg.MaxPlayersLimit)
	}

	if _, err := s.roomRepo.FindByPlayer(ctx, userID); err == nil {
		return nil, apperrors.New(apperrors.ErrAlreadyInRoom, "请先退出当前房间")
	} else if err != gorm.ErrRecordNotFound {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	room := &models.Room{
		HostID: userID,
		Players: models.PlayerList{{
			ID:       user.ID,
			Nickname: user.Nickname,
			Suffix:   user.Suffix,
			Avatar:   user.Avatar,
			IsHost:   true,
			IsAlive:  true,
			IsReady:  true,
		}},
		MaxPlayers: maxPlayers,
		Status:     models.RoomStatusWaiting,
	}

	// 加入码撞库时换一个再试
	for attempt := 0; attempt < memberUpdateRetries; attempt++ {
		room.Code = utils.GenerateRoomCode()
		err = s.roomRepo.Create(ctx, room)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	s.log.Info("房间已创建",
		zap.Uint("room_id", room.ID),
		zap.String("code", room.Code),
		zap.Uint("host_id", userID),
	)
	return room, nil
}

// JoinRoom 凭加入码进入房间
func (s *roomService) JoinRoom(ctx context.Context, userID uint, code string) (*models.Room, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	for attempt := 0; attempt < memberUpdateRetries; attempt++ {
		room, err := s.roomRepo.FindByCode(ctx, code)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.New(apperrors.ErrNotFound, "房间不存在")
			}
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}

		if room.Status != models.RoomStatusWaiting {
			return nil, apperrors.New(apperrors.ErrRoomNotWaiting)
		}
		if room.HasPlayer(userID) {
			return nil, apperrors.New(apperrors.ErrAlreadyInRoom)
		}
		if room.IsFull() {
			return nil, apperrors.New(apperrors.ErrRoomFull)
		}

		players := append(models.PlayerList{}, room.Players...)
		players = append(players, models.RoomPlayer{
			ID:       user.ID,
			Nickname: user.Nickname,
			Suffix:   user.Suffix,
			Avatar:   user.Avatar,
			IsAlive:  true,
		})

		ok, err := s.roomRepo.UpdateMembers(ctx, room.ID, room.UpdatedAt, players, room.HostID)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		if ok {
			room.Players = players
			s.log.Info("玩家加入房间",
				zap.Uint("room_id", room.ID),
				zap.Uint("user_id", userID),
				zap.Int("players", len(players)),
			)
			return room, nil
		}
		// 其他成员抢先改了名单，重读再试
	}

	return nil, apperrors.New(apperrors.ErrConflict, "房间成员变动频繁，请重试")
}

// LeaveRoom 退出房间
// 房主退出时由最早加入的剩余成员接任；最后一人退出时房间连同
// 对局和聊天记录立刻级联删除，不等定时清理。
func (s *roomService) LeaveRoom(ctx context.Context, userID, roomID uint) error {
	for attempt := 0; attempt < memberUpdateRetries; attempt++ {
		room, err := s.roomRepo.FindByID(ctx, roomID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.New(apperrors.ErrNotFound, "房间不存在")
			}
			return apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}

		if !room.HasPlayer(userID) {
			return apperrors.New(apperrors.ErrNotInRoom)
		}

		players := make(models.PlayerList, 0, len(room.Players)-1)
		for _, p := range room.Players {
			if p.ID != userID {
				players = append(players, p)
			}
		}

		if len(players) == 0 {
			if err := s.cleanup.CleanupRoom(ctx, roomID); err != nil {
				return err
			}
			s.log.Info("空房间已删除", zap.Uint("room_id", roomID))
			return nil
		}

		hostID := room.HostID
		if hostID == userID {
			hostID = players[0].ID
			players[0].IsHost = true
		}

		ok, err := s.roomRepo.UpdateMembers(ctx, roomID, room.UpdatedAt, players, hostID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		if ok {
			s.log.Info("玩家退出房间",
				zap.Uint("room_id", roomID),
				zap.Uint("user_id", userID),
				zap.Uint("host_id", hostID),
			)
			return nil
		}
	}

	return apperrors.New(apperrors.ErrConflict, "房间成员变动频繁，请重试")
}

// SetReady 设置准备状态
func (s *roomService) SetReady(ctx context.Context, userID, roomID uint, ready bool) (*models.Room, error) {
	for attempt := 0; attempt < memberUpdateRetries; attempt++ {
		room, err := s.roomRepo.FindByID(ctx, roomID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.New(apperrors.ErrNotFound, "房间不存在")
			}
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}

		if room.Status != models.RoomStatusWaiting {
			return nil, apperrors.New(apperrors.ErrRoomNotWaiting)
		}
		if !room.HasPlayer(userID) {
			return nil, apperrors.New(apperrors.ErrNotInRoom)
		}

		players := append(models.PlayerList{}, room.Players...)
		for i := range players {
			if players[i].ID == userID {
				players[i].IsReady = ready
			}
		}

		ok, err := s.roomRepo.UpdateMembers(ctx, roomID, room.UpdatedAt, players, room.HostID)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseUpdate)
		}
		if ok {
			room.Players = players
			return room, nil
		}
	}

	return nil, apperrors.New(apperrors.ErrConflict, "房间成员变动频繁，请重试")
}

// GetRoom 查看房间
func (s *roomService) GetRoom(ctx context.Context, roomID uint) (*models.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "房间不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return room, nil
}

// ListRooms 列出可加入的房间
func (s *roomService) ListRooms(ctx context.Context, p *repository.Pagination) ([]*models.Room, error) {
	rooms, err := s.roomRepo.ListWaiting(ctx, p)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return rooms, nil
}

// Leaderboard 查看排行榜
func (s *roomService) Leaderboard(ctx context.Context, p *repository.Pagination) ([]*models.User, error) {
	users, err := s.userRepo.Leaderboard(ctx, p)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return users, nil
}
