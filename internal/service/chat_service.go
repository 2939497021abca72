package service

import (
	"context"
	"strings"

	"github.com/wfunc/liar-roulette/internal/config"
	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/models"
	"github.com/wfunc/liar-roulette/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChatService 房间聊天服务接口
type ChatService interface {
	SendMessage(ctx context.Context, userID, roomID uint, content string) (*models.ChatMessage, error)
	History(ctx context.Context, userID, roomID uint, limit int) ([]*models.ChatMessage, error)
}

// chatService 房间聊天服务实现
type chatService struct {
	msgRepo  repository.MessageRepository
	roomRepo repository.RoomRepository
	cfg      *config.ChatConfig
	log      *zap.Logger
}

// NewChatService 创建聊天服务
func NewChatService(msgRepo repository.MessageRepository, roomRepo repository.RoomRepository, cfg *config.ChatConfig, log *zap.Logger) ChatService {
	return &chatService{
		msgRepo:  msgRepo,
		roomRepo: roomRepo,
		cfg:      cfg,
		log:      log,
	}
}

// SendMessage 发送房间消息（仅成员可发）
func (s *chatService) SendMessage(ctx context.Context, userID, roomID uint, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "消息不能为空")
	}
	if len([]rune(content)) > s.cfg.MaxMessageLength {
		return nil, apperrors.Newf(apperrors.ErrInvalidParam, "消息长度不能超过%d字", s.cfg.MaxMessageLength)
	}

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "房间不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	player, ok := room.Players.Find(userID)
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotInRoom)
	}

	msg := &models.ChatMessage{
		RoomID:   roomID,
		UserID:   userID,
		Nickname: player.Nickname,
		Suffix:   player.Suffix,
		Content:  content,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	s.log.Debug("消息已发送",
		zap.Uint("room_id", roomID),
		zap.Uint("user_id", userID),
	)
	return msg, nil
}

// History 拉取房间最近的消息（仅成员可看）
func (s *chatService) History(ctx context.Context, userID, roomID uint, limit int) ([]*models.ChatMessage, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "房间不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if !room.HasPlayer(userID) {
		return nil, apperrors.New(apperrors.ErrNotInRoom)
	}

	messages, err := s.msgRepo.FindRecentByRoomID(ctx, roomID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return messages, nil
}
