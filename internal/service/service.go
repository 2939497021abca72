package service

import (
	"time"

	"github.com/wfunc/liar-roulette/internal/config"
	"github.com/wfunc/liar-roulette/internal/game"
	"github.com/wfunc/liar-roulette/internal/logger"
	"github.com/wfunc/liar-roulette/internal/repository"
	"github.com/wfunc/liar-roulette/internal/utils"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth    AuthService
	Room    RoomService
	Chat    ChatService
	Engine  *game.Engine
	Cleanup *game.CleanupScheduler
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, cfg *config.Config) *Services {
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	gameRepo := repository.NewGameRepository(db)
	msgRepo := repository.NewMessageRepository(db)

	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
		time.Duration(cfg.Security.JWT.RefreshHours)*time.Hour,
	)

	engine := game.NewEngine(db, game.NewCryptoRandomGenerator(), cfg.Game.Room.MinPlayers)
	cleanup := game.NewCleanupScheduler(db, &cfg.Game.Cleanup)

	authService := NewAuthService(userRepo, jwtManager, logger.GetModuleLogger("auth"))
	roomService := NewRoomService(db, roomRepo, gameRepo, userRepo, cleanup, &cfg.Game.Room, logger.GetModuleLogger("room"))
	chatService := NewChatService(msgRepo, roomRepo, &cfg.Game.Chat, logger.GetModuleLogger("chat"))

	return &Services{
		Auth:    authService,
		Room:    roomService,
		Chat:    chatService,
		Engine:  engine,
		Cleanup: cleanup,
	}
}
