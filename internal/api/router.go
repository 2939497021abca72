package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/liar-roulette/internal/config"
	"github.com/wfunc/liar-roulette/internal/logger"
	"github.com/wfunc/liar-roulette/internal/middleware"
	"github.com/wfunc/liar-roulette/internal/service"
	"github.com/wfunc/liar-roulette/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	hub            *websocket.Hub
	authHandler    *AuthHandler
	roomHandler    *RoomHandler
	gameHandler    *GameHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, cfg *config.Config, log *zap.Logger) *Router {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())

	services := service.NewServices(db, cfg)

	// 对局事件经Hub推给房间内的订阅者
	hub := websocket.NewHub(logger.GetModuleLogger("websocket"))
	services.Engine.SetNotifier(hub)

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		hub:            hub,
		authHandler:    NewAuthHandler(services.Auth),
		roomHandler:    NewRoomHandler(services.Room, services.Chat),
		gameHandler:    NewGameHandler(services.Engine),
		wsHandler:      NewWebSocketHandler(hub, services.Room, &cfg.WebSocket, logger.GetModuleLogger("websocket")),
		authMiddleware: middleware.NewAuthMiddleware(services.Auth),
		log:            log,
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// Swagger文档（仅 -tags swagger 构建时可用）
	registerSwaggerRoutes(r.engine)

	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.RefreshToken)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.GET("/profile", r.authHandler.GetProfile)
			}
		}

		// 排行榜公开可看
		v1.GET("/leaderboard", r.roomHandler.Leaderboard)

		// 房间与对局路由（需要认证）
		rooms := v1.Group("/rooms")
		rooms.Use(r.authMiddleware.RequireAuth())
		{
			rooms.GET("", r.roomHandler.List)
			rooms.POST("", r.roomHandler.Create)
			rooms.POST("/join", r.roomHandler.Join)
			rooms.GET("/:id", r.roomHandler.Get)
			rooms.POST("/:id/leave", r.roomHandler.Leave)
			rooms.POST("/:id/ready", r.roomHandler.SetReady)
			rooms.GET("/:id/messages", r.roomHandler.Messages)
			rooms.POST("/:id/messages", r.roomHandler.SendMessage)

			rooms.GET("/:id/game", r.gameHandler.Get)
			rooms.POST("/:id/game/start", r.gameHandler.Start)
			rooms.POST("/:id/game/decision", r.gameHandler.SubmitDecision)
			rooms.POST("/:id/game/advance", r.gameHandler.Advance)
		}
	}

	// WebSocket路由
	ws := r.engine.Group("/ws")
	ws.Use(r.authMiddleware.RequireAuth())
	{
		ws.GET("/rooms/:id", r.wsHandler.Subscribe)
	}

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// requestLogger 请求日志中间件
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// Hub 获取WebSocket Hub
func (r *Router) Hub() *websocket.Hub {
	return r.hub
}

// Services 获取服务集合
func (r *Router) Services() *service.Services {
	return r.services
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
