package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/wfunc/liar-roulette/internal/config"
	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/middleware"
	"github.com/wfunc/liar-roulette/internal/service"
	"github.com/wfunc/liar-roulette/internal/websocket"
	"go.uber.org/zap"
)

// WebSocketHandler 房间事件推送处理器
type WebSocketHandler struct {
	hub         *websocket.Hub
	roomService service.RoomService
	upgrader    gorillaws.Upgrader
	log         *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(hub *websocket.Hub, roomService service.RoomService, cfg *config.WebSocketConfig, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		roomService: roomService,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:    cfg.ReadBufferSize,
			WriteBufferSize:   cfg.WriteBufferSize,
			EnableCompression: cfg.EnableCompression,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

// Subscribe 订阅房间事件
// 握手前校验调用者确实是房间成员，升级后由Hub接管连接。
func (h *WebSocketHandler) Subscribe(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !room.HasPlayer(userID) {
		respondError(c, apperrors.New(apperrors.ErrNotInRoom))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, userID, roomID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
