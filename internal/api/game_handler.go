package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/liar-roulette/internal/game"
	"github.com/wfunc/liar-roulette/internal/middleware"
	"github.com/wfunc/liar-roulette/internal/models"
)

// GameHandler 对局接口处理器
type GameHandler struct {
	engine *game.Engine
}

// NewGameHandler 创建对局处理器
func NewGameHandler(engine *game.Engine) *GameHandler {
	return &GameHandler{engine: engine}
}

// Start 房主开局
// @Summary 开始游戏
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 201 {object} SuccessResponse
// @Router /api/v1/rooms/{id}/game/start [post]
func (h *GameHandler) Start(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	g, err := h.engine.StartGame(c.Request.Context(), userID, roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, g)
}

// Get 查看当前对局
// @Summary 查看当前对局
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms/{id}/game [get]
func (h *GameHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	g, err := h.engine.GetGame(c.Request.Context(), userID, roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, g)
}

// SubmitDecision 判定玩家提交判定
// @Summary 提交判定
// @Tags games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms/{id}/game/decision [post]
func (h *GameHandler) SubmitDecision(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		Decision models.Mission `json:"decision" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	g, err := h.engine.SubmitDecision(c.Request.Context(), userID, roomID, req.Decision)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, g)
}

// Advance 进入下一轮
// @Summary 进入下一轮
// @Tags games
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms/{id}/game/advance [post]
func (h *GameHandler) Advance(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	g, err := h.engine.AdvanceRound(c.Request.Context(), userID, roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, g)
}
