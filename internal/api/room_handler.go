package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/middleware"
	"github.com/wfunc/liar-roulette/internal/repository"
	"github.com/wfunc/liar-roulette/internal/service"
)

// RoomHandler 房间接口处理器
type RoomHandler struct {
	roomService service.RoomService
	chatService service.ChatService
}

// NewRoomHandler 创建房间处理器
func NewRoomHandler(roomService service.RoomService, chatService service.ChatService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		chatService: chatService,
	}
}

func roomIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, apperrors.New(apperrors.ErrInvalidParam, "无效的房间ID")
	}
	return uint(id), nil
}

func paginationQuery(c *gin.Context) *repository.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return repository.NewPagination(page, pageSize)
}

// Create 创建房间
// @Summary 创建房间
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} SuccessResponse
// @Router /api/v1/rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req struct {
		MaxPlayers int `json:"max_players"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondBadRequest(c, err)
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, req.MaxPlayers)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, room)
}

// Join 凭加入码进入房间
// @Summary 加入房间
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms/join [post]
func (h *RoomHandler) Join(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	room, err := h.roomService.JoinRoom(c.Request.Context(), userID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, room)
}

// Leave 退出房间
// @Summary 退出房间
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms/{id}/leave [post]
func (h *RoomHandler) Leave(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.roomService.LeaveRoom(c.Request.Context(), userID, roomID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// SetReady 设置准备状态
// @Summary 设置准备状态
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms/{id}/ready [post]
func (h *RoomHandler) SetReady(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		Ready *bool `json:"ready" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	room, err := h.roomService.SetReady(c.Request.Context(), userID, roomID, *req.Ready)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, room)
}

// Get 查看房间
// @Summary 查看房间
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
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
	respondOK(c, room)
}

// List 列出可加入的房间
// @Summary 列出可加入的房间
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	p := paginationQuery(c)

	rooms, err := h.roomService.ListRooms(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"rooms": rooms, "pagination": p})
}

// SendMessage 发送房间消息
// @Summary 发送房间消息
// @Tags rooms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 201 {object} SuccessResponse
// @Router /api/v1/rooms/{id}/messages [post]
func (h *RoomHandler) SendMessage(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	msg, err := h.chatService.SendMessage(c.Request.Context(), userID, roomID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, msg)
}

// Messages 拉取房间消息历史
// @Summary 拉取房间消息历史
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param id path int true "房间ID"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/rooms/{id}/messages [get]
func (h *RoomHandler) Messages(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	roomID, err := roomIDParam(c)
	if err != nil {
		respondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	messages, err := h.chatService.History(c.Request.Context(), userID, roomID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messages)
}

// Leaderboard 查看排行榜
// @Summary 查看排行榜
// @Tags leaderboard
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /api/v1/leaderboard [get]
func (h *RoomHandler) Leaderboard(c *gin.Context) {
	p := paginationQuery(c)

	users, err := h.roomService.Leaderboard(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"players": users, "pagination": p})
}
