package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Message WebSocket消息
type Message struct {
	Type      string      `json:"type"`
	RoomID    uint        `json:"room_id,omitempty"`
	UserID    uint        `json:"user_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// 系统消息类型（游戏事件类型由引擎定义，透传）
const (
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
	MessageTypeChat      = "chat"
)

// Hub WebSocket连接管理中心
// 连接按房间分组，对局事件只推给订阅了该房间的客户端。
type Hub struct {
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 房间ID到客户端的映射
	roomClients map[uint]map[string]*Client
	roomMu      sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		roomClients: make(map[uint]map[string]*Client),
		broadcast:   make(chan *Message, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToRoom(message)
		}
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	if client.RoomID > 0 {
		h.roomMu.Lock()
		if h.roomClients[client.RoomID] == nil {
			h.roomClients[client.RoomID] = make(map[string]*Client)
		}
		h.roomClients[client.RoomID][client.ID] = client
		h.roomMu.Unlock()
	}

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", client.UserID),
		zap.Uint("room_id", client.RoomID))

	h.SendToClient(client.ID, &Message{
		Type:      MessageTypeConnected,
		RoomID:    client.RoomID,
		Timestamp: time.Now().Unix(),
	})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	if client.RoomID > 0 {
		h.roomMu.Lock()
		if room, ok := h.roomClients[client.RoomID]; ok {
			delete(room, client.ID)
			if len(room) == 0 {
				delete(h.roomClients, client.RoomID)
			}
		}
		h.roomMu.Unlock()
	}

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", client.UserID))
}

// broadcastToRoom 把消息推给房间内的所有客户端
func (h *Hub) broadcastToRoom(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.roomMu.RLock()
	defer h.roomMu.RUnlock()

	for _, client := range h.roomClients[message.RoomID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.Uint("room_id", message.RoomID))
		}
	}
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// NotifyRoom 广播房间事件（实现对局引擎的通知接口）
func (h *Hub) NotifyRoom(roomID uint, event string, payload interface{}) {
	h.broadcast <- &Message{
		Type:      event,
		RoomID:    roomID,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	}
}

// RoomOnlineCount 房间在线人数
func (h *Hub) RoomOnlineCount(roomID uint) int {
	h.roomMu.RLock()
	defer h.roomMu.RUnlock()
	return len(h.roomClients[roomID])
}

// OnlineCount 总在线连接数
func (h *Hub) OnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
