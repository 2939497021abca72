package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RoomStatus 房间状态
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"  // 等待玩家
	RoomStatusActive   RoomStatus = "active"   // 游戏进行中
	RoomStatusFinished RoomStatus = "finished" // 游戏已结束
)

// 状态只允许单向推进：waiting -> active -> finished
var roomStatusOrder = map[RoomStatus]int{
	RoomStatusWaiting:  0,
	RoomStatusActive:   1,
	RoomStatusFinished: 2,
}

// Valid 检查状态是否合法
func (s RoomStatus) Valid() bool {
	_, ok := roomStatusOrder[s]
	return ok
}

// CanTransitionTo 检查状态是否允许推进到目标状态
func (s RoomStatus) CanTransitionTo(target RoomStatus) bool {
	from, ok1 := roomStatusOrder[s]
	to, ok2 := roomStatusOrder[target]
	return ok1 && ok2 && to == from+1
}

// RoomPlayer 房间成员记录（嵌入房间文档的JSON数组）
type RoomPlayer struct {
	ID       uint   `json:"id"`
	Nickname string `json:"nickname"`
	Suffix   string `json:"suffix"`
	Avatar   string `json:"avatar,omitempty"`
	IsHost   bool   `json:"is_host"`
	IsAlive  bool   `json:"is_alive"`
	IsReady  bool   `json:"is_ready"`
}

// PlayerList 房间成员列表的JSON列类型
type PlayerList []RoomPlayer

// Value 实现driver.Valuer接口
func (l PlayerList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现sql.Scanner接口
func (l *PlayerList) Scan(value interface{}) error {
	if value == nil {
		*l = PlayerList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 扫描为 PlayerList", value)
	}

	return json.Unmarshal(data, l)
}

// IDs 返回成员ID列表（保持加入顺序）
func (l PlayerList) IDs() []uint {
	ids := make([]uint, 0, len(l))
	for _, p := range l {
		ids = append(ids, p.ID)
	}
	return ids
}

// Find 按ID查找成员
func (l PlayerList) Find(id uint) (RoomPlayer, bool) {
	for _, p := range l {
		if p.ID == id {
			return p, true
		}
	}
	return RoomPlayer{}, false
}

// AllReady 检查是否所有成员都已准备
func (l PlayerList) AllReady() bool {
	for _, p := range l {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// Room 游戏房间表
type Room struct {
	BaseModel
	Code       string     `gorm:"uniqueIndex;size:20;not null" json:"code"` // 可分享的加入码
	HostID     uint       `gorm:"not null;index" json:"host_id"`
	Players    PlayerList `gorm:"type:json" json:"players"`
	MaxPlayers int        `gorm:"default:6" json:"max_players"`
	Status     RoomStatus `gorm:"size:20;default:'waiting';index" json:"status"`
}

// TableName 指定表名
func (Room) TableName() string {
	return "rooms"
}

// HasPlayer 检查用户是否是房间成员
func (r *Room) HasPlayer(userID uint) bool {
	_, ok := r.Players.Find(userID)
	return ok
}

// IsFull 检查房间是否已满
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// IsEmpty 检查房间是否没有成员
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

// Validate 读取边界校验：拒绝不符合约束的房间数据
func (r *Room) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("未知的房间状态: %q", r.Status)
	}
	if r.MaxPlayers <= 0 {
		return fmt.Errorf("无效的最大人数: %d", r.MaxPlayers)
	}
	if len(r.Players) > r.MaxPlayers {
		return fmt.Errorf("成员数 %d 超过上限 %d", len(r.Players), r.MaxPlayers)
	}
	seen := make(map[uint]bool, len(r.Players))
	for _, p := range r.Players {
		if seen[p.ID] {
			return fmt.Errorf("成员ID重复: %d", p.ID)
		}
		seen[p.ID] = true
	}
	// 房主必须是成员（空房间等待清理时除外）
	if len(r.Players) > 0 && r.Status == RoomStatusWaiting {
		if _, ok := r.Players.Find(r.HostID); !ok {
			return fmt.Errorf("房主 %d 不在成员列表中", r.HostID)
		}
	}
	return nil
}
