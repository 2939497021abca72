package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// GameState 游戏状态
type GameState string

const (
	StateMissionPhase  GameState = "mission_phase"  // 已派发任务，等待判定玩家提交判定
	StateRoulettePhase GameState = "roulette_phase" // 判定已结算，等待客户端请求下一轮
	StateFinished      GameState = "finished"       // 终态，胜者已确定
)

// Valid 检查状态是否合法
func (s GameState) Valid() bool {
	switch s {
	case StateMissionPhase, StateRoulettePhase, StateFinished:
		return true
	}
	return false
}

// Mission 任务类型（说真话或说谎）
type Mission string

const (
	MissionTruth Mission = "TRUTH"
	MissionLie   Mission = "LIE"
)

// Valid 检查任务值是否合法
func (m Mission) Valid() bool {
	return m == MissionTruth || m == MissionLie
}

// RoleBadge 角色徽章（纯展示用，不影响玩法）
type RoleBadge string

// 可选徽章集合
var RoleBadges = []RoleBadge{"🐴", "🎭", "🐺"}

// 转轮取值范围，弹仓位置与每轮判定掷点都在 [1,6] 内均匀分布
const (
	ChamberMin = 1
	ChamberMax = 6
)

// Round 一轮对局记录（嵌入游戏文档的JSON数组，只追加）
type Round struct {
	RoundNumber        int       `json:"round_number"`
	MissionPlayerID    uint      `json:"mission_player_id"`
	DecisionPlayerID   uint      `json:"decision_player_id"`
	Mission            Mission   `json:"mission"`
	RoleBadge          RoleBadge `json:"role_badge"`
	Decision           Mission   `json:"decision,omitempty"` // 空值表示尚未提交
	EliminatedPlayerID *uint     `json:"eliminated_player_id,omitempty"`
	RouletteResult     *int      `json:"roulette_result,omitempty"`
}

// Resolved 该轮是否已结算
func (r *Round) Resolved() bool {
	return r.Decision != ""
}

// RoundList 轮次历史的JSON列类型
type RoundList []Round

// Value 实现driver.Valuer接口
func (l RoundList) Value() (driver.Value, error) {
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
func (l *RoundList) Scan(value interface{}) error {
	if value == nil {
		*l = RoundList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 扫描为 RoundList", value)
	}

	return json.Unmarshal(data, l)
}

// Game 对局表（一个房间只对应一局游戏）
type Game struct {
	BaseModel
	RoomID       uint      `gorm:"uniqueIndex;not null" json:"room_id"`
	State        GameState `gorm:"size:20;not null;index" json:"state"`
	Chamber      int       `gorm:"not null" json:"-"` // 致命弹仓位置，创建时固定，不对客户端泄露
	CurrentRound int       `gorm:"default:1" json:"current_round"`
	Rounds       RoundList `gorm:"type:json" json:"rounds"`
	AlivePlayers UintList  `gorm:"type:json" json:"alive_players"`
	WinnerID     *uint     `json:"winner_id,omitempty"`
}

// TableName 指定表名
func (Game) TableName() string {
	return "games"
}

// LastRound 返回当前轮记录（历史中的最后一项）
func (g *Game) LastRound() *Round {
	if len(g.Rounds) == 0 {
		return nil
	}
	return &g.Rounds[len(g.Rounds)-1]
}

// IsFinished 游戏是否已结束
func (g *Game) IsFinished() bool {
	return g.State == StateFinished
}

// Validate 读取边界校验：拒绝不符合约束的对局数据
func (g *Game) Validate() error {
	if !g.State.Valid() {
		return fmt.Errorf("未知的游戏状态: %q", g.State)
	}
	if g.Chamber < ChamberMin || g.Chamber > ChamberMax {
		return fmt.Errorf("弹仓位置越界: %d", g.Chamber)
	}
	if len(g.Rounds) != g.CurrentRound {
		return fmt.Errorf("轮次历史长度 %d 与当前轮号 %d 不一致", len(g.Rounds), g.CurrentRound)
	}
	if g.State != StateFinished && len(g.AlivePlayers) == 0 {
		return fmt.Errorf("存活玩家列表为空")
	}
	if (g.WinnerID != nil) != (g.State == StateFinished) {
		return fmt.Errorf("胜者与游戏状态不一致")
	}
	for i, r := range g.Rounds {
		if r.RoundNumber != i+1 {
			return fmt.Errorf("第 %d 项轮次编号为 %d", i+1, r.RoundNumber)
		}
		if r.MissionPlayerID == r.DecisionPlayerID {
			return fmt.Errorf("第 %d 轮任务玩家与判定玩家相同", r.RoundNumber)
		}
		if !r.Mission.Valid() {
			return fmt.Errorf("第 %d 轮任务值非法: %q", r.RoundNumber, r.Mission)
		}
	}
	return nil
}
