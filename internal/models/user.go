package models

import (
	"time"

	"gorm.io/gorm"
)

// User 用户基础信息表
type User struct {
	BaseModel
	Username    string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Nickname    string     `gorm:"size:100" json:"nickname"`
	Suffix      string     `gorm:"size:10;not null" json:"suffix"` // 昵称后缀，如 Alice#3F7K2
	Email       *string    `gorm:"uniqueIndex;size:100" json:"email,omitempty"` // 可选，留空时不占用唯一索引
	Avatar      string     `gorm:"size:255" json:"avatar"`
	Password    string     `gorm:"size:255;not null" json:"-"`
	Status      string     `gorm:"size:20;default:'active'" json:"status"` // active, frozen, banned
	Wins        int64      `gorm:"default:0" json:"wins"`
	Losses      int64      `gorm:"default:0" json:"losses"`
	TotalGames  int64      `gorm:"default:0" json:"total_games"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP string     `gorm:"size:50" json:"last_login_ip"`
}

// TableName 指定User表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 创建前的钩子
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// 设置默认昵称
	if u.Nickname == "" {
		u.Nickname = u.Username
	}
	// 设置默认状态
	if u.Status == "" {
		u.Status = "active"
	}
	return nil
}

// IsActive 检查用户是否激活
func (u *User) IsActive() bool {
	return u.Status == "active"
}

// DisplayName 完整展示名（昵称#后缀）
func (u *User) DisplayName() string {
	return u.Nickname + "#" + u.Suffix
}

// Winrate 胜率百分比（无对局时为0）
func (u *User) Winrate() int {
	total := u.Wins + u.Losses
	if total == 0 {
		return 0
	}
	return int(float64(u.Wins) / float64(total) * 100)
}

// UpdateLoginInfo 更新登录信息
func (u *User) UpdateLoginInfo(ip string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
}
