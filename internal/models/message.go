package models

// ChatMessage 房间聊天消息表
type ChatMessage struct {
	BaseModel
	RoomID   uint   `gorm:"not null;index" json:"room_id"`
	UserID   uint   `gorm:"not null" json:"user_id"`
	Nickname string `gorm:"size:100" json:"nickname"`
	Suffix   string `gorm:"size:10" json:"suffix"`
	Content  string `gorm:"size:500;not null" json:"content"`
}

// TableName 指定表名
func (ChatMessage) TableName() string {
	return "chat_messages"
}
