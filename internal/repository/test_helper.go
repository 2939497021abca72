package repository

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-roulette/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 创建测试数据库
func TestDB(t *testing.T) *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库随连接销毁，限制为单连接，避免连接池各开各的空库
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.Game{},
		&models.ChatMessage{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	return db
}

var userSeq atomic.Uint32

// SeedUsers 创建n个测试用户
// 用户名取自全局序号，同一测试库里多次播种不会撞唯一索引。
func SeedUsers(t *testing.T, db *gorm.DB, n int) []models.User {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		seq := userSeq.Add(1)
		users = append(users, models.User{
			Username: fmt.Sprintf("player%d", seq),
			Nickname: fmt.Sprintf("玩家%d", seq),
			Suffix:   fmt.Sprintf("TST%03d", seq),
			Password: "hashed-password",
			Status:   "active",
		})
	}
	err := db.Create(&users).Error
	require.NoError(t, err)
	return users
}

var roomSeq atomic.Uint32

// SeedRoom 创建一个等待中的测试房间，成员为给定用户，首个用户为房主
func SeedRoom(t *testing.T, db *gorm.DB, users []models.User, allReady bool) *models.Room {
	require.NotEmpty(t, users)

	players := make(models.PlayerList, 0, len(users))
	for i, u := range users {
		players = append(players, models.RoomPlayer{
			ID:       u.ID,
			Nickname: u.Nickname,
			Suffix:   u.Suffix,
			IsHost:   i == 0,
			IsAlive:  true,
			IsReady:  allReady || i == 0,
		})
	}

	room := &models.Room{
		Code:       fmt.Sprintf("ROOM-%05d", roomSeq.Add(1)),
		HostID:     users[0].ID,
		Players:    players,
		MaxPlayers: 6,
		Status:     models.RoomStatusWaiting,
	}
	err := db.Create(room).Error
	require.NoError(t, err)
	return room
}
