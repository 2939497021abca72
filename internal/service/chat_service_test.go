package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/liar-roulette/internal/config"
	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/logger"
	"github.com/wfunc/liar-roulette/internal/repository"
	"gorm.io/gorm"
)

func newTestChatService(db *gorm.DB) ChatService {
	cfg := &config.ChatConfig{MaxMessageLength: 500, HistoryLimit: 100}
	return NewChatService(
		repository.NewMessageRepository(db),
		repository.NewRoomRepository(db),
		cfg,
		logger.GetModuleLogger("chat"),
	)
}

func TestChatService_SendAndHistory(t *testing.T) {
	db := repository.TestDB(t)
	svc := newTestChatService(db)
	ctx := context.Background()

	users := repository.SeedUsers(t, db, 3)
	room := repository.SeedRoom(t, db, users[:2], false)

	msg, err := svc.SendMessage(ctx, users[0].ID, room.ID, "  大家好  ")
	require.NoError(t, err)
	assert.Equal(t, "大家好", msg.Content)
	assert.Equal(t, users[0].Nickname, msg.Nickname)

	_, err = svc.SendMessage(ctx, users[1].ID, room.ID, "你好")
	require.NoError(t, err)

	// 历史按时间升序
	history, err := svc.History(ctx, users[0].ID, room.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "大家好", history[0].Content)
	assert.Equal(t, "你好", history[1].Content)

	// 非成员不能发言也不能看历史
	_, err = svc.SendMessage(ctx, users[2].ID, room.ID, "我也来")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInRoom))
	_, err = svc.History(ctx, users[2].ID, room.ID, 10)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInRoom))
}

func TestChatService_Validation(t *testing.T) {
	db := repository.TestDB(t)
	svc := newTestChatService(db)
	ctx := context.Background()

	users := repository.SeedUsers(t, db, 2)
	room := repository.SeedRoom(t, db, users, false)

	// 空消息
	_, err := svc.SendMessage(ctx, users[0].ID, room.ID, "   ")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParam))

	// 超长消息
	_, err = svc.SendMessage(ctx, users[0].ID, room.ID, strings.Repeat("啊", 501))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParam))

	// 房间不存在
	_, err = svc.SendMessage(ctx, users[0].ID, 9999, "hello")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
