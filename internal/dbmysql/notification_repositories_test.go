package dbmysql_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
	"startupconnect/internal/dbmysql/dbtest"
)

func TestNotificationRepository_Lifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := dbmysql.NewNotificationRepository(db)
	ctx := context.Background()

	convID := "conv-1"
	first := &dbmysql.Notification{
		UserID:         1,
		Type:           string(common.ChatMessageType),
		Header:         "New message",
		Content:        "hello",
		ConversationID: &convID,
		Metadata:       common.NotificationMetadata{"conversation_id": convID},
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, &dbmysql.Notification{UserID: 1, Type: "system", Header: "h"}))
	require.NoError(t, repo.Create(ctx, &dbmysql.Notification{UserID: 2, Type: "system", Header: "h"}))

	list, err := repo.ByUserID(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, string(common.StatusPending), list[1].Status)
	assert.Equal(t, convID, list[1].Metadata["conversation_id"])

	unread, err := repo.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	require.NoError(t, repo.MarkAsRead(ctx, first.ID, 1))
	unread, err = repo.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	err = repo.MarkAsRead(ctx, first.ID, 2)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestNotificationRepository_CreateError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `notifications`")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	repo := dbmysql.NewNotificationRepository(db)
	err = repo.Create(context.Background(), &dbmysql.Notification{UserID: 1, Type: "system", Header: "h"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationHelpers(t *testing.T) {
	assert.Equal(t, "3:8", dbmysql.PairKey(8, 3))
	assert.Equal(t, dbmysql.PairKey(3, 8), dbmysql.PairKey(8, 3))

	conv := &dbmysql.Conversation{
		Participants: []dbmysql.ConversationParticipant{
			{UserID: 1, IsActive: true, UnreadCount: 0},
			{UserID: 2, IsActive: true, UnreadCount: 4},
			{UserID: 3, IsActive: false, UnreadCount: 9},
		},
	}
	assert.Equal(t, map[uint64]int64{1: 0, 2: 4}, conv.UnreadCounts())
	assert.Equal(t, []uint64{1, 2}, conv.ActiveParticipantIDs())
	assert.True(t, conv.IsParticipant(2))
	assert.False(t, conv.IsParticipant(3))
}
