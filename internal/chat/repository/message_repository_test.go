package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"roomly/internal/dbmysql"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}

	return gormDB, mock, cleanup
}

func TestMessageRepository_Save(t *testing.T) {
	tests := []struct {
		name        string
		message     *dbmysql.Message
		mockSetup   func(sqlmock.Sqlmock)
		expectError bool
	}{
		{
			name: "successful save",
			message: &dbmysql.Message{
				SenderID:    "u1",
				ReceiverID:  "u2",
				Content:     "hi",
				MessageType: dbmysql.MessageTypeText,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO `messages`").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
			expectError: false,
		},
		{
			name: "database error",
			message: &dbmysql.Message{
				SenderID:    "u1",
				ReceiverID:  "u2",
				Content:     "hi",
				MessageType: dbmysql.MessageTypeText,
			},
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO `messages`").
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()

			tt.mockSetup(mock)

			repo := NewMessageRepository(db, zap.NewNop())
			err := repo.Save(context.Background(), tt.message)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMessageRepository_ListBetween(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "sender_id", "receiver_id", "content", "message_type", "listing_id", "is_read", "created_at", "updated_at",
	}).
		AddRow(2, "u2", "u1", "how are you", "TEXT", nil, false, now, now).
		AddRow(1, "u1", "u2", "hi", "TEXT", nil, true, now.Add(-time.Minute), now.Add(-time.Minute))

	// LIMIT and OFFSET bind as trailing parameters
	mock.ExpectQuery("SELECT \\* FROM `messages`").
		WithArgs("u1", "u2", "u2", "u1", 20, 5).
		WillReturnRows(rows)

	// Preloads run per association, alphabetically; Listing is skipped since
	// no row carries a listing_id.
	userRows := sqlmock.NewRows([]string{"user_id", "name", "status"}).
		AddRow("u1", "Ana", "active").
		AddRow("u2", "Ben", "active")
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows)
	userRows2 := sqlmock.NewRows([]string{"user_id", "name", "status"}).
		AddRow("u1", "Ana", "active").
		AddRow("u2", "Ben", "active")
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(userRows2)

	repo := NewMessageRepository(db, zap.NewNop())
	messages, err := repo.ListBetween(context.Background(), "u1", "u2", 5, 20)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Newest first, as persisted order dictates
	assert.Equal(t, uint(2), messages[0].ID)
	assert.Equal(t, uint(1), messages[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_PartnerIDs(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"partner_id"}).
		AddRow("u2").
		AddRow("u3")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS partner_id FROM `messages`")).
		WithArgs("u1", "u1", "u1").
		WillReturnRows(rows)

	repo := NewMessageRepository(db, zap.NewNop())
	partners, err := repo.PartnerIDs(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, partners)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_UnreadCount(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `messages`").
		WithArgs("u2", "u1", false).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(3))

	repo := NewMessageRepository(db, zap.NewNop())
	count, err := repo.UnreadCount(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_MarkConversationRead(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `messages` SET").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	repo := NewMessageRepository(db, zap.NewNop())
	err := repo.MarkConversationRead(context.Background(), "u1", "u2")
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_MarkRead(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `messages` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewMessageRepository(db, zap.NewNop())
	err := repo.MarkRead(context.Background(), 42, "u1")
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_LastMessage_None(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM `messages`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewMessageRepository(db, zap.NewNop())
	msg, err := repo.LastMessage(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.Nil(t, msg)

	assert.NoError(t, mock.ExpectationsWereMet())
}
