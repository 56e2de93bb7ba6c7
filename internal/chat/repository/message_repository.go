package repository

import (
	"context"
	"errors"

	"roomly/internal/dbmysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageRepository is the persistence contract for conversation messages.
// Messages are append-only; is_read is the only column updated after insert.
type MessageRepository interface {
	Save(ctx context.Context, msg *dbmysql.Message) error
	GetByID(ctx context.Context, id uint) (*dbmysql.Message, error)

	// ListBetween returns messages exchanged between the pair, newest first,
	// paginated by offset/limit.
	ListBetween(ctx context.Context, userID, partnerID string, offset, limit int) ([]*dbmysql.Message, error)

	// LastMessage returns the most recent message between the pair in either
	// direction, or nil when the pair has never exchanged one.
	LastMessage(ctx context.Context, userID, partnerID string) (*dbmysql.Message, error)

	// PartnerIDs returns the distinct set of users the given user has
	// exchanged at least one message with, as sender or receiver.
	PartnerIDs(ctx context.Context, userID string) ([]string, error)

	UnreadCount(ctx context.Context, userID, partnerID string) (int64, error)

	// MarkRead flips is_read on a single message owned by receiverID.
	MarkRead(ctx context.Context, messageID uint, receiverID string) error

	// MarkConversationRead flips is_read on every unread message from
	// partnerID to userID.
	MarkConversationRead(ctx context.Context, userID, partnerID string) error
}

type messageRepo struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewMessageRepository(db *gorm.DB, logger *zap.Logger) MessageRepository {
	return &messageRepo{db: db, logger: logger}
}

func (r *messageRepo) Save(ctx context.Context, msg *dbmysql.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		r.logger.Error("failed to save message",
			zap.String("sender_id", msg.SenderID),
			zap.String("receiver_id", msg.ReceiverID),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *messageRepo) GetByID(ctx context.Context, id uint) (*dbmysql.Message, error) {
	var msg dbmysql.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Listing").
		First(&msg, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) ListBetween(ctx context.Context, userID, partnerID string, offset, limit int) ([]*dbmysql.Message, error) {
	var messages []*dbmysql.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Listing").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, partnerID, partnerID, userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		r.logger.Error("failed to list messages",
			zap.String("user_id", userID),
			zap.String("partner_id", partnerID),
			zap.Error(err))
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) LastMessage(ctx context.Context, userID, partnerID string) (*dbmysql.Message, error) {
	var msg dbmysql.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Listing").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, partnerID, partnerID, userID).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) PartnerIDs(ctx context.Context, userID string) ([]string, error) {
	var partners []string
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Message{}).
		Select("DISTINCT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS partner_id", userID).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Pluck("partner_id", &partners).Error
	if err != nil {
		r.logger.Error("failed to resolve conversation partners",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}
	return partners, nil
}

func (r *messageRepo) UnreadCount(ctx context.Context, userID, partnerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&dbmysql.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", partnerID, userID, false).
		Count(&count).Error
	return count, err
}

func (r *messageRepo) MarkRead(ctx context.Context, messageID uint, receiverID string) error {
	return r.db.WithContext(ctx).
		Model(&dbmysql.Message{}).
		Where("id = ? AND receiver_id = ? AND is_read = ?", messageID, receiverID, false).
		Update("is_read", true).Error
}

func (r *messageRepo) MarkConversationRead(ctx context.Context, userID, partnerID string) error {
	return r.db.WithContext(ctx).
		Model(&dbmysql.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", partnerID, userID, false).
		Update("is_read", true).Error
}
