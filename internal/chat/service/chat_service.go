package service

import (
	"context"
	"errors"
	"sort"

	"roomly/internal/chat/repository"
	"roomly/internal/common"
	"roomly/internal/dbmysql"
	"roomly/internal/user"

	"go.uber.org/zap"
)

// DefaultPageSize is the message page size when the caller does not give one.
const DefaultPageSize = 20

var (
	ErrSenderRequired   = errors.New("sender ID cannot be empty")
	ErrReceiverRequired = errors.New("receiver ID cannot be empty")
	ErrContentRequired  = errors.New("message content cannot be empty")
	ErrInvalidType      = errors.New("invalid message type")
	ErrUnknownReceiver  = errors.New("receiver does not exist")
	ErrNotReceiver      = errors.New("only the receiver can mark a message read")
)

// SendMessageInput carries one send request regardless of transport
// (channel event or HTTP fallback).
type SendMessageInput struct {
	SenderID    string
	ReceiverID  string
	Content     string
	MessageType dbmysql.MessageType
	ListingID   *string
}

// ChatService defines the interface exposed to the channel hub and the HTTP
// handler layer.
type ChatService interface {
	// SendMessage validates, persists and returns the fully hydrated message.
	// Persistence completes before the caller may broadcast anything.
	SendMessage(ctx context.Context, in SendMessageInput) (*dbmysql.Message, error)

	// ListConversations derives the conversation list for a user, sorted by
	// most recent activity. A user with no messages gets an empty slice.
	ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error)

	// ListMessages returns one page of history with the given partner,
	// oldest first for display, and marks the partner's unread messages to
	// the user as read.
	ListMessages(ctx context.Context, userID, partnerID string, offset, limit int) ([]*dbmysql.Message, error)

	// MarkMessageRead flips a single message's read flag on behalf of its
	// receiver.
	MarkMessageRead(ctx context.Context, userID string, messageID uint) error
}

type chatService struct {
	repo      repository.MessageRepository
	directory user.Directory
	logger    *zap.Logger
}

// Constructor used in DI/wire
func NewChatService(r repository.MessageRepository, d user.Directory, logger *zap.Logger) ChatService {
	return &chatService{repo: r, directory: d, logger: logger}
}

func (s *chatService) SendMessage(ctx context.Context, in SendMessageInput) (*dbmysql.Message, error) {
	if in.SenderID == "" {
		return nil, ErrSenderRequired
	}
	if in.ReceiverID == "" {
		return nil, ErrReceiverRequired
	}
	if in.Content == "" {
		return nil, ErrContentRequired
	}
	if err := common.ValidateContent(in.Content); err != nil {
		return nil, err
	}
	if in.MessageType == "" {
		in.MessageType = dbmysql.MessageTypeText
	}
	if !dbmysql.ValidMessageType(in.MessageType) {
		return nil, ErrInvalidType
	}

	ok, err := s.directory.Exists(ctx, in.ReceiverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownReceiver
	}

	msg := &dbmysql.Message{
		SenderID:    in.SenderID,
		ReceiverID:  in.ReceiverID,
		Content:     in.Content,
		MessageType: in.MessageType,
		ListingID:   in.ListingID,
	}
	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, err
	}

	// Reload with sender/receiver/listing joins so every connection of both
	// parties receives the same hydrated payload.
	hydrated, err := s.repo.GetByID(ctx, msg.ID)
	if err != nil {
		s.logger.Warn("message saved but hydration failed",
			zap.Uint("message_id", msg.ID),
			zap.Error(err))
		return msg, nil
	}
	if hydrated == nil {
		return msg, nil
	}
	return hydrated, nil
}

func (s *chatService) ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	partners, err := s.repo.PartnerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(partners))
	for _, partnerID := range partners {
		last, err := s.repo.LastMessage(ctx, userID, partnerID)
		if err != nil {
			return nil, err
		}
		if last == nil {
			continue
		}

		unread, err := s.repo.UnreadCount(ctx, userID, partnerID)
		if err != nil {
			return nil, err
		}

		partner, err := s.directory.GetByID(ctx, partnerID)
		if err != nil {
			s.logger.Warn("failed to hydrate conversation partner",
				zap.String("partner_id", partnerID),
				zap.Error(err))
		}

		summaries = append(summaries, ConversationSummary{
			ConversationID: PairID(userID, partnerID),
			PartnerID:      partnerID,
			Partner:        partner,
			LastMessage:    last,
			LastMessageAt:  last.CreatedAt,
			UnreadCount:    unread,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})

	return summaries, nil
}

func (s *chatService) ListMessages(ctx context.Context, userID, partnerID string, offset, limit int) ([]*dbmysql.Message, error) {
	if userID == "" {
		return nil, ErrSenderRequired
	}
	if partnerID == "" {
		return nil, ErrReceiverRequired
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	// Fetch newest-first so offset windows address stable historical pages,
	// then reverse for oldest-first display.
	messages, err := s.repo.ListBetween(ctx, userID, partnerID, offset, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	// Opening or paginating a conversation is the read action.
	if err := s.repo.MarkConversationRead(ctx, userID, partnerID); err != nil {
		s.logger.Warn("failed to mark conversation read",
			zap.String("user_id", userID),
			zap.String("partner_id", partnerID),
			zap.Error(err))
	}

	return messages, nil
}

func (s *chatService) MarkMessageRead(ctx context.Context, userID string, messageID uint) error {
	msg, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}
	if msg.ReceiverID != userID {
		return ErrNotReceiver
	}

	return s.repo.MarkRead(ctx, messageID, userID)
}
