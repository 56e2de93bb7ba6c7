package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"roomly/internal/dbmysql"
)

// Client -> server events
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventMessageRead = "message-read"
)

// Server -> client events
const (
	EventUserOnline     = "user-online"
	EventUserOffline    = "user-offline"
	EventOnlineUsers    = "online-users"
	EventReceiveMessage = "receive-message"
	EventUserTyping     = "user-typing"
	EventError          = "error"
)

var (
	ErrUnknownEvent    = errors.New("unknown event type")
	ErrMissingUserID   = errors.New("userId is required")
	ErrMissingReceiver = errors.New("receiverId is required")
	ErrMissingContent  = errors.New("content cannot be empty")
	ErrMissingMessage  = errors.New("messageId is required")
)

// Envelope is the wire frame for every event in both directions. Payload
// stays raw until the event name selects a concrete variant; payloads are
// validated before any business logic runs.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinRoom struct {
	UserID string `json:"userId"`
}

type LeaveRoom struct {
	UserID string `json:"userId"`
}

type SendMessage struct {
	SenderID    string              `json:"senderId"`
	ReceiverID  string              `json:"receiverId"`
	Content     string              `json:"content"`
	MessageType dbmysql.MessageType `json:"messageType,omitempty"`
	ListingID   *string             `json:"listingId,omitempty"`
}

type Typing struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

type MessageRead struct {
	MessageID uint `json:"messageId"`
}

type UserOnline struct {
	UserID string `json:"userId"`
}

type UserOffline struct {
	UserID string `json:"userId"`
}

type OnlineUsers struct {
	UserIDs []string `json:"userIds"`
}

type UserTyping struct {
	SenderID string `json:"senderId"`
	IsTyping bool   `json:"isTyping"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEnvelope wraps a payload struct into a wire frame.
func NewEnvelope(name string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return Envelope{Event: name, Payload: raw}, nil
}

// NewError builds the scoped error frame sent back to a single connection.
func NewError(code, message string) Envelope {
	env, _ := NewEnvelope(EventError, ErrorPayload{Code: code, Message: message})
	return env
}

func DecodeJoinRoom(raw json.RawMessage) (JoinRoom, error) {
	var p JoinRoom
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode join-room: %w", err)
	}
	if p.UserID == "" {
		return p, ErrMissingUserID
	}
	return p, nil
}

func DecodeLeaveRoom(raw json.RawMessage) (LeaveRoom, error) {
	var p LeaveRoom
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode leave-room: %w", err)
	}
	if p.UserID == "" {
		return p, ErrMissingUserID
	}
	return p, nil
}

func DecodeSendMessage(raw json.RawMessage) (SendMessage, error) {
	var p SendMessage
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode send-message: %w", err)
	}
	if p.ReceiverID == "" {
		return p, ErrMissingReceiver
	}
	if p.Content == "" {
		return p, ErrMissingContent
	}
	if p.MessageType == "" {
		p.MessageType = dbmysql.MessageTypeText
	}
	if !dbmysql.ValidMessageType(p.MessageType) {
		return p, fmt.Errorf("invalid messageType %q", p.MessageType)
	}
	return p, nil
}

func DecodeTyping(raw json.RawMessage) (Typing, error) {
	var p Typing
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode typing: %w", err)
	}
	if p.ReceiverID == "" {
		return p, ErrMissingReceiver
	}
	return p, nil
}

func DecodeMessageRead(raw json.RawMessage) (MessageRead, error) {
	var p MessageRead
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode message-read: %w", err)
	}
	if p.MessageID == 0 {
		return p, ErrMissingMessage
	}
	return p, nil
}
