package service

import (
	"time"

	"roomly/internal/dbmysql"
)

// ConversationSummary is the derived, non-persisted conversation view: the
// pair of participants, the most recent message between them and the number
// of messages the owner has not read yet. The store is the source of truth
// for UnreadCount; clients may cache it optimistically but reconcile on
// refetch.
type ConversationSummary struct {
	ConversationID string           `json:"conversationId"`
	PartnerID      string           `json:"partnerId"`
	Partner        *dbmysql.User    `json:"partner,omitempty"`
	LastMessage    *dbmysql.Message `json:"lastMessage"`
	LastMessageAt  time.Time        `json:"lastMessageAt"`
	UnreadCount    int64            `json:"unreadCount"`
}

// PairID synthesizes an order-independent conversation identifier for an
// unordered pair of participants.
func PairID(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}
