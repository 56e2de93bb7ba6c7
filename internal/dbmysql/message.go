package dbmysql

import (
	"time"
)

type MessageType string

const (
	MessageTypeText           MessageType = "TEXT"
	MessageTypeImage          MessageType = "IMAGE"
	MessageTypeListingInquiry MessageType = "LISTING_INQUIRY"
)

// ValidMessageType reports whether t is one of the known variants.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeListingInquiry:
		return true
	}
	return false
}

// Message is a single directed communication unit between two users.
// Rows are append-only; the only mutable column is is_read, which flips
// false -> true exactly once when the receiver opens the conversation.
type Message struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	SenderID    string      `gorm:"index;size:36;not null" json:"senderId"`
	ReceiverID  string      `gorm:"index;size:36;not null" json:"receiverId"`
	Content     string      `gorm:"type:text;not null" json:"content"`
	MessageType MessageType `gorm:"size:20;default:'TEXT'" json:"messageType"`
	ListingID   *string     `gorm:"size:36;index" json:"listingId,omitempty"`
	IsRead      bool        `gorm:"default:false;index" json:"isRead"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	// Read-only joins for hydration
	Sender   *User    `gorm:"foreignKey:SenderID;references:UserID" json:"sender,omitempty"`
	Receiver *User    `gorm:"foreignKey:ReceiverID;references:UserID" json:"receiver,omitempty"`
	Listing  *Listing `gorm:"foreignKey:ListingID;references:ID" json:"listing,omitempty"`
}
