package dbmysql

import (
	"time"
)

// Listing is a room listing referenced by LISTING_INQUIRY messages.
// The chat core treats it as a read-only join target; listing CRUD and the
// approval workflow are owned by the listings service.
type Listing struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID   string    `gorm:"index;size:36;not null" json:"ownerId"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	City      string    `gorm:"size:100" json:"city"`
	Rent      int       `json:"rent"`
	Status    string    `gorm:"size:20;default:'pending'" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
