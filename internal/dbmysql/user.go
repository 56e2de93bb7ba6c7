package dbmysql

import (
	"time"

	"gorm.io/gorm"
)

// User is the marketplace user directory row. The chat core only reads it:
// account creation, verification and profile editing happen elsewhere.
type User struct {
	UserID    string         `gorm:"primaryKey;column:user_id;size:36" json:"user_id"`
	Name      string         `gorm:"column:name;size:100;not null" json:"name"`
	Email     string         `gorm:"column:email;size:255;uniqueIndex" json:"email"`
	AvatarURL string         `gorm:"column:avatar_url;size:500" json:"avatar_url"`
	Status    string         `gorm:"column:status;type:enum('active','banned','deleted');default:'active'" json:"status"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
