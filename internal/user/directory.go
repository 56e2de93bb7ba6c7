package user

import (
	"context"
	"errors"

	"roomly/internal/dbmysql"

	"gorm.io/gorm"
)

// Directory is the read-only view of the marketplace user table the chat
// core needs: identity existence checks and profile hydration. Account
// lifecycle is owned by the profile service.
type Directory interface {
	GetByID(ctx context.Context, userID string) (*dbmysql.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

type directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) Directory {
	return &directory{db: db}
}

func (d *directory) GetByID(ctx context.Context, userID string) (*dbmysql.User, error) {
	var u dbmysql.User
	err := d.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, "active").First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

func (d *directory) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&dbmysql.User{}).
		Where("user_id = ? AND status = ?", userID, "active").
		Count(&count).Error
	return count > 0, err
}
