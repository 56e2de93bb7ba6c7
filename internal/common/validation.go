package common

import (
	"errors"
	"strings"
)

const MaxContentLength = 4000

var (
	ErrEmptyContent   = errors.New("message content cannot be empty")
	ErrContentTooLong = errors.New("message content is too long")
	ErrEmptyUserID    = errors.New("user ID cannot be empty")
	ErrUserIDTooLong  = errors.New("user ID is too long")
)

// ValidateContent checks a message body before any persistence attempt.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	if len(content) > MaxContentLength {
		return ErrContentTooLong
	}

	return nil
}

// ValidateUserID rejects obviously malformed identities before hitting the
// user directory.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrEmptyUserID
	}

	if len(userID) > 36 {
		return ErrUserIDTooLong
	}

	return nil
}
