package models

import (
	"time"

	"gorm.io/gorm"
)

// Session is a server-side login session, keyed by an opaque token that is
// handed to the browser as a cookie.
type Session struct {
	gorm.Model
	Token     string    `gorm:"uniqueIndex;not null"`
	UserID    uint      `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index"`
}
