package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered journal owner. Accounts start unverified and are
// unlocked by the e-mailed OTP; login is refused until then.
type User struct {
	gorm.Model
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	PhoneNumber  string     `json:"phone_number"`
	IsVerified   bool       `gorm:"default:false" json:"is_verified"`
	OTP          string     `json:"-"`
	OTPExpiry    *time.Time `json:"-"`
}
