package models

import "time"

// RecoveryToken is a single-use, time-limited credential mailed to a user
// to authorize a password change. It is invalid once consumed or expired.
type RecoveryToken struct {
	Token     string    `json:"-" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"-" gorm:"index;type:varchar(36)"`
	ExpiresAt time.Time `json:"-"`
	Consumed  bool      `json:"-"`
	CreatedAt time.Time `json:"-"`
}
