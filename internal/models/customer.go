package models

import "time"

// Customer is an optional profile attached to a User.
type Customer struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name      string    `json:"name" gorm:"type:varchar(100)" validate:"required,min=2,max=100"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex;type:varchar(36)" validate:"required,uuid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
