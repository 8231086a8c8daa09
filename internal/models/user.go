package models

import "time"

// Roles a user can hold.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
	RoleSeller   = "seller"
)

// User represents an account in the store.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string    `json:"-" gorm:"type:varchar(255)" validate:"required,min=6"` // bcrypt hash at rest, never serialized
	Role      string    `json:"role" gorm:"type:varchar(20)" validate:"required,oneof=admin customer seller"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Customer  *Customer `json:"customer,omitempty" gorm:"foreignKey:UserID"`
}

// UserProjection is the read shape returned by list endpoints:
// user identity joined with the optional customer profile name.
// It deliberately has no password field.
type UserProjection struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}
