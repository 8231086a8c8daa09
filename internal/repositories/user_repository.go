package repositories

import "mystore/internal/models"

// UserRepository defines the interface for user data access.
// Implementations translate storage failures into the apperrors taxonomy.
type UserRepository interface {
	Create(user *models.User) error
	GetAll() ([]models.UserProjection, error)
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
	UpdatePatch(id string, changes map[string]any) (*models.User, error)
	Delete(id string) error
}
