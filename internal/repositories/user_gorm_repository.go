package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"mystore/internal/apperrors"
	"mystore/internal/models"
)

// patchableColumns are the only user columns a partial update may touch.
// Timestamps and the primary key stay system-managed regardless of what
// the caller supplies.
var patchableColumns = map[string]bool{
	"email":    true,
	"password": true,
	"role":     true,
}

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.Create(user).Error; err != nil {
		return translateStorageError(err, "create user")
	}
	return nil
}

// GetAll retrieves {id, email, role, name} projections for every user,
// joined with the optional customer profile.
func (r *GORMUserRepository) GetAll() ([]models.UserProjection, error) {
	var users []models.UserProjection
	err := r.db.Model(&models.User{}).
		Select("users.id, users.email, users.role, COALESCE(customers.name, '') AS name").
		Joins("LEFT JOIN customers ON customers.user_id = users.id").
		Scan(&users).Error
	if err != nil {
		return nil, translateStorageError(err, "list users")
	}
	return users, nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		return nil, translateStorageError(err, fmt.Sprintf("get user by email %s", email))
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Customer").First(&user, "id = ?", id).Error; err != nil {
		return nil, translateStorageError(err, fmt.Sprintf("get user by ID %s", id))
	}
	return &user, nil
}

// UpdatePatch applies a partial update to a user. Only patchable columns
// are written; anything else in changes is dropped.
func (r *GORMUserRepository) UpdatePatch(id string, changes map[string]any) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, translateStorageError(err, fmt.Sprintf("get user by ID %s", id))
	}

	updates := make(map[string]any)
	for column, value := range changes {
		if patchableColumns[column] {
			updates[column] = value
		}
	}

	if len(updates) > 0 {
		if err := r.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, translateStorageError(err, fmt.Sprintf("update user %s", id))
		}
	}

	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, translateStorageError(err, fmt.Sprintf("reload user %s", id))
	}
	return &user, nil
}

// Delete deletes a user by their ID from the database.
func (r *GORMUserRepository) Delete(id string) error {
	res := r.db.Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return translateStorageError(res.Error, fmt.Sprintf("delete user %s", id))
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound(fmt.Sprintf("user with ID %s not found", id))
	}
	return nil
}

// translateStorageError maps GORM errors to the apperrors taxonomy so raw
// driver details never leave the repository layer.
func translateStorageError(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.Wrap(apperrors.KindNotFound, "record not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Wrap(apperrors.KindConflict, "email already exists", err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidValue):
		return apperrors.Wrap(apperrors.KindValidation, "invalid user data", err)
	case errors.Is(err, gorm.ErrInvalidTransaction):
		return apperrors.Wrap(apperrors.KindUnavailable, "storage temporarily unavailable", err)
	default:
		return apperrors.Wrap(apperrors.KindInternal, fmt.Sprintf("failed to %s", op), err)
	}
}
