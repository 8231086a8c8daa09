package repositories

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mystore/internal/apperrors"
	"mystore/internal/models"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.User
	names map[string]string // user ID -> customer name
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
		names: make(map[string]string),
	}
}

// Create adds a new user, enforcing email uniqueness like the real store.
func (r *MockUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.Conflict("email already exists")
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

// SetCustomerName attaches a profile name used by GetAll projections.
func (r *MockUserRepository) SetCustomerName(userID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[userID] = name
}

// GetAll returns projections for all users.
func (r *MockUserRepository) GetAll() ([]models.UserProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projections := make([]models.UserProjection, 0, len(r.users))
	for _, u := range r.users {
		projections = append(projections, models.UserProjection{
			ID:    u.ID,
			Email: u.Email,
			Role:  u.Role,
			Name:  r.names[u.ID],
		})
	}
	return projections, nil
}

// GetByEmail returns a user by email.
func (r *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, apperrors.NotFound("record not found")
}

// GetByID returns a user by its ID.
func (r *MockUserRepository) GetByID(id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("user with ID %s not found", id))
	}
	return &user, nil
}

// UpdatePatch applies a partial update, honoring the patchable-column rules.
func (r *MockUserRepository) UpdatePatch(id string, changes map[string]any) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("user with ID %s not found", id))
	}
	for column, value := range changes {
		if !patchableColumns[column] {
			continue
		}
		s, _ := value.(string)
		switch column {
		case "email":
			user.Email = s
		case "password":
			user.Password = s
		case "role":
			user.Role = s
		}
	}
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return &user, nil
}

// Delete removes a user by its ID.
func (r *MockUserRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return apperrors.NotFound(fmt.Sprintf("user with ID %s not found", id))
	}
	delete(r.users, id)
	return nil
}
