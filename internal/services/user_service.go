package services

import (
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"mystore/internal/apperrors"
	"mystore/internal/models"
	"mystore/internal/repositories"
	"mystore/pkg/events"
)

// UserService handles business logic for user records. Records returned to
// the facade carry a blank password; FindByEmail is the one exception and
// keeps the hash so callers can verify credentials.
type UserService struct {
	userRepo repositories.UserRepository
	events   *events.Client
}

// NewUserService creates a new UserService. The events client may be nil;
// publishing is then skipped.
func NewUserService(userRepo repositories.UserRepository, eventsClient *events.Client) *UserService {
	return &UserService{
		userRepo: userRepo,
		events:   eventsClient,
	}
}

// Create hashes the plaintext password and stores the new user. Duplicate
// emails surface as a conflict from the repository.
func (s *UserService) Create(user *models.User) (*models.User, error) {
	user.Email = normalizeEmail(user.Email)

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to hash password", err)
	}
	user.Password = string(hashed)

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	if s.events != nil {
		payload := map[string]any{"userID": user.ID, "email": user.Email, "role": user.Role}
		if err := s.events.Publish(events.UserCreated, payload); err != nil {
			log.Printf("Warning: failed to publish user created event for %s: %v", user.ID, err)
		}
	}

	return safeUser(user), nil
}

// Find retrieves the projection list of all users joined with profile names.
func (s *UserService) Find() ([]models.UserProjection, error) {
	return s.userRepo.GetAll()
}

// FindByEmail retrieves a user by email with the password hash intact,
// for credential checks.
func (s *UserService) FindByEmail(email string) (*models.User, error) {
	return s.userRepo.GetByEmail(normalizeEmail(email))
}

// FindByID retrieves a user by ID with a blanked password.
func (s *UserService) FindByID(id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return safeUser(user), nil
}

// UpdatePatch applies a partial update. Caller-supplied timestamps and IDs
// are dropped; a patched password is re-hashed before it reaches storage.
func (s *UserService) UpdatePatch(id string, changes map[string]any) (*models.User, error) {
	delete(changes, "id")
	delete(changes, "created_at")
	delete(changes, "updated_at")
	delete(changes, "createdAt")
	delete(changes, "updatedAt")

	if email, ok := changes["email"].(string); ok {
		changes["email"] = normalizeEmail(email)
	}
	if password, ok := changes["password"].(string); ok && password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "failed to hash password", err)
		}
		changes["password"] = string(hashed)
	}

	user, err := s.userRepo.UpdatePatch(id, changes)
	if err != nil {
		return nil, err
	}
	return safeUser(user), nil
}

// DeleteByID removes a user by ID.
func (s *UserService) DeleteByID(id string) error {
	return s.userRepo.Delete(id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// safeUser returns a copy with the password hash blanked.
func safeUser(user *models.User) *models.User {
	safe := *user
	safe.Password = ""
	return &safe
}
