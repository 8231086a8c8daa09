package repositories

import (
	"sync"
	"time"

	"mystore/internal/apperrors"
	"mystore/internal/models"
)

// MockRecoveryTokenRepository is an in-memory implementation of
// RecoveryTokenRepository. The mutex gives it the same exactly-once
// consumption guarantee as the transactional store.
type MockRecoveryTokenRepository struct {
	tokens map[string]models.RecoveryToken
	users  *MockUserRepository
	mu     sync.Mutex
}

// NewMockRecoveryTokenRepository creates a new instance of
// MockRecoveryTokenRepository backed by the given user repository.
func NewMockRecoveryTokenRepository(users *MockUserRepository) *MockRecoveryTokenRepository {
	return &MockRecoveryTokenRepository{
		tokens: make(map[string]models.RecoveryToken),
		users:  users,
	}
}

// Create stores a new recovery token.
func (r *MockRecoveryTokenRepository) Create(token *models.RecoveryToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token.CreatedAt = time.Now()
	r.tokens[token.Token] = *token
	return nil
}

// ConsumeAndSetPassword consumes the token and updates the user's password hash.
func (r *MockRecoveryTokenRepository) ConsumeAndSetPassword(token, passwordHash string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[token]
	if !ok || rt.Consumed || time.Now().After(rt.ExpiresAt) {
		return nil, apperrors.BadRequest("invalid recovery request")
	}

	user, err := r.users.UpdatePatch(rt.UserID, map[string]any{"password": passwordHash})
	if err != nil {
		return nil, apperrors.BadRequest("invalid recovery request")
	}

	rt.Consumed = true
	r.tokens[token] = rt
	return user, nil
}
