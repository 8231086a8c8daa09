package repositories

import "mystore/internal/models"

// RecoveryTokenRepository defines the interface for password-recovery
// token persistence.
type RecoveryTokenRepository interface {
	Create(token *models.RecoveryToken) error
	// ConsumeAndSetPassword atomically marks the token consumed and updates
	// the owning user's password hash. Absent, expired and already-consumed
	// tokens all fail as a bad request; concurrent calls with the same token
	// succeed exactly once.
	ConsumeAndSetPassword(token, passwordHash string) (*models.User, error)
}
