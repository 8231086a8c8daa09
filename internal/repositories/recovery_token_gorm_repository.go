package repositories

import (
	"time"

	"gorm.io/gorm"

	"mystore/internal/apperrors"
	"mystore/internal/models"
)

// GORMRecoveryTokenRepository is a GORM implementation of RecoveryTokenRepository.
type GORMRecoveryTokenRepository struct {
	db *gorm.DB
}

// NewGORMRecoveryTokenRepository creates a new instance of GORMRecoveryTokenRepository.
func NewGORMRecoveryTokenRepository(db *gorm.DB) *GORMRecoveryTokenRepository {
	return &GORMRecoveryTokenRepository{
		db: db,
	}
}

// Create persists a new recovery token.
func (r *GORMRecoveryTokenRepository) Create(token *models.RecoveryToken) error {
	if err := r.db.Create(token).Error; err != nil {
		return translateStorageError(err, "create recovery token")
	}
	return nil
}

// ConsumeAndSetPassword marks the token consumed and updates the owning
// user's password hash in one transaction. The guarded UPDATE on the
// consumed flag is what makes concurrent consumption of the same token
// succeed exactly once.
func (r *GORMRecoveryTokenRepository) ConsumeAndSetPassword(token, passwordHash string) (*models.User, error) {
	var user models.User

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RecoveryToken{}).
			Where("token = ? AND consumed = ? AND expires_at > ?", token, false, time.Now()).
			Update("consumed", true)
		if res.Error != nil {
			return translateStorageError(res.Error, "consume recovery token")
		}
		if res.RowsAffected == 0 {
			return apperrors.BadRequest("invalid recovery request")
		}

		var rt models.RecoveryToken
		if err := tx.First(&rt, "token = ?", token).Error; err != nil {
			return translateStorageError(err, "load recovery token")
		}

		upd := tx.Model(&models.User{}).Where("id = ?", rt.UserID).Update("password", passwordHash)
		if upd.Error != nil {
			return translateStorageError(upd.Error, "update user password")
		}
		if upd.RowsAffected == 0 {
			return apperrors.BadRequest("invalid recovery request")
		}

		if err := tx.First(&user, "id = ?", rt.UserID).Error; err != nil {
			return translateStorageError(err, "load user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
