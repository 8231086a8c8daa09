package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mystore/internal/apperrors"
	"mystore/internal/models"
	"mystore/internal/repositories"
	"mystore/pkg/events"
	"mystore/pkg/mailer"
)

// MailSender is the outbound mail contract the auth service depends on.
type MailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// AuthService handles login, session token issuance and the password
// recovery flow.
type AuthService struct {
	userRepo     repositories.UserRepository
	recoveryRepo repositories.RecoveryTokenRepository
	mail         MailSender
	events       *events.Client
	jwtSecret    []byte
	tokenTTL     time.Duration // session token validity
	recoveryTTL  time.Duration // recovery token validity
	baseURL      string        // base for the recovery link mailed to users
}

// NewAuthService creates a new AuthService. The mail sender and events
// client may be nil; recovery then fails as a gateway error and event
// publishing is skipped.
func NewAuthService(
	userRepo repositories.UserRepository,
	recoveryRepo repositories.RecoveryTokenRepository,
	mail MailSender,
	eventsClient *events.Client,
	jwtSecret string,
	baseURL string,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		recoveryRepo: recoveryRepo,
		mail:         mail,
		events:       eventsClient,
		jwtSecret:    []byte(jwtSecret),
		tokenTTL:     24 * time.Hour,
		recoveryTTL:  15 * time.Minute,
		baseURL:      baseURL,
	}
}

// SignToken produces a signed session token embedding the user's identity
// and role. Pure function of the user record, no I/O.
func (s *AuthService) SignToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  now.Add(s.tokenTTL).Unix(),
		"iat":  now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInternal, "failed to generate token", err)
	}
	return tokenString, nil
}

// Login authenticates credentials and returns a session token with the
// authenticated user. Unknown email and wrong password yield the same
// generic error so account existence is not revealed.
func (s *AuthService) Login(email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		return "", nil, apperrors.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, apperrors.Unauthorized("invalid credentials")
	}

	token, err := s.SignToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, safeUser(user), nil
}

// ValidateToken parses and validates a session token, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAuth, "invalid or expired token", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, apperrors.Unauthorized("invalid or expired token")
}

// SendRecovery generates a single-use recovery token for the account and
// mails it. A not-found error surfaces here so tests can observe it; the
// facade masks it from clients. If the mail send fails the token stays
// persisted but unusable until a later request issues a fresh one.
func (s *AuthService) SendRecovery(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		return err
	}

	recovery := &models.RecoveryToken{
		Token:     uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(s.recoveryTTL),
	}
	if err := s.recoveryRepo.Create(recovery); err != nil {
		return err
	}

	if s.mail == nil {
		return apperrors.Gateway("mail transport is not configured")
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: "Password recovery",
		Body: fmt.Sprintf(
			"A password change was requested for your account.\n\n"+
				"Open %s/change-password?token=%s to set a new password.\n\n"+
				"The link expires in %d minutes. If you did not request this, ignore this message.",
			s.baseURL, recovery.Token, int(s.recoveryTTL.Minutes())),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return err
	}
	return nil
}

// ChangePassword consumes a recovery token and sets the new password.
// Consumption and the password update happen in one atomic step in the
// repository, so a token can never be replayed after a partial failure.
func (s *AuthService) ChangePassword(token, newPassword string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to hash password", err)
	}

	user, err := s.recoveryRepo.ConsumeAndSetPassword(token, string(hashed))
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		payload := map[string]any{"userID": user.ID}
		if err := s.events.Publish(events.PasswordChanged, payload); err != nil {
			log.Printf("Warning: failed to publish password changed event for %s: %v", user.ID, err)
		}
	}

	return safeUser(user), nil
}
