package services_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"mystore/internal/apperrors"
	"mystore/internal/models"
	"mystore/internal/repositories"
	"mystore/internal/services"
	"mystore/pkg/mailer"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetAll() ([]models.UserProjection, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserProjection), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePatch(id string, changes map[string]any) (*models.User, error) {
	args := m.Called(id, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockRecoveryTokenRepository is a mock implementation of repositories.RecoveryTokenRepository
type MockRecoveryTokenRepository struct {
	mock.Mock
}

func (m *MockRecoveryTokenRepository) Create(token *models.RecoveryToken) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockRecoveryTokenRepository) ConsumeAndSetPassword(token, passwordHash string) (*models.User, error) {
	args := m.Called(token, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockMailSender is a mock implementation of services.MailSender
type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

const testJWTSecret = "test_jwt_secret"

func newAuthService(userRepo repositories.UserRepository, recoveryRepo repositories.RecoveryTokenRepository, mail services.MailSender) *services.AuthService {
	return services.NewAuthService(userRepo, recoveryRepo, mail, nil, testJWTSecret, "http://localhost:3100")
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := newAuthService(mockRepo, new(MockRecoveryTokenRepository), new(MockMailSender))

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Email:    "test@example.com",
		Password: string(hashedPassword),
		Role:     models.RoleCustomer,
	}

	// Successful login
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	token, loggedIn, err := authService.Login(user.Email, "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Empty(t, loggedIn.Password, "password hash must not leave the service")
	mockRepo.AssertExpectations(t)

	// Mixed-case input reaches the store lowercased, matching how
	// records are created.
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	token, loggedIn, err = authService.Login("  Test@Example.COM ", "password123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)
	mockRepo.AssertExpectations(t)

	// Wrong password
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	_, _, err = authService.Login(user.Email, "wrongpassword")
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "invalid credentials")
	mockRepo.AssertExpectations(t)

	// Unknown email yields the same generic error
	mockRepo.On("GetByEmail", "ghost@example.com").Return(nil, apperrors.NotFound("record not found")).Once()
	_, _, err = authService.Login("ghost@example.com", "password123")
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "invalid credentials")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_SignToken(t *testing.T) {
	authService := newAuthService(new(MockUserRepository), new(MockRecoveryTokenRepository), new(MockMailSender))

	user := &models.User{ID: "user-123", Email: "test@example.com", Role: models.RoleAdmin}
	tokenString, err := authService.SignToken(user)
	assert.NoError(t, err)

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, "user-123", claims["sub"])
	assert.Equal(t, models.RoleAdmin, claims["role"])
	assert.Greater(t, int64(claims["exp"].(float64)), time.Now().Unix())
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := newAuthService(new(MockUserRepository), new(MockRecoveryTokenRepository), new(MockMailSender))

	user := &models.User{ID: "user-123", Role: models.RoleSeller}
	valid, err := authService.SignToken(user)
	assert.NoError(t, err)

	claims, err := authService.ValidateToken(valid)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", claims["sub"])
	assert.Equal(t, models.RoleSeller, claims["role"])

	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	expiredString, _ := expired.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredString)
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindAuth, apperrors.KindOf(err))
}

func TestAuthService_SendRecovery(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRecovery := new(MockRecoveryTokenRepository)
	mockMail := new(MockMailSender)
	authService := newAuthService(mockRepo, mockRecovery, mockMail)

	user := &models.User{ID: "user-123", Email: "test@example.com", Role: models.RoleCustomer}

	var issued string
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	mockRecovery.On("Create", mock.MatchedBy(func(rt *models.RecoveryToken) bool {
		issued = rt.Token
		return rt.Token != "" && rt.UserID == user.ID && time.Until(rt.ExpiresAt) > 10*time.Minute
	})).Return(nil).Once()
	mockMail.On("Send", mock.Anything, mock.MatchedBy(func(msg mailer.Message) bool {
		return msg.To == user.Email && strings.Contains(msg.Body, issued)
	})).Return(nil).Once()

	err := authService.SendRecovery(context.Background(), user.Email)
	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRecovery.AssertExpectations(t)
	mockMail.AssertExpectations(t)
}

func TestAuthService_SendRecoveryUnknownEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRecovery := new(MockRecoveryTokenRepository)
	mockMail := new(MockMailSender)
	authService := newAuthService(mockRepo, mockRecovery, mockMail)

	// The not-found is observable at the service layer; the facade masks it.
	mockRepo.On("GetByEmail", "ghost@example.com").Return(nil, apperrors.NotFound("record not found")).Once()

	err := authService.SendRecovery(context.Background(), "ghost@example.com")
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	mockRecovery.AssertNotCalled(t, "Create", mock.Anything)
	mockMail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestAuthService_SendRecoveryMailFailure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRecovery := new(MockRecoveryTokenRepository)
	mockMail := new(MockMailSender)
	authService := newAuthService(mockRepo, mockRecovery, mockMail)

	user := &models.User{ID: "user-123", Email: "test@example.com", Role: models.RoleCustomer}
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	mockRecovery.On("Create", mock.AnythingOfType("*models.RecoveryToken")).Return(nil).Once()
	mockMail.On("Send", mock.Anything, mock.Anything).Return(apperrors.Gateway("failed to send mail")).Once()

	err := authService.SendRecovery(context.Background(), user.Email)
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindGateway, apperrors.KindOf(err))
	// The token was persisted before the send was attempted.
	mockRecovery.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	mockRecovery := new(MockRecoveryTokenRepository)
	authService := newAuthService(new(MockUserRepository), mockRecovery, new(MockMailSender))

	user := &models.User{ID: "user-123", Email: "test@example.com", Role: models.RoleCustomer}

	// The repository receives a bcrypt hash of the new password, never plaintext.
	mockRecovery.On("ConsumeAndSetPassword", "valid-token", mock.MatchedBy(func(hash string) bool {
		return hash != "NewPass1!" && bcrypt.CompareHashAndPassword([]byte(hash), []byte("NewPass1!")) == nil
	})).Return(user, nil).Once()

	changed, err := authService.ChangePassword("valid-token", "NewPass1!")
	assert.NoError(t, err)
	assert.Empty(t, changed.Password)
	mockRecovery.AssertExpectations(t)

	// Invalid token
	mockRecovery.On("ConsumeAndSetPassword", "expired-token", mock.AnythingOfType("string")).
		Return(nil, apperrors.BadRequest("invalid recovery request")).Once()
	_, err = authService.ChangePassword("expired-token", "NewPass1!")
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindBadRequest, apperrors.KindOf(err))
	mockRecovery.AssertExpectations(t)
}

// TestAuthService_ChangePasswordSingleUse drives concurrent consumption of
// one token through the in-memory repositories and expects exactly one
// success.
func TestAuthService_ChangePasswordSingleUse(t *testing.T) {
	userRepo := repositories.NewMockUserRepository()
	recoveryRepo := repositories.NewMockRecoveryTokenRepository(userRepo)
	authService := services.NewAuthService(userRepo, recoveryRepo, nil, nil, testJWTSecret, "http://localhost:3100")

	user := &models.User{Email: "race@example.com", Password: "hash", Role: models.RoleCustomer}
	assert.NoError(t, userRepo.Create(user))
	assert.NoError(t, recoveryRepo.Create(&models.RecoveryToken{
		Token:     "one-shot-token",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}))

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := authService.ChangePassword("one-shot-token", "NewPass1!")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, badRequests := 0, 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		if apperrors.KindOf(err) == apperrors.KindBadRequest {
			badRequests++
		}
	}
	assert.Equal(t, 1, successes, "exactly one consumption must succeed")
	assert.Equal(t, attempts-1, badRequests, "all other attempts must fail as bad requests")
}
