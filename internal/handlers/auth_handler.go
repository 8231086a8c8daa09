package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"mystore/internal/apperrors"
	"mystore/internal/middleware"
	"mystore/internal/services"
)

// recoveryAcceptedMessage is returned for every accepted recovery request,
// whether or not the account exists.
const recoveryAcceptedMessage = "If the email exists, a recovery link will be sent."

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/recovery", h.HandleRecovery)
	authRoutes.Post("/change-password", h.HandleChangePassword)
	authRoutes.Get("/me", middleware.AuthRequired(h.authService), h.HandleMe)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates credentials and issues a session token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationResponse(c, err)
	}

	token, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		log.Printf("Login failed for %s: %v", req.Email, err)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// RecoveryRequest represents the request body for password recovery.
type RecoveryRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleRecovery starts the password recovery flow. The response is the
// same whether or not the account exists so the endpoint cannot be used
// to enumerate accounts; only delivery failures surface to the client.
func (h *AuthHandler) HandleRecovery(c *fiber.Ctx) error {
	var req RecoveryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Email is required",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationResponse(c, err)
	}

	if err := h.authService.SendRecovery(c.Context(), req.Email); err != nil {
		switch apperrors.KindOf(err) {
		case apperrors.KindNotFound:
			// Unknown account: answer exactly like the success path.
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"message": recoveryAcceptedMessage,
			})
		case apperrors.KindValidation, apperrors.KindBadRequest:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid recovery request",
			})
		default:
			log.Printf("Recovery failed for %s: %v", req.Email, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"message": "Failed to send recovery email",
			})
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": recoveryAcceptedMessage,
	})
}

// ChangePasswordRequest represents the request body for a password change.
type ChangePasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// HandleChangePassword consumes a recovery token and sets a new password.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationResponse(c, err)
	}

	user, err := h.authService.ChangePassword(req.Token, req.NewPassword)
	if err != nil {
		log.Printf("Change password failed: %v", err)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Password updated successfully",
		"user":    user,
	})
}

// HandleMe returns the authenticated principal's claims.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user_id": c.Locals("user_id"),
		"role":    c.Locals("role"),
	})
}
