package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-gateway/internal/api/dto"
	"github.com/spec-kit/crm-gateway/internal/auth"
	"github.com/spec-kit/crm-gateway/internal/service"
	apperrors "github.com/spec-kit/crm-gateway/pkg/util"
)

// AuthHandler exposes token endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	principal, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": dto.AuthResponse{
			Token:     token,
			ExpiresAt: exp,
			User:      dto.NewPrincipalView(principal),
		},
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return apperrors.NewValidationError("token is required", nil)
	}

	token, exp, ok := h.auth.Refresh(c.UserContext(), req.Token)
	if !ok {
		return apperrors.NewUnauthorized(apperrors.ReasonRefreshDenied, "Token cannot be refreshed, please log in again")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.AuthResponse{Token: token, ExpiresAt: exp},
	})
}

// Validate handles POST /auth/validate. An invalid token is a successful
// answer, not an error.
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return apperrors.NewValidationError("token is required", nil)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.NewValidateResponse(h.auth.Codec().Validate(req.Token)),
	})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("", "Authentication required")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.NewPrincipalView(identity.Principal),
	})
}

// IssueForUser handles POST /api/admin/users/:id/token.
func (h *AuthHandler) IssueForUser(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid user id", map[string]any{"id": c.Params("id")})
	}

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("", "Authentication required")
	}

	principal, token, exp, err := h.auth.IssueFor(c.UserContext(), identity.ID, id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": dto.AuthResponse{
			Token:     token,
			ExpiresAt: exp,
			User:      dto.NewPrincipalView(principal),
		},
	})
}
