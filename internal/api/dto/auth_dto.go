package dto

import (
	"time"

	"github.com/spec-kit/crm-gateway/internal/auth"
	"github.com/spec-kit/crm-gateway/internal/domain"
)

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenRequest carries a token for refresh and validation.
type TokenRequest struct {
	Token string `json:"token"`
}

// AuthResponse standard response for token-issuing endpoints.
type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *PrincipalView `json:"user,omitempty"`
}

// PrincipalView is the public projection of a principal.
type PrincipalView struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

func NewPrincipalView(p *domain.Principal) *PrincipalView {
	if p == nil {
		return nil
	}
	return &PrincipalView{
		ID:     p.ID,
		Email:  p.Email,
		Role:   p.Role.String(),
		Status: string(p.Status),
	}
}

// ClaimsView is the public projection of decoded token claims.
type ClaimsView struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidateResponse reports the outcome of POST /auth/validate.
type ValidateResponse struct {
	Valid  bool        `json:"valid"`
	Claims *ClaimsView `json:"claims,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func NewValidateResponse(result auth.ValidationResult) ValidateResponse {
	if !result.Valid {
		msg := "invalid token"
		if result.Err != nil {
			msg = auth.TokenError(result.Err).Message
		}
		return ValidateResponse{Valid: false, Error: msg}
	}
	c := result.Claims
	view := &ClaimsView{UserID: c.UserID, Email: c.Email, Role: c.Role.String()}
	if c.IssuedAt != nil {
		view.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		view.ExpiresAt = c.ExpiresAt.Time
	}
	return ValidateResponse{Valid: true, Claims: view}
}
