package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-gateway/internal/auth"
	"github.com/spec-kit/crm-gateway/internal/domain"
	"github.com/spec-kit/crm-gateway/internal/events"
	"github.com/spec-kit/crm-gateway/internal/repository"
	apperrors "github.com/spec-kit/crm-gateway/pkg/util"
)

// ErrInvalidCredentials is returned by Login for any failed attempt.
var ErrInvalidCredentials = apperrors.NewUnauthorized(apperrors.ReasonInvalidCredentials, "Invalid email or password")

// AuthService coordinates login, refresh and token issuance.
type AuthService struct {
	principals    repository.PrincipalRepository
	tokens        *auth.Codec
	lookupTimeout time.Duration
	logger        *zap.Logger
	dispatcher    events.Dispatcher
}

// Option customises an AuthService.
type Option func(*AuthService)

// WithDispatcher publishes authentication events to d.
func WithDispatcher(d events.Dispatcher) Option {
	return func(s *AuthService) {
		s.dispatcher = d
	}
}

// NewAuthService builds the service.
func NewAuthService(tokens *auth.Codec, principals repository.PrincipalRepository, lookupTimeout time.Duration, logger *zap.Logger, opts ...Option) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuthService{
		principals:    principals,
		tokens:        tokens,
		lookupTimeout: lookupTimeout,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks the stored password hash and issues a token for an active
// principal. Unknown email, wrong password and inactive accounts are not
// told apart.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Principal, string, time.Time, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email and password are required", nil)
	}

	lookupCtx, cancel := s.lookupContext(ctx)
	defer cancel()

	principal, err := s.principals.GetByEmail(lookupCtx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("login lookup failed", zap.Error(err))
		}
		s.publishLoginFailed(ctx, 0, email, "unknown_email")
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if !auth.CheckPassword(principal.PasswordHash, password) {
		s.publishLoginFailed(ctx, principal.ID, email, "wrong_password")
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if !principal.Active() {
		s.publishLoginFailed(ctx, principal.ID, email, "inactive")
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	event := events.NewEvent(events.EventLoginSucceeded, principal.ID)
	event.Email = principal.Email
	event.Payload = events.TokenIssuedPayload{ExpiresAt: exp}
	s.publish(ctx, event)
	return principal, token, exp, nil
}

// Refresh exchanges a valid token for a new one with a fresh window. It
// returns false when the token is invalid or expired, or when its principal
// no longer resolves or is inactive; the caller must then log in again.
//
// Expiry has one-second precision, so a refresh in the same second the
// original token was issued returns the same expiry. It is strictly later
// once at least a second has passed.
func (s *AuthService) Refresh(ctx context.Context, token string) (string, time.Time, bool) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.publishRefreshDenied(ctx, 0, auth.TokenError(err).Reason)
		return "", time.Time{}, false
	}

	lookupCtx, cancel := s.lookupContext(ctx)
	defer cancel()

	principal, err := s.principals.GetByID(lookupCtx, claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("refresh lookup failed", zap.Int64("user_id", claims.UserID), zap.Error(err))
		}
		s.publishRefreshDenied(ctx, claims.UserID, apperrors.ReasonPrincipalNotFound)
		return "", time.Time{}, false
	}
	if !principal.Active() {
		s.publishRefreshDenied(ctx, principal.ID, apperrors.ReasonPrincipalInactive)
		return "", time.Time{}, false
	}

	fresh, exp, err := s.tokens.Issue(principal)
	if err != nil {
		s.logger.Error("refresh issue failed", zap.Int64("user_id", principal.ID), zap.Error(err))
		return "", time.Time{}, false
	}

	event := events.NewEvent(events.EventTokenRefreshed, principal.ID)
	event.Payload = events.TokenIssuedPayload{ExpiresAt: exp}
	s.publish(ctx, event)
	return fresh, exp, true
}

// IssueFor issues a token for the principal with the given id on behalf of
// the administrator actorID.
func (s *AuthService) IssueFor(ctx context.Context, actorID, id int64) (*domain.Principal, string, time.Time, error) {
	lookupCtx, cancel := s.lookupContext(ctx)
	defer cancel()

	principal, err := s.principals.GetByID(lookupCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewNotFound("user", map[string]any{"user_id": id})
		}
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	if !principal.Active() {
		return nil, "", time.Time{}, apperrors.NewValidationError("user account is inactive", map[string]any{"user_id": id})
	}

	token, exp, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	event := events.NewEvent(events.EventTokenIssued, principal.ID)
	event.ActorID = actorID
	event.Payload = events.TokenIssuedPayload{ExpiresAt: exp}
	s.publish(ctx, event)
	return principal, token, exp, nil
}

// Codec exposes the token codec for middleware usage.
func (s *AuthService) Codec() *auth.Codec {
	return s.tokens
}

func (s *AuthService) lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.lookupTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.lookupTimeout)
}

func (s *AuthService) publishLoginFailed(ctx context.Context, userID int64, email, reason string) {
	event := events.NewEvent(events.EventLoginFailed, userID)
	event.Email = email
	event.Payload = events.DeniedPayload{Reason: reason}
	s.publish(ctx, event)
}

func (s *AuthService) publishRefreshDenied(ctx context.Context, userID int64, reason apperrors.Reason) {
	event := events.NewEvent(events.EventRefreshDenied, userID)
	event.Payload = events.DeniedPayload{Reason: string(reason)}
	s.publish(ctx, event)
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish auth event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
