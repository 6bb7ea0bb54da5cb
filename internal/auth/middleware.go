package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-gateway/internal/domain"
	"github.com/spec-kit/crm-gateway/internal/repository"
	apperrors "github.com/spec-kit/crm-gateway/pkg/util"
)

const identityKey = "auth_identity"

type identityCtxKey struct{}

// Identity is the authentication context of one request. Role is the role of
// the principal as re-fetched for this request, not the token's copy.
type Identity struct {
	Principal *domain.Principal
	ID        int64
	Role      domain.Role
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens        *Codec
	principals    repository.PrincipalRepository
	lookupTimeout time.Duration
	logger        *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *Codec, principals repository.PrincipalRepository, lookupTimeout time.Duration, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		tokens:        tokens,
		principals:    principals,
		lookupTimeout: lookupTimeout,
		logger:        logger,
	}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader, present := authorizationHeader(c)
	if !present {
		return apperrors.NewUnauthorized(apperrors.ReasonHeaderMissing, "Authorization header missing")
	}

	token, ok := bearerToken(authHeader)
	if !ok {
		return apperrors.NewUnauthorized(apperrors.ReasonHeaderMalformed, "Malformed authorization header")
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		return TokenError(err)
	}

	principal, err := m.resolve(c.UserContext(), claims.UserID)
	if err != nil {
		return apperrors.NewUnauthorized(apperrors.ReasonPrincipalNotFound, "User not found")
	}
	if !principal.Active() {
		return apperrors.NewUnauthorized(apperrors.ReasonPrincipalInactive, "User account is inactive")
	}

	AttachIdentity(c, &Identity{Principal: principal, ID: principal.ID, Role: principal.Role})
	return c.Next()
}

// resolve fetches the principal under the lookup timeout. Every failure is
// reported to the caller the same way; store errors are only logged.
func (m *AuthMiddleware) resolve(ctx context.Context, id int64) (*domain.Principal, error) {
	if m.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.lookupTimeout)
		defer cancel()
	}

	principal, err := m.principals.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			m.logger.Warn("principal lookup failed", zap.Int64("user_id", id), zap.Error(err))
		}
		return nil, err
	}
	return principal, nil
}

// TokenError maps a codec error onto the 401 the gate responds with.
func TokenError(err error) *apperrors.DomainError {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return apperrors.NewUnauthorized(apperrors.ReasonTokenExpired, "Token expired")
	case errors.Is(err, ErrTokenSignatureInvalid):
		return apperrors.NewUnauthorized(apperrors.ReasonTokenSignatureInvalid, "Invalid token signature")
	default:
		return apperrors.NewUnauthorized(apperrors.ReasonTokenMalformed, "Invalid token")
	}
}

// authorizationHeader tells an absent header apart from an empty one.
func authorizationHeader(c *fiber.Ctx) (string, bool) {
	var (
		value   string
		present bool
	)
	c.Request().Header.VisitAll(func(key, val []byte) {
		if !present && strings.EqualFold(string(key), fiber.HeaderAuthorization) {
			value = string(val)
			present = true
		}
	})
	return value, present
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// AttachIdentity stores the identity in the request locals and user context.
func AttachIdentity(c *fiber.Ctx, identity *Identity) {
	c.Locals(identityKey, identity)
	c.SetUserContext(WithIdentity(c.UserContext(), identity))
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (*Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*Identity)
	return identity, ok && identity != nil
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// FromContext returns the identity stored by WithIdentity, or nil.
func FromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityCtxKey{}).(*Identity)
	return identity
}
