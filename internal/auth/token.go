package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/crm-gateway/internal/config"
	"github.com/spec-kit/crm-gateway/internal/domain"
)

// InsecureDefaultSecret is the placeholder secret older deployments shipped
// with. NewCodec refuses it.
const InsecureDefaultSecret = "your-secret-key"

var (
	ErrInsecureSecret        = errors.New("jwt secret is empty or the insecure default")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
)

// Claims describes the JWT payload.
type Claims struct {
	UserID int64       `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// ValidationResult is the non-failing outcome of Validate.
type ValidationResult struct {
	Valid  bool
	Claims *Claims
	Err    error
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithClock overrides the wall clock used for issuance and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// Codec issues and verifies HS256 bearer tokens.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec builds a codec from the auth configuration.
func NewCodec(cfg config.AuthConfig, opts ...CodecOption) (*Codec, error) {
	if cfg.JWTSecret == "" || cfg.JWTSecret == InsecureDefaultSecret {
		return nil, ErrInsecureSecret
	}
	c := &Codec{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL(),
		now:    time.Now,
		// Expiry is checked by Verify so that expired and malformed tokens
		// stay distinguishable.
		parser: jwt.NewParser(jwt.WithoutClaimsValidation(), jwt.WithStrictDecoding()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the principal and returns it with its expiry.
func (c *Codec) Issue(p *domain.Principal) (string, time.Time, error) {
	if p == nil {
		return "", time.Time{}, errors.New("principal is required")
	}
	now := c.now()
	claims := &Claims{
		UserID: p.ID,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Decode verifies signature and structure without looking at expiry.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(tokenStr, claims, c.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user_id", ErrTokenMalformed)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrTokenMalformed)
	}
	return claims, nil
}

// Verify decodes the token and rejects it once now >= exp.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	claims, err := c.Decode(tokenStr)
	if err != nil {
		return nil, err
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// Validate reports the verification outcome without failing.
func (c *Codec) Validate(tokenStr string) ValidationResult {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return ValidationResult{Valid: false, Err: err}
	}
	return ValidationResult{Valid: true, Claims: claims}
}

// ExtractSubjectID returns the user id of a currently valid token.
func (c *Codec) ExtractSubjectID(tokenStr string) (int64, bool) {
	claims, err := c.Verify(tokenStr)
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

// IsExpired is true for expired tokens and for tokens that fail to decode at
// all; callers needing the difference use Validate.
func (c *Codec) IsExpired(tokenStr string) bool {
	_, err := c.Verify(tokenStr)
	return err != nil
}

func (c *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return c.secret, nil
}
