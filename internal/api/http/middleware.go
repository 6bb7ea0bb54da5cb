package http

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-gateway/internal/observability"
	"github.com/spec-kit/crm-gateway/internal/ratelimit"
	apperrors "github.com/spec-kit/crm-gateway/pkg/util"
)

const (
	rateLimitKeyLocal = "rate_limit_key"
	loopbackKey       = "127.0.0.1"

	corsAllowHeaders = "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID"
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)

// MiddlewareConfig bundles dependencies of the global middleware chain.
type MiddlewareConfig struct {
	Logger         *zap.Logger
	Metrics        *observability.Metrics
	Limiter        ratelimit.Limiter
	RequestTimeout time.Duration
}

// RegisterMiddlewares attaches the global chain. Order, outermost first:
// request id, CORS, logging, error rendering, timeout, rate limiting.
// Authentication and authorization are attached per route group.
func RegisterMiddlewares(app *fiber.App, cfg MiddlewareConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	app.Use(requestIDMiddleware())
	app.Use(corsMiddleware())
	app.Use(observability.RequestLogger(logger, cfg.Metrics))
	app.Use(errorHandlingMiddleware(logger, cfg.Metrics))
	if cfg.RequestTimeout > 0 {
		app.Use(requestTimeoutMiddleware(cfg.RequestTimeout))
	}
	app.Use(RateLimit(limiter, logger))
}

// ErrorHandler renders any error in the common body shape. It is also used
// as the fiber.Config ErrorHandler for errors raised outside the chain.
func ErrorHandler(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	return c.Status(domainErr.HTTPStatus).JSON(domainErr.Body())
}

func requestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, id)
		return c.Next()
	}
}

// corsMiddleware sets the headers before the rest of the chain runs, so they
// are present on every response including rejections.
func corsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
		c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
		c.Set(fiber.HeaderAccessControlAllowCredentials, "true")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				metrics.RecordError(c.Route().Path, domainErr.Code, string(domainErr.Reason))
				if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
					logger.Error("request failed", zap.Error(domainErr), zap.String("path", c.Path()))
				}
				err = ErrorHandler(c, domainErr)
			}
		}()
		return c.Next()
	}
}

// RateLimit derives the client key, stores it in the request locals and asks
// the limiter. Limiter errors let the request through. The key is copied out
// of the request buffers since limiters keep it beyond the request.
func RateLimit(limiter ratelimit.Limiter, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		remote := ""
		if ip := c.Context().RemoteIP(); ip != nil && !ip.IsUnspecified() {
			remote = ip.String()
		}
		key := utils.CopyString(ClientKey(c.Get(fiber.HeaderXForwardedFor), c.Get("X-Real-IP"), remote))
		c.Locals(rateLimitKeyLocal, key)

		allowed, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}
		if !allowed {
			return apperrors.NewRateLimited("Too many requests")
		}
		return c.Next()
	}
}

// ClientKey picks the first X-Forwarded-For entry, then X-Real-IP, then the
// remote address, and finally the loopback address.
func ClientKey(forwardedFor, realIP, remote string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP = strings.TrimSpace(realIP); realIP != "" {
		return realIP
	}
	if remote != "" {
		return remote
	}
	return loopbackKey
}

// RateLimitKey returns the key computed for the current request.
func RateLimitKey(c *fiber.Ctx) string {
	key, _ := c.Locals(rateLimitKeyLocal).(string)
	return key
}
