package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/crm-gateway/pkg/util"
)

// RequestLogger logs one line per request and feeds the request metrics.
// It never changes the response; a failure while logging is dropped.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logRequest(logger, metrics, c, time.Since(start), err)
		return err
	}
}

func logRequest(logger *zap.Logger, metrics *Metrics, c *fiber.Ctx, duration time.Duration, err error) {
	defer func() {
		_ = recover()
	}()

	status := c.Response().StatusCode()
	if err != nil {
		status = apperrors.ToDomainError(err).HTTPStatus
	}
	route := c.Route().Path

	metrics.RecordRequest(route, c.Method(), status, duration)
	logger.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("duration", duration),
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
	)
}
