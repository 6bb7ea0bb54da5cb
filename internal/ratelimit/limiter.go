package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/crm-gateway/internal/config"
)

// Backend identifiers accepted in RATE_LIMIT_BACKEND.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Limiter decides whether one more request for key is allowed right now.
// A non-nil error means the decision could not be made.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited computes nothing and allows every request.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) {
	return true, nil
}

// New creates a limiter for the configured backend. The redis client is only
// required by the redis backend.
func New(cfg config.RateLimitConfig, client *redis.Client) (Limiter, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendNone
	}

	switch backend {
	case BackendNone:
		return Unlimited{}, nil
	case BackendMemory:
		return NewMemory(cfg.RequestsPerMinute, cfg.Burst), nil
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis rate limit backend requires a redis client")
		}
		return NewRedis(client, cfg.RequestsPerMinute, cfg.Window()), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", backend)
	}
}
