package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/tour-service/internal/config"
	apperrors "github.com/spec-kit/tour-service/pkg/util"
)

// counter is the slice of redis the limiter uses. Tests swap in an
// in-memory implementation.
type counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type redisCounter struct {
	client *redis.Client
}

func (r redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r redisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

// Limiter enforces a fixed-window per-IP request budget backed by redis.
// When redis is unreachable the limiter fails open; availability beats the
// budget here.
type Limiter struct {
	counter counter
	logger  *zap.Logger
	max     int
	window  time.Duration
}

// New builds a limiter on the given redis client.
func New(client *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) *Limiter {
	return &Limiter{
		counter: redisCounter{client: client},
		logger:  logger,
		max:     cfg.MaxRequests,
		window:  cfg.Window(),
	}
}

// Allow records a hit for the client IP and reports whether it is still
// within budget.
func (l *Limiter) Allow(ctx context.Context, ip string) (bool, error) {
	bucket := time.Now().Unix() / int64(l.window.Seconds())
	key := fmt.Sprintf("ratelimit:%s:%d", ip, bucket)

	count, err := l.counter.Incr(ctx, key)
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.counter.Expire(ctx, key, l.window); err != nil {
			return true, err
		}
	}
	return count <= int64(l.max), nil
}

// Middleware returns a fiber handler rejecting over-budget clients with 429.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, err := l.Allow(c.UserContext(), c.IP())
		if err != nil {
			l.logger.Warn("rate limiter unavailable, failing open", zap.Error(err))
			return c.Next()
		}
		if !allowed {
			return apperrors.NewTooManyRequests("too many requests from this IP, please try again later")
		}
		return c.Next()
	}
}
