package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/tour-service/pkg/util"
)

type memCounter struct {
	counts  map[string]int64
	expired map[string]time.Duration
	failing bool
}

func newMemCounter() *memCounter {
	return &memCounter{counts: map[string]int64{}, expired: map[string]time.Duration{}}
}

func (m *memCounter) Incr(_ context.Context, key string) (int64, error) {
	if m.failing {
		return 0, errors.New("connection refused")
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memCounter) Expire(_ context.Context, key string, ttl time.Duration) error {
	if m.failing {
		return errors.New("connection refused")
	}
	m.expired[key] = ttl
	return nil
}

func newTestLimiter(c counter, max int) *Limiter {
	return &Limiter{counter: c, logger: zap.NewNop(), max: max, window: time.Minute}
}

func TestAllowWithinBudget(t *testing.T) {
	ctx := context.Background()
	mem := newMemCounter()
	limiter := newTestLimiter(mem, 2)

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Budgets are per client.
	allowed, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed)

	// The window key gets a TTL exactly once.
	assert.Len(t, mem.expired, 2)
	for _, ttl := range mem.expired {
		assert.Equal(t, time.Minute, ttl)
	}
}

func TestAllowFailsOpenOnCounterError(t *testing.T) {
	mem := newMemCounter()
	mem.failing = true
	limiter := newTestLimiter(mem, 1)

	allowed, err := limiter.Allow(context.Background(), "10.0.0.1")
	assert.Error(t, err)
	assert.True(t, allowed)
}

func newLimitedApp(limiter *Limiter) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"code": de.Code})
		},
	})
	app.Use(limiter.Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestMiddlewareRejectsOverBudget(t *testing.T) {
	limiter := newTestLimiter(newMemCounter(), 2)
	app := newLimitedApp(limiter)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestMiddlewareFailsOpenWhenCounterDown(t *testing.T) {
	mem := newMemCounter()
	mem.failing = true
	app := newLimitedApp(newTestLimiter(mem, 1))

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}
