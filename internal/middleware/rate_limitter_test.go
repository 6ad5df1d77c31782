package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	m := &middleware{
		rateLimitter: newRateLimiter(1, 2),
		log:          newTestLogger(),
	}

	app := fiber.New()
	app.Use(m.NewRateLimiter)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimiterTracksClientsSeparately(t *testing.T) {
	limiter := newRateLimiter(1, 1)

	first := limiter.GetLimiterFrom("10.0.0.1")
	second := limiter.GetLimiterFrom("10.0.0.2")
	require.NotSame(t, first, second)

	require.Same(t, first, limiter.GetLimiterFrom("10.0.0.1"))

	require.True(t, first.Allow())
	require.False(t, first.Allow())
	require.True(t, second.Allow())
}
