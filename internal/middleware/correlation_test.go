package middleware_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/evalmate-go/internal/middleware"
)

func TestCorrelationIDEchoesIncomingHeader(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		require.Equal(t, "abc-123", middleware.GetCorrelationID(c))
		require.Equal(t, "abc-123", middleware.CorrelationIDFromContext(c.UserContext()))
		return c.SendStatus(fiber.StatusNoContent)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(middleware.HeaderCorrelationID, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get(middleware.HeaderCorrelationID))
}

func TestCorrelationIDFallsBackToRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-9")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-9", resp.Header.Get(middleware.HeaderCorrelationID))
}

func TestCorrelationIDGeneratesWhenAbsent(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Len(t, resp.Header.Get(middleware.HeaderCorrelationID), 36)
}

func TestContextWithCorrelation(t *testing.T) {
	ctx := middleware.ContextWithCorrelation(context.Background(), "  ")
	require.Empty(t, middleware.CorrelationIDFromContext(ctx))

	ctx = middleware.ContextWithCorrelation(context.Background(), "job-7")
	require.Equal(t, "job-7", middleware.CorrelationIDFromContext(ctx))

	var buf bytes.Buffer
	logger := middleware.LoggerFromContext(ctx, zerolog.New(&buf))
	logger.Info().Msg("hello")
	require.Contains(t, buf.String(), `"correlation_id":"job-7"`)
}
