package router_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/evalmate-go/internal/config"
	"github.com/noah-isme/evalmate-go/internal/handler"
	"github.com/noah-isme/evalmate-go/internal/middleware"
	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/internal/router"
	"github.com/noah-isme/evalmate-go/internal/service"
	"github.com/noah-isme/evalmate-go/pkg/evalclient"
)

func newApp(t *testing.T, limit fiber.Handler) *fiber.App {
	t.Helper()
	logger := zerolog.New(io.Discard)
	cfg := config.Config{AppName: "EvalMate Viewer", AppEnv: "test", EvaluationMock: true}

	renders := service.NewRenderService(render.New(render.Options{NoColor: true}), true, logger)
	evaluations := service.NewEvaluationService(evalclient.NewMockSubmitter(time.Millisecond, logger), renders, "", logger)
	jobs := service.NewJobService(evaluations, renders, nil, service.JobConfig{}, logger)
	t.Cleanup(jobs.Close)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		IndexHandler: handler.NewIndexHandler(renders, render.Page{
			AppName:       cfg.AppName,
			JobsEndpoint:  router.JobsEndpoint,
			WebSocketPath: router.WebSocketPath,
		}, logger),
		EvaluationHandler: handler.NewEvaluationHandler(service.NewPaperService(1024, logger), evaluations, jobs, logger),
		JobStreamHandler:  handler.NewJobStreamHandler(jobs, logger),
		RenderHandler:     handler.NewRenderHandler(renders, validator.New(), logger),
		RateLimit:         limit,
	})
	return app
}

func emptyUpload(t *testing.T) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations", body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestRegisterServesCoreRoutes(t *testing.T) {
	app := newApp(t, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "EvalMate Viewer", resp.Header.Get("X-Application"))
	require.NotEmpty(t, resp.Header.Get(middleware.HeaderCorrelationID))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/render/placeholder", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ws/evaluations/jobs/abc", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestRegisterExposesMetrics(t *testing.T) {
	app := newApp(t, nil)

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/render/placeholder", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "evalmate_api_requests_total"))
}

func TestRegisterRateLimitsEvaluations(t *testing.T) {
	app := newApp(t, middleware.RateLimit("test", 1, time.Minute))

	resp, err := app.Test(emptyUpload(t))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(emptyUpload(t))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/render/placeholder", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
