package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/evalmate-go/internal/config"
	"github.com/noah-isme/evalmate-go/internal/handler"
	"github.com/noah-isme/evalmate-go/internal/middleware"
	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/internal/router"
	"github.com/noah-isme/evalmate-go/internal/service"
	"github.com/noah-isme/evalmate-go/pkg/evalclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	var publisher service.EventPublisher
	if cfg.NATSURL != "" {
		conn, err := service.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, job events disabled")
		} else {
			defer drain(conn, logger)
			publisher = conn
		}
	}

	var submitter evalclient.Submitter
	if cfg.EvaluationMock {
		logger.Warn().Dur("delay", cfg.EvaluationMockDelay).Msg("using mock evaluation backend")
		submitter = evalclient.NewMockSubmitter(cfg.EvaluationMockDelay, logger)
	} else {
		submitter = evalclient.NewClient(evalclient.Config{Timeout: cfg.EvaluationTimeout, Logger: logger})
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	renderer := render.New(render.Options{CurrencySymbol: cfg.RenderCurrency})

	renderService := service.NewRenderService(renderer, cfg.EvaluationValidate, logger)
	paperService := service.NewPaperService(cfg.UploadMaxBytes, logger)
	evaluationService := service.NewEvaluationService(submitter, renderService, cfg.EvaluationEndpoint, logger)
	jobService := service.NewJobService(evaluationService, renderService, publisher, service.JobConfig{
		TTL:     cfg.JobsTTL,
		Subject: cfg.NATSSubject,
	}, logger)

	jobsCtx, stopJobs := context.WithCancel(context.Background())
	go jobService.Start(jobsCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(3*cfg.UploadMaxBytes) + 1024*1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		IndexHandler: handler.NewIndexHandler(renderService, render.Page{
			AppName:       cfg.AppName,
			JobsEndpoint:  router.JobsEndpoint,
			WebSocketPath: router.WebSocketPath,
		}, logger),
		EvaluationHandler: handler.NewEvaluationHandler(paperService, evaluationService, jobService, logger),
		JobStreamHandler:  handler.NewJobStreamHandler(jobService, logger),
		RenderHandler:     handler.NewRenderHandler(renderService, validate, logger),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Bool("mock", cfg.EvaluationMock).Msg("starting server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)

	stopJobs()
	jobService.Close()
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}

func drain(conn *nats.Conn, logger zerolog.Logger) {
	if err := conn.Drain(); err != nil {
		logger.Warn().Err(err).Msg("nats drain failed")
	}
}
