package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/evalmate-go/internal/middleware"
	"github.com/noah-isme/evalmate-go/internal/service"
)

// CloseJobNotFound is sent when a client subscribes to an unknown job.
const CloseJobNotFound = 4404

const streamWriteTimeout = 10 * time.Second

// JobStreamHandler pushes job snapshots over a websocket until the job finishes.
type JobStreamHandler struct {
	jobs   service.JobService
	logger zerolog.Logger
}

// NewJobStreamHandler creates a job stream handler.
func NewJobStreamHandler(jobs service.JobService, logger zerolog.Logger) *JobStreamHandler {
	return &JobStreamHandler{
		jobs:   jobs,
		logger: logger.With().Str("component", "job_stream_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *JobStreamHandler) Register(router fiber.Router) {
	router.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/:id", websocket.New(h.stream))
}

func (h *JobStreamHandler) stream(conn *websocket.Conn) {
	id := strings.TrimSpace(conn.Params("id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	logger := middleware.LoggerFromContext(baseCtx, h.logger).With().Str("job_id", id).Logger()

	updates, cleanup, err := h.jobs.Subscribe(id)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(CloseJobNotFound, "job not found"))
		_ = conn.Close()
		return
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	// Drain client frames so a closed socket cancels the stream.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Debug().Msg("job stream opened")
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("job stream closed by client")
			return
		case snapshot, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
					time.Now().Add(streamWriteTimeout))
				_ = conn.Close()
				logger.Debug().Msg("job stream finished")
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(snapshot); err != nil {
				logger.Warn().Err(err).Msg("failed to push job snapshot")
				return
			}
		}
	}
}
