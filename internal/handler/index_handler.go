package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/internal/service"
	"github.com/noah-isme/evalmate-go/internal/utils"
)

// IndexHandler serves the upload form with the processing placeholder.
type IndexHandler struct {
	renders service.RenderService
	page    render.Page
	logger  zerolog.Logger
}

// NewIndexHandler creates an index handler for page.
func NewIndexHandler(renders service.RenderService, page render.Page, logger zerolog.Logger) *IndexHandler {
	return &IndexHandler{
		renders: renders,
		page:    page,
		logger:  logger.With().Str("component", "index_handler").Logger(),
	}
}

// Register binds the index route.
func (h *IndexHandler) Register(router fiber.Router) {
	router.Get("/", h.index)
}

func (h *IndexHandler) index(c *fiber.Ctx) error {
	output, err := h.renders.Page(requestContext(c), h.page)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("index render failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "page unavailable")
	}

	return utils.SendDocument(c, fiber.MIMETextHTMLCharsetUTF8, output)
}
