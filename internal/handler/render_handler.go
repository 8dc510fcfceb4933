package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/evalmate-go/internal/contract"
	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/internal/service"
	"github.com/noah-isme/evalmate-go/internal/utils"
)

// RenderHandler renders evaluation results supplied by the caller.
type RenderHandler struct {
	renders   service.RenderService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRenderHandler constructs a render handler.
func NewRenderHandler(renders service.RenderService, validator *validator.Validate, logger zerolog.Logger) *RenderHandler {
	return &RenderHandler{
		renders:   renders,
		validator: validator,
		logger:    logger.With().Str("component", "render_handler").Logger(),
	}
}

// Register wires render routes.
func (h *RenderHandler) Register(router fiber.Router) {
	router.Post("", h.render)
	router.Get("/placeholder", h.placeholder)
}

func (h *RenderHandler) render(c *fiber.Ctx) error {
	format, err := parseRenderFormat(c, h.validator)
	if err != nil {
		return h.sendFormatError(c, err)
	}

	// payload=true means the body is a full backend response rather than a bare result.
	output, err := h.renders.RenderDocument(requestContext(c), c.Body(), c.QueryBool("payload"), format)
	if err != nil {
		if errors.Is(err, contract.ErrMalformedResult) {
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("render failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "render failed")
	}

	return sendRendering(c, format, output)
}

func (h *RenderHandler) placeholder(c *fiber.Ctx) error {
	format, err := parseRenderFormat(c, h.validator)
	if err != nil {
		return h.sendFormatError(c, err)
	}

	output, err := h.renders.Render(requestContext(c), nil, format)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("placeholder render failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "render failed")
	}
	return sendRendering(c, format, output)
}

func (h *RenderHandler) sendFormatError(c *fiber.Ctx, err error) error {
	if isValidationError(err) || errors.Is(err, render.ErrUnknownFormat) {
		return utils.SendError(c, fiber.StatusBadRequest, "format must be html or text")
	}
	return utils.SendError(c, fiber.StatusBadRequest, err.Error())
}

func sendRendering(c *fiber.Ctx, format render.Format, output string) error {
	if format == render.FormatText {
		return utils.SendDocument(c, fiber.MIMETextPlainCharsetUTF8, output)
	}
	return utils.SendDocument(c, fiber.MIMETextHTMLCharsetUTF8, output)
}
