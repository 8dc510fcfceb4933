package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/evalmate-go/internal/contract"
	"github.com/noah-isme/evalmate-go/internal/dto"
	"github.com/noah-isme/evalmate-go/internal/middleware"
	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/internal/service"
	"github.com/noah-isme/evalmate-go/internal/utils"
	"github.com/noah-isme/evalmate-go/pkg/evalclient"
)

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// paperSet reads the three file parts. Missing parts are left for the paper
// service to report so the error names the field.
func paperSet(c *fiber.Ctx) service.PaperSet {
	return service.PaperSet{
		Answer:      service.UploadSource(evalclient.FieldAnswerPaper, formFile(c, evalclient.FieldAnswerPaper)),
		ModelAnswer: service.UploadSource(evalclient.FieldModelAnswerPaper, formFile(c, evalclient.FieldModelAnswerPaper)),
		Question:    service.UploadSource(evalclient.FieldQuestionPaper, formFile(c, evalclient.FieldQuestionPaper)),
	}
}

func formFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	file, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return file
}

func parseRenderFormat(c *fiber.Ctx, validate *validator.Validate) (render.Format, error) {
	query := dto.RenderQuery{Format: strings.ToLower(strings.TrimSpace(c.Query("format")))}
	if validate != nil {
		if err := validate.Struct(query); err != nil {
			return "", err
		}
	}
	return render.ParseFormat(query.Format)
}

// sendEvaluationError maps service and submitter failures onto HTTP responses.
func sendEvaluationError(c *fiber.Ctx, logger *zerolog.Logger, err error) error {
	var paperErr *service.PaperError
	var statusErr *evalclient.StatusError

	switch {
	case errors.As(err, &paperErr):
		status := fiber.StatusBadRequest
		if errors.Is(err, service.ErrPaperTooLarge) {
			status = fiber.StatusRequestEntityTooLarge
		}
		return utils.SendErrorWithDetails(c, status, paperErr.Err.Error(), fiber.Map{"field": paperErr.Field})
	case errors.Is(err, contract.ErrMalformedResult):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &statusErr):
		logger.Warn().Err(err).Int("upstream_status", statusErr.Code).Msg("grading backend rejected evaluation")
		return utils.SendErrorWithDetails(c, fiber.StatusBadGateway, statusErr.Error(), fiber.Map{"upstream_status": statusErr.Code})
	case errors.Is(err, evalclient.ErrInvalidJSON):
		return utils.SendError(c, fiber.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return utils.SendError(c, fiber.StatusGatewayTimeout, "evaluation timed out")
	case errors.Is(err, service.ErrJobNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrJobServiceClosed):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		logger.Error().Err(err).Msg("evaluation failed")
		return utils.SendError(c, fiber.StatusBadGateway, "evaluation failed")
	}
}
