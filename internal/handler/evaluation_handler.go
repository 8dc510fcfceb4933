package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/evalmate-go/internal/service"
	"github.com/noah-isme/evalmate-go/internal/utils"
)

// EvaluationHandler accepts the three papers and runs evaluations.
type EvaluationHandler struct {
	papers      service.PaperService
	evaluations service.EvaluationService
	jobs        service.JobService
	logger      zerolog.Logger
}

// NewEvaluationHandler constructs an evaluation handler. jobs may be nil, in
// which case only the synchronous route is registered.
func NewEvaluationHandler(papers service.PaperService, evaluations service.EvaluationService, jobs service.JobService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		papers:      papers,
		evaluations: evaluations,
		jobs:        jobs,
		logger:      logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes. guards run before every submission route.
func (h *EvaluationHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Post("", guarded(guards, h.evaluate)...)
	if h.jobs != nil {
		router.Post("/jobs", guarded(guards, h.submitJob)...)
		router.Get("/jobs/:id", h.getJob)
	}
}

func guarded(guards []fiber.Handler, final fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guards)+1)
	handlers = append(handlers, guards...)
	return append(handlers, final)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	ctx := requestContext(c)
	logger := requestLogger(h.logger, c)

	papers, err := h.papers.Prepare(ctx, paperSet(c))
	if err != nil {
		return sendEvaluationError(c, logger, err)
	}

	response, err := h.evaluations.Evaluate(ctx, papers)
	if err != nil {
		return sendEvaluationError(c, logger, err)
	}

	message := "evaluation completed"
	if response.ModelAnswerPreview == nil {
		message = "evaluation pending"
	}
	return utils.SendSuccess(c, message, response)
}

func (h *EvaluationHandler) submitJob(c *fiber.Ctx) error {
	ctx := requestContext(c)
	logger := requestLogger(h.logger, c)

	papers, err := h.papers.Prepare(ctx, paperSet(c))
	if err != nil {
		return sendEvaluationError(c, logger, err)
	}

	job, err := h.jobs.Submit(ctx, papers)
	if err != nil {
		return sendEvaluationError(c, logger, err)
	}

	c.Location(strings.TrimSuffix(c.Path(), "/") + "/" + job.ID)
	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "evaluation accepted", job)
}

func (h *EvaluationHandler) getJob(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if id == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "job id required")
	}

	job, err := h.jobs.Get(requestContext(c), id)
	if err != nil {
		return sendEvaluationError(c, requestLogger(h.logger, c), err)
	}
	return utils.SendSuccess(c, "evaluation job", job)
}
