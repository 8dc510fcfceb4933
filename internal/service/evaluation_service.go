package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/evalmate-go/internal/contract"
	"github.com/noah-isme/evalmate-go/internal/dto"
	"github.com/noah-isme/evalmate-go/internal/middleware"
	"github.com/noah-isme/evalmate-go/internal/observability"
	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/pkg/evalclient"
)

// Evaluation outcomes recorded in metrics and job events.
const (
	OutcomeCompleted = "completed"
	OutcomePending   = "pending"
	OutcomeUpstream  = "upstream_error"
	OutcomeMalformed = "malformed"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// EvaluationService submits papers to the grading backend and prepares the result for display.
type EvaluationService interface {
	Evaluate(ctx context.Context, papers evalclient.Papers) (dto.EvaluationResponse, error)
	Interpret(ctx context.Context, payload json.RawMessage) (dto.EvaluationResponse, error)
}

type evaluationService struct {
	submitter evalclient.Submitter
	renders   RenderService
	endpoint  string
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewEvaluationService constructs an evaluation service posting to endpoint.
func NewEvaluationService(submitter evalclient.Submitter, renders RenderService, endpoint string, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		submitter: submitter,
		renders:   renders,
		endpoint:  endpoint,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/evalmate-go/internal/service/evaluation"),
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, papers evalclient.Papers) (dto.EvaluationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluations.evaluate", trace.WithAttributes(
		attribute.String("evaluation.endpoint", s.endpoint),
	))
	defer span.End()

	logger := middleware.LoggerFromContext(ctx, s.logger)
	start := time.Now()

	payload, err := s.submitter.Submit(ctx, s.endpoint, papers)
	if err != nil {
		s.fail(span, err)
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("evaluation submission failed")
		return dto.EvaluationResponse{}, fmt.Errorf("submit evaluation: %w", err)
	}

	response, err := s.Interpret(ctx, payload)
	if err != nil {
		s.fail(span, err)
		logger.Warn().Err(err).Msg("evaluation payload rejected")
		return dto.EvaluationResponse{}, err
	}

	outcome := OutcomeCompleted
	if response.ModelAnswerPreview == nil {
		outcome = OutcomePending
	}
	observability.Evaluations().WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("evaluation.outcome", outcome))
	span.SetStatus(codes.Ok, outcome)

	event := logger.Info().Str("outcome", outcome).Dur("duration", time.Since(start))
	if result := response.ModelAnswerPreview; result != nil {
		event = event.Int("answers", len(result.Answers))
	}
	event.Msg("evaluation finished")

	return response, nil
}

func (s *evaluationService) Interpret(ctx context.Context, payload json.RawMessage) (dto.EvaluationResponse, error) {
	decoded, err := dto.DecodeEvaluationPayload(payload)
	if err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("%w: %v", contract.ErrMalformedResult, err)
	}

	result, err := s.renders.Parse(ctx, decoded.ModelAnswerPreview)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	html, err := s.renders.Render(ctx, result, render.FormatHTML)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	return dto.EvaluationResponse{
		AnswerSheetPreview: decoded.AnswerSheetPreview,
		ModelAnswerPreview: result,
		Payload:            payload,
		HTML:               html,
	}, nil
}

func (s *evaluationService) fail(span trace.Span, err error) {
	outcome := ClassifyFailure(err)
	observability.Evaluations().WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.String("evaluation.outcome", outcome))
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
}

// ClassifyFailure maps an evaluation error to an outcome label.
func ClassifyFailure(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	case errors.Is(err, contract.ErrMalformedResult):
		return OutcomeMalformed
	default:
		return OutcomeUpstream
	}
}
