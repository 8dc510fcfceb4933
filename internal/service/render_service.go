package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/evalmate-go/internal/contract"
	"github.com/noah-isme/evalmate-go/internal/dto"
	"github.com/noah-isme/evalmate-go/internal/models"
	"github.com/noah-isme/evalmate-go/internal/observability"
	"github.com/noah-isme/evalmate-go/internal/render"
)

// RenderService turns raw evaluation documents into rendered views.
type RenderService interface {
	// Parse decodes a modelAnswerPreview document. Null yields a nil result.
	Parse(ctx context.Context, raw json.RawMessage) (*models.EvaluationResult, error)
	// Render writes result in format. A nil result renders the placeholder.
	Render(ctx context.Context, result *models.EvaluationResult, format render.Format) (string, error)
	// RenderDocument parses raw and renders it. When payload is set, raw is a full
	// backend response and its modelAnswerPreview is rendered.
	RenderDocument(ctx context.Context, raw json.RawMessage, payload bool, format render.Format) (string, error)
	// Page renders the viewer index page.
	Page(ctx context.Context, page render.Page) (string, error)
}

type renderService struct {
	renderer *render.Renderer
	validate bool
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewRenderService constructs a render service. When validate is set, documents
// are checked against the evaluation result schema before rendering.
func NewRenderService(renderer *render.Renderer, validate bool, logger zerolog.Logger) RenderService {
	return &renderService{
		renderer: renderer,
		validate: validate,
		logger:   logger.With().Str("component", "render_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/evalmate-go/internal/service/render"),
	}
}

func (s *renderService) Parse(ctx context.Context, raw json.RawMessage) (*models.EvaluationResult, error) {
	_, span := s.tracer.Start(ctx, "render.parse", trace.WithAttributes(
		attribute.Bool("render.validate", s.validate),
		attribute.Int("render.bytes", len(raw)),
	))
	defer span.End()

	var (
		result *models.EvaluationResult
		err    error
	)
	if s.validate {
		result, err = contract.Parse(raw)
	} else {
		result, err = models.ParseEvaluationResult(raw)
		if err != nil {
			err = fmt.Errorf("%w: %v", contract.ErrMalformedResult, err)
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed result")
		s.logger.Warn().Err(err).Msg("evaluation result rejected")
		return nil, err
	}
	return result, nil
}

func (s *renderService) Render(ctx context.Context, result *models.EvaluationResult, format render.Format) (string, error) {
	_, span := s.tracer.Start(ctx, "render.view", trace.WithAttributes(
		attribute.String("render.format", string(format)),
		attribute.Bool("render.pending", result == nil),
	))
	defer span.End()

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, format, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return "", err
	}

	state := "result"
	if result == nil {
		state = "pending"
	}
	observability.Renders().WithLabelValues(string(format), state).Inc()
	return buf.String(), nil
}

func (s *renderService) RenderDocument(ctx context.Context, raw json.RawMessage, payload bool, format render.Format) (string, error) {
	if payload {
		decoded, err := dto.DecodeEvaluationPayload(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", contract.ErrMalformedResult, err)
		}
		raw = decoded.ModelAnswerPreview
	}

	result, err := s.Parse(ctx, raw)
	if err != nil {
		return "", err
	}
	return s.Render(ctx, result, format)
}

func (s *renderService) Page(ctx context.Context, page render.Page) (string, error) {
	_, span := s.tracer.Start(ctx, "render.page")
	defer span.End()

	var buf bytes.Buffer
	if err := s.renderer.RenderPage(&buf, page); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return "", err
	}
	return buf.String(), nil
}
