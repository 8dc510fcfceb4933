package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/evalmate-go/internal/observability"
	"github.com/noah-isme/evalmate-go/pkg/evalclient"
)

const pdfMime = "application/pdf"

var (
	// ErrPaperMissing indicates one of the three papers was not supplied.
	ErrPaperMissing = errors.New("paper is required")
	// ErrPaperTooLarge indicates the paper exceeded the configured limit.
	ErrPaperTooLarge = errors.New("paper exceeds maximum allowed size")
	// ErrPaperNotPDF indicates the paper content is not a PDF document.
	ErrPaperNotPDF = errors.New("paper must be a pdf document")
)

// PaperError ties an intake failure to the form field it concerns.
type PaperError struct {
	Field string
	Err   error
}

func (e *PaperError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *PaperError) Unwrap() error {
	return e.Err
}

// PaperSource describes where a paper can be read from.
type PaperSource struct {
	Field string
	Name  string
	// Size is the declared size, or 0 when unknown.
	Size int64
	Open func() (io.ReadCloser, error)
}

// UploadSource adapts a multipart file header. A nil header yields a source
// that reports ErrPaperMissing.
func UploadSource(field string, file *multipart.FileHeader) PaperSource {
	if file == nil {
		return PaperSource{Field: field}
	}
	return PaperSource{
		Field: field,
		Name:  file.Filename,
		Size:  file.Size,
		Open: func() (io.ReadCloser, error) {
			return file.Open()
		},
	}
}

// FileSource adapts a file on disk. An empty path yields a missing source.
func FileSource(field, path string) PaperSource {
	if strings.TrimSpace(path) == "" {
		return PaperSource{Field: field}
	}
	return PaperSource{
		Field: field,
		Name:  filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// PaperSet groups the three sources of one evaluation.
type PaperSet struct {
	Answer      PaperSource
	ModelAnswer PaperSource
	Question    PaperSource
}

// PaperService validates uploaded papers and buffers them for submission.
type PaperService interface {
	Prepare(ctx context.Context, set PaperSet) (evalclient.Papers, error)
}

type paperService struct {
	maxSize int64
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewPaperService constructs the intake service. maxBytes bounds each paper.
func NewPaperService(maxBytes int64, logger zerolog.Logger) PaperService {
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	return &paperService{
		maxSize: maxBytes,
		logger:  logger.With().Str("component", "paper_service").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/evalmate-go/internal/service/paper"),
	}
}

func (s *paperService) Prepare(ctx context.Context, set PaperSet) (evalclient.Papers, error) {
	ctx, span := s.tracer.Start(ctx, "papers.prepare", trace.WithAttributes(
		attribute.Int64("paper.max_bytes", s.maxSize),
	))
	defer span.End()

	answer, err := s.read(ctx, set.Answer)
	if err != nil {
		return evalclient.Papers{}, s.reject(span, set.Answer.Field, err)
	}
	model, err := s.read(ctx, set.ModelAnswer)
	if err != nil {
		return evalclient.Papers{}, s.reject(span, set.ModelAnswer.Field, err)
	}
	question, err := s.read(ctx, set.Question)
	if err != nil {
		return evalclient.Papers{}, s.reject(span, set.Question.Field, err)
	}

	span.SetStatus(codes.Ok, "papers accepted")
	return evalclient.Papers{
		AnswerPaper:      answer,
		ModelAnswerPaper: model,
		QuestionPaper:    question,
	}, nil
}

func (s *paperService) read(ctx context.Context, source PaperSource) (evalclient.File, error) {
	if source.Open == nil {
		return evalclient.File{}, ErrPaperMissing
	}
	if source.Size > s.maxSize {
		return evalclient.File{}, ErrPaperTooLarge
	}
	if err := ctx.Err(); err != nil {
		return evalclient.File{}, err
	}

	handle, err := source.Open()
	if err != nil {
		return evalclient.File{}, fmt.Errorf("open paper: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return evalclient.File{}, fmt.Errorf("read paper: %w", err)
	}
	if buf.Len() == 0 {
		return evalclient.File{}, ErrPaperMissing
	}
	if int64(buf.Len()) > s.maxSize {
		return evalclient.File{}, ErrPaperTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if !detected.Is(pdfMime) {
		s.logger.Debug().Str("field", source.Field).Str("mime", detected.String()).Msg("paper rejected")
		return evalclient.File{}, ErrPaperNotPDF
	}

	return evalclient.File{
		Name:    sanitizeFileName(source.Name, source.Field),
		Content: bytes.NewReader(buf.Bytes()),
	}, nil
}

func (s *paperService) reject(span trace.Span, field string, err error) error {
	reason := "read"
	switch {
	case errors.Is(err, ErrPaperMissing):
		reason = "missing"
	case errors.Is(err, ErrPaperTooLarge):
		reason = "size"
	case errors.Is(err, ErrPaperNotPDF):
		reason = "type"
	}
	observability.PaperRejections().WithLabelValues(reason).Inc()
	span.SetAttributes(attribute.String("paper.rejected_field", field))
	span.RecordError(err)
	span.SetStatus(codes.Error, "paper rejected")
	s.logger.Warn().Err(err).Str("field", field).Str("reason", reason).Msg("paper intake failed")
	return &PaperError{Field: field, Err: err}
}

func sanitizeFileName(name, fallback string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fallback
	}
	return base + ".pdf"
}
