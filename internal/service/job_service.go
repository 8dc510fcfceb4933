package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/evalmate-go/internal/dto"
	"github.com/noah-isme/evalmate-go/internal/middleware"
	"github.com/noah-isme/evalmate-go/internal/observability"
	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/pkg/evalclient"
)

const jobBufferSize = 4

var (
	// ErrJobNotFound indicates the job id is unknown or already expired.
	ErrJobNotFound = errors.New("evaluation job not found")
	// ErrJobServiceClosed indicates the service no longer accepts jobs.
	ErrJobServiceClosed = errors.New("evaluation job service is closed")
)

// JobConfig tunes the asynchronous job registry.
type JobConfig struct {
	// TTL is how long finished jobs stay retrievable.
	TTL time.Duration
	// SweepInterval is how often expired jobs are removed. Defaults to TTL/2.
	SweepInterval time.Duration
	// Subject is the base NATS subject; events go to "<subject>.<status>".
	Subject string
}

// JobService runs evaluations in the background and streams their progress.
type JobService interface {
	Submit(ctx context.Context, papers evalclient.Papers) (dto.EvaluationJob, error)
	Get(ctx context.Context, id string) (dto.EvaluationJob, error)
	// Subscribe returns the current snapshot followed by later ones. The channel
	// is closed after the terminal snapshot. Intermediate snapshots may be
	// dropped for slow readers; the terminal one never is.
	Subscribe(id string) (<-chan dto.EvaluationJob, func(), error)
	// Start sweeps expired jobs until ctx is done or the service is closed.
	Start(ctx context.Context)
	// Close cancels running evaluations and waits for them to finish.
	Close()
}

type jobEntry struct {
	job         dto.EvaluationJob
	subscribers map[chan dto.EvaluationJob]struct{}
	expiresAt   time.Time
}

type jobService struct {
	evaluations EvaluationService
	renders     RenderService
	publisher   EventPublisher
	cfg         JobConfig
	logger      zerolog.Logger
	tracer      trace.Tracer

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	jobs   map[string]*jobEntry
	closed bool
}

// NewJobService constructs the job registry. publisher may be nil.
func NewJobService(evaluations EvaluationService, renders RenderService, publisher EventPublisher, cfg JobConfig, logger zerolog.Logger) JobService {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = cfg.TTL / 2
	}
	cfg.Subject = strings.TrimSuffix(strings.TrimSpace(cfg.Subject), ".")

	base, cancel := context.WithCancel(context.Background())
	return &jobService{
		evaluations: evaluations,
		renders:     renders,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger.With().Str("component", "job_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/evalmate-go/internal/service/jobs"),
		base:        base,
		cancel:      cancel,
		jobs:        make(map[string]*jobEntry),
	}
}

func (s *jobService) Submit(ctx context.Context, papers evalclient.Papers) (dto.EvaluationJob, error) {
	placeholder, err := s.renders.Render(ctx, nil, render.FormatHTML)
	if err != nil {
		return dto.EvaluationJob{}, err
	}

	now := time.Now().UTC()
	job := dto.EvaluationJob{
		ID:        uuid.NewString(),
		Status:    dto.JobStatusProcessing,
		HTML:      placeholder,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return dto.EvaluationJob{}, ErrJobServiceClosed
	}
	s.jobs[job.ID] = &jobEntry{job: job, subscribers: make(map[chan dto.EvaluationJob]struct{})}
	s.wg.Add(1)
	s.mu.Unlock()

	correlationID := middleware.CorrelationIDFromContext(ctx)
	jobCtx := middleware.ContextWithCorrelation(s.base, correlationID)

	observability.JobsInFlight().Inc()
	go s.run(jobCtx, job.ID, papers)

	s.logger.Info().Str("job_id", job.ID).Str("correlation_id", correlationID).Msg("evaluation job accepted")
	return job, nil
}

func (s *jobService) run(ctx context.Context, id string, papers evalclient.Papers) {
	defer s.wg.Done()
	defer observability.JobsInFlight().Dec()

	ctx, span := s.tracer.Start(ctx, "jobs.run", trace.WithAttributes(attribute.String("job.id", id)))
	defer span.End()

	response, err := s.evaluations.Evaluate(ctx, papers)
	snapshot := s.finish(id, response, err)
	span.SetAttributes(attribute.String("job.status", snapshot.Status))
	s.publish(snapshot)
}

func (s *jobService) finish(id string, response dto.EvaluationResponse, err error) dto.EvaluationJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[id]
	if !ok {
		return dto.EvaluationJob{ID: id, Status: dto.JobStatusFailed}
	}

	now := time.Now().UTC()
	entry.job.UpdatedAt = now
	if err != nil {
		entry.job.Status = dto.JobStatusFailed
		entry.job.Error = err.Error()
		s.logger.Warn().Err(err).Str("job_id", id).Msg("evaluation job failed")
	} else {
		entry.job.Status = dto.JobStatusCompleted
		entry.job.HTML = response.HTML
		entry.job.Result = &response
		s.logger.Info().Str("job_id", id).Msg("evaluation job completed")
	}
	entry.expiresAt = now.Add(s.cfg.TTL)

	snapshot := entry.job
	for ch := range entry.subscribers {
		deliverTerminal(ch, snapshot)
		close(ch)
	}
	entry.subscribers = nil
	return snapshot
}

// deliverTerminal makes room for the final snapshot by dropping the oldest buffered one.
func deliverTerminal(ch chan dto.EvaluationJob, snapshot dto.EvaluationJob) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}

func (s *jobService) publish(job dto.EvaluationJob) {
	if s.publisher == nil || s.cfg.Subject == "" {
		return
	}

	event := dto.EvaluationJobEvent{
		JobID:       job.ID,
		Status:      job.Status,
		Error:       job.Error,
		CompletedAt: job.UpdatedAt,
	}
	if job.Result != nil && job.Result.ModelAnswerPreview != nil {
		result := job.Result.ModelAnswerPreview
		event.QuizNumber = result.QuizNumber
		event.Course = result.Course
		event.AnswerCount = len(result.Answers)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to encode job event")
		return
	}
	subject := s.cfg.Subject + "." + job.Status
	if err := s.publisher.Publish(subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Str("subject", subject).Msg("failed to publish job event")
	}
}

func (s *jobService) Get(_ context.Context, id string) (dto.EvaluationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.jobs[id]
	if !ok {
		return dto.EvaluationJob{}, ErrJobNotFound
	}
	return entry.job, nil
}

func (s *jobService) Subscribe(id string) (<-chan dto.EvaluationJob, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[id]
	if !ok {
		return nil, nil, ErrJobNotFound
	}

	ch := make(chan dto.EvaluationJob, jobBufferSize)
	ch <- entry.job
	if entry.job.Done() {
		close(ch)
		return ch, func() {}, nil
	}

	entry.subscribers[ch] = struct{}{}
	cleanup := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if current, ok := s.jobs[id]; ok {
			if _, subscribed := current.subscribers[ch]; subscribed {
				delete(current.subscribers, ch)
				close(ch)
			}
		}
	}
	return ch, cleanup, nil
}

func (s *jobService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.base.Done():
			return
		case now := <-ticker.C:
			s.sweep(now.UTC())
		}
	}
}

func (s *jobService) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.jobs {
		if entry.job.Done() && now.After(entry.expiresAt) {
			delete(s.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("expired evaluation jobs swept")
	}
}

func (s *jobService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
