// Package evalclient submits exam papers to the grading backend.
package evalclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 512

var errorPagePolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// Failure reasons recorded by the failures counter.
const (
	reasonRequest     = "request"
	reasonTransport   = "transport"
	reasonStatus      = "status"
	reasonInvalidJSON = "invalid_json"
)

var (
	submitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "evalmate",
		Subsystem: "submitter",
		Name:      "request_duration_seconds",
		Help:      "Duration of evaluation submissions",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"outcome"})

	submitFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evalmate",
		Subsystem: "submitter",
		Name:      "failures_total",
		Help:      "Number of failed evaluation submissions",
	}, []string{"reason"})
)

// Config defines configuration options for the HTTP submitter.
type Config struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// Client posts papers as one multipart request. It holds no per-call state and
// is safe for concurrent use.
type Client struct {
	http   *http.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewClient builds a submitter using the provided configuration.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		http:   httpClient,
		tracer: otel.Tracer("github.com/noah-isme/evalmate-go/pkg/evalclient"),
		logger: logger.With().Str("component", "evalclient").Logger(),
	}
}

// Submit uploads the three papers to endpoint in a single POST and returns the
// response body unmodified. There is no retry.
func (c *Client) Submit(parent context.Context, endpoint string, papers Papers) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(parent, "evalclient.submit", trace.WithAttributes(
		attribute.String("evaluation.endpoint", endpoint),
	))
	defer span.End()

	start := time.Now()
	body, err := c.submit(ctx, endpoint, papers)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		event := c.logger.Error().Err(err).Str("endpoint", endpoint).Dur("duration", time.Since(start))
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Body != "" {
			event = event.Str("upstream_body", statusErr.Body)
		}
		event.Msg("evaluation submission failed")
	}
	submitDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return body, err
}

func (c *Client) submit(ctx context.Context, endpoint string, papers Papers) (json.RawMessage, error) {
	if strings.TrimSpace(endpoint) == "" {
		submitFailures.WithLabelValues(reasonRequest).Inc()
		return nil, ErrEndpointRequired
	}

	payload, contentType, err := encodePapers(papers)
	if err != nil {
		submitFailures.WithLabelValues(reasonRequest).Inc()
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		submitFailures.WithLabelValues(reasonRequest).Inc()
		return nil, fmt.Errorf("build evaluation request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		submitFailures.WithLabelValues(reasonTransport).Inc()
		return nil, fmt.Errorf("post evaluation: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		submitFailures.WithLabelValues(reasonTransport).Inc()
		return nil, fmt.Errorf("read evaluation response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		submitFailures.WithLabelValues(reasonStatus).Inc()
		return nil, newStatusError(resp, raw)
	}

	if !json.Valid(raw) {
		submitFailures.WithLabelValues(reasonInvalidJSON).Inc()
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(raw), nil
}

func encodePapers(papers Papers) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, p := range papers.parts() {
		if p.file.Content == nil {
			return nil, "", fmt.Errorf("%w: %s", ErrMissingFile, p.field)
		}
		name := p.file.Name
		if name == "" {
			name = p.field + ".pdf"
		}
		dst, err := writer.CreateFormFile(p.field, name)
		if err != nil {
			return nil, "", fmt.Errorf("create %s part: %w", p.field, err)
		}
		if _, err := io.Copy(dst, p.file.Content); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", p.field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	detail := string(body)
	// Proxies in front of the backend answer with HTML error pages.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		detail = strings.Join(strings.Fields(html.UnescapeString(errorPagePolicy.Sanitize(detail))), " ")
	}
	if len(detail) > maxErrorBody {
		detail = detail[:maxErrorBody]
	}
	return &StatusError{Code: resp.StatusCode, Text: text, Body: detail}
}
