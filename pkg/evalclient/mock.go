package evalclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMockDelay simulates backend latency.
const DefaultMockDelay = 2 * time.Second

// MockAnswerSheetPreview is the static preview returned by the mock submitter.
const MockAnswerSheetPreview = "# Answer Sheet Preview\n\n## Student Answers\n\nThe uploaded answer paper is displayed on the left side for review."

// MockSubmitter stands in for the grading backend during local development.
// It returns a pending evaluation after a fixed delay.
type MockSubmitter struct {
	delay  time.Duration
	logger zerolog.Logger
}

// NewMockSubmitter builds a mock submitter. A non-positive delay uses DefaultMockDelay.
func NewMockSubmitter(delay time.Duration, logger zerolog.Logger) *MockSubmitter {
	if delay <= 0 {
		delay = DefaultMockDelay
	}
	return &MockSubmitter{
		delay:  delay,
		logger: logger.With().Str("component", "evalclient_mock").Logger(),
	}
}

// Submit ignores endpoint and papers. It honours ctx cancellation while waiting.
func (m *MockSubmitter) Submit(ctx context.Context, endpoint string, _ Papers) (json.RawMessage, error) {
	m.logger.Debug().Str("endpoint", endpoint).Dur("delay", m.delay).Msg("mock evaluation submitted")

	timer := time.NewTimer(m.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		m.logger.Warn().Err(ctx.Err()).Msg("mock evaluation cancelled")
		return nil, ctx.Err()
	case <-timer.C:
	}

	return MockPayload(), nil
}

// MockPayload returns the fixed body produced by MockSubmitter.
func MockPayload() json.RawMessage {
	payload, _ := json.Marshal(struct {
		AnswerSheetPreview string          `json:"answerSheetPreview"`
		ModelAnswerPreview json.RawMessage `json:"modelAnswerPreview"`
	}{
		AnswerSheetPreview: MockAnswerSheetPreview,
		ModelAnswerPreview: json.RawMessage("null"),
	})
	return payload
}
