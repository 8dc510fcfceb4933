package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/noah-isme/evalmate-go/internal/models"
)

// ErrPayloadNotObject indicates the grading backend answered with JSON that is not an object.
var ErrPayloadNotObject = errors.New("evaluation payload is not a json object")

// Evaluation job states.
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// EvaluationUpload describes the multipart payload accepted by the evaluation endpoints.
type EvaluationUpload struct {
	AnswerPaper      *multipart.FileHeader `form:"answerPaper" validate:"required"`
	ModelAnswerPaper *multipart.FileHeader `form:"modelAnswerPaper" validate:"required"`
	QuestionPaper    *multipart.FileHeader `form:"questionPaper" validate:"required"`
}

// EvaluationPayload is the response document of the grading backend.
type EvaluationPayload struct {
	AnswerSheetPreview string          `json:"answerSheetPreview,omitempty"`
	ModelAnswerPreview json.RawMessage `json:"modelAnswerPreview,omitempty"`
}

// DecodeEvaluationPayload extracts the known fields of a backend response.
// Unknown fields are ignored.
func DecodeEvaluationPayload(raw []byte) (EvaluationPayload, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return EvaluationPayload{}, err
	}
	if _, ok := probe.(map[string]any); !ok {
		return EvaluationPayload{}, ErrPayloadNotObject
	}

	var payload EvaluationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return EvaluationPayload{}, fmt.Errorf("decode evaluation payload: %w", err)
	}
	return payload, nil
}

// EvaluationResponse is returned to API clients once an evaluation finished.
type EvaluationResponse struct {
	AnswerSheetPreview string                   `json:"answerSheetPreview,omitempty"`
	ModelAnswerPreview *models.EvaluationResult `json:"modelAnswerPreview"`
	Payload            json.RawMessage          `json:"payload,omitempty"`
	HTML               string                   `json:"html"`
}

// EvaluationJob is a snapshot of an asynchronous evaluation.
type EvaluationJob struct {
	ID        string              `json:"id"`
	Status    string              `json:"status"`
	Error     string              `json:"error,omitempty"`
	HTML      string              `json:"html"`
	Result    *EvaluationResponse `json:"result,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Done reports whether the job reached a terminal state.
func (j EvaluationJob) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// EvaluationJobEvent is published when a job reaches a terminal state.
type EvaluationJobEvent struct {
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	QuizNumber  *int      `json:"quiz_number,omitempty"`
	Course      string    `json:"course,omitempty"`
	AnswerCount int       `json:"answer_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// RenderQuery selects the output of the render endpoint.
type RenderQuery struct {
	Format string `query:"format" validate:"omitempty,oneof=html text"`
}
