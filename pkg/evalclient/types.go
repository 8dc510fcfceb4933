package evalclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Multipart field names expected by the grading backend.
const (
	FieldAnswerPaper      = "answerPaper"
	FieldModelAnswerPaper = "modelAnswerPaper"
	FieldQuestionPaper    = "questionPaper"
)

var (
	// ErrInvalidJSON indicates the backend answered with a body that is not JSON.
	ErrInvalidJSON = errors.New("evaluation api returned invalid json")
	// ErrMissingFile indicates one of the three papers has no content reader.
	ErrMissingFile = errors.New("evaluation paper is missing")
	// ErrEndpointRequired indicates Submit was called without an endpoint.
	ErrEndpointRequired = errors.New("evaluation endpoint is required")
)

// StatusError is returned when the backend answers with a non-success status.
type StatusError struct {
	Code int
	Text string
	// Body holds the start of the response body for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("evaluation api error: %d %s", e.Code, e.Text)
}

// File is one uploaded paper. Name is used as the multipart filename.
type File struct {
	Name    string
	Content io.Reader
}

// Papers groups the three documents of one evaluation.
type Papers struct {
	AnswerPaper      File
	ModelAnswerPaper File
	QuestionPaper    File
}

func (p Papers) parts() []part {
	return []part{
		{field: FieldAnswerPaper, file: p.AnswerPaper},
		{field: FieldModelAnswerPaper, file: p.ModelAnswerPaper},
		{field: FieldQuestionPaper, file: p.QuestionPaper},
	}
}

type part struct {
	field string
	file  File
}

// Submitter sends papers to a grading backend and returns its JSON answer verbatim.
type Submitter interface {
	Submit(ctx context.Context, endpoint string, papers Papers) (json.RawMessage, error)
}
