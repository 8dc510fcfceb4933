package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/evalmate-go/internal/handler"
	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/internal/service"
	"github.com/noah-isme/evalmate-go/pkg/evalclient"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

const sampleResult = `{
	"quiz_number": 3,
	"course": "ACCT 2101",
	"metadata": {"company": "Harbor Outfitters"},
	"answers": [
		{"id": 1, "question": "Ending inventory?", "solution": {"method": "FIFO", "workings": {"ending_inventory_cost": 1250}, "final_answer": 1250}},
		{"id": 2, "question": "Gross profit effect?", "solution": {"final_answer": -150}}
	]
}`

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Details map[string]any  `json:"details"`
}

type stubSubmitter struct {
	mu      sync.Mutex
	payload json.RawMessage
	err     error
	calls   int
	release chan struct{}
}

func (s *stubSubmitter) Submit(ctx context.Context, _ string, papers evalclient.Papers) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls++
	release := s.release
	s.mu.Unlock()

	for _, file := range []evalclient.File{papers.AnswerPaper, papers.ModelAnswerPaper, papers.QuestionPaper} {
		if _, err := io.ReadAll(file.Content); err != nil {
			return nil, err
		}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func (s *stubSubmitter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func resultPayload() json.RawMessage {
	return json.RawMessage(`{"answerSheetPreview": "# Sheet", "modelAnswerPreview": ` + sampleResult + `}`)
}

type testStack struct {
	submitter   *stubSubmitter
	renders     service.RenderService
	papers      service.PaperService
	evaluations service.EvaluationService
	jobs        service.JobService
	logger      zerolog.Logger
}

func newTestStack(t *testing.T, submitter *stubSubmitter, maxBytes int64) testStack {
	t.Helper()
	logger := zerolog.New(io.Discard)
	renders := service.NewRenderService(render.New(render.Options{NoColor: true}), true, logger)
	evaluations := service.NewEvaluationService(submitter, renders, "http://grader.test/evaluate", logger)
	jobs := service.NewJobService(evaluations, renders, nil, service.JobConfig{}, logger)
	t.Cleanup(jobs.Close)

	return testStack{
		submitter:   submitter,
		renders:     renders,
		papers:      service.NewPaperService(maxBytes, logger),
		evaluations: evaluations,
		jobs:        jobs,
		logger:      logger,
	}
}

func (s testStack) evaluationApp() *fiber.App {
	app := fiber.New()
	handler.NewEvaluationHandler(s.papers, s.evaluations, s.jobs, s.logger).Register(app.Group("/api/v1/evaluations"))
	return app
}

func (s testStack) renderApp() *fiber.App {
	app := fiber.New()
	handler.NewRenderHandler(s.renders, validator.New(), s.logger).Register(app.Group("/api/v1/render"))
	return app
}

type paperPart struct {
	field   string
	name    string
	content []byte
}

func threePapers() []paperPart {
	return []paperPart{
		{field: evalclient.FieldAnswerPaper, name: "answers.pdf", content: samplePDF},
		{field: evalclient.FieldModelAnswerPaper, name: "model.pdf", content: samplePDF},
		{field: evalclient.FieldQuestionPaper, name: "question.pdf", content: samplePDF},
	}
}

func multipartRequest(t *testing.T, method, target string, parts []paperPart) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, part := range parts {
		w, err := writer.CreateFormFile(part.field, part.name)
		require.NoError(t, err)
		_, err = w.Write(part.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func samplePapers() evalclient.Papers {
	return evalclient.Papers{
		AnswerPaper:      evalclient.File{Name: "answer.pdf", Content: bytes.NewReader(samplePDF)},
		ModelAnswerPaper: evalclient.File{Name: "model.pdf", Content: bytes.NewReader(samplePDF)},
		QuestionPaper:    evalclient.File{Name: "question.pdf", Content: bytes.NewReader(samplePDF)},
	}
}
