package service

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/pkg/evalclient"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

const sampleResult = `{
	"quiz_number": 3,
	"course": "ACCT 2101",
	"term": "Fall 2024",
	"title": "Inventory Costing",
	"answers": [
		{"id": 1, "question": "Ending inventory?", "solution": {"method": "FIFO", "workings": {"ending_inventory_cost": 1250}, "final_answer": 1250}},
		{"id": 2, "question": "Gross profit effect?", "solution": {"final_answer": -150}}
	]
}`

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestRenderService(validate bool) RenderService {
	return NewRenderService(render.New(render.Options{NoColor: true}), validate, testLogger())
}

type stubSubmitter struct {
	mu       sync.Mutex
	payload  json.RawMessage
	err      error
	calls    int
	endpoint string
	release  chan struct{}
}

func (s *stubSubmitter) Submit(ctx context.Context, endpoint string, _ evalclient.Papers) (json.RawMessage, error) {
	s.mu.Lock()
	s.calls++
	s.endpoint = endpoint
	release := s.release
	s.mu.Unlock()

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

type publishedEvent struct {
	subject string
	data    []byte
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{subject: subject, data: data})
	return nil
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func buildFileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"" + field + "\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/pdf"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File[field]
	require.Len(t, files, 1)
	return files[0]
}

func samplePapers() evalclient.Papers {
	return evalclient.Papers{
		AnswerPaper:      evalclient.File{Name: "answer.pdf", Content: bytes.NewReader(samplePDF)},
		ModelAnswerPaper: evalclient.File{Name: "model.pdf", Content: bytes.NewReader(samplePDF)},
		QuestionPaper:    evalclient.File{Name: "question.pdf", Content: bytes.NewReader(samplePDF)},
	}
}
