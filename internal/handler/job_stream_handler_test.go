package handler_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/evalmate-go/internal/dto"
	"github.com/noah-isme/evalmate-go/internal/handler"
	"github.com/noah-isme/evalmate-go/internal/middleware"
)

func startStreamServer(t *testing.T, stack testStack) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(middleware.CorrelationID())
	handler.NewJobStreamHandler(stack.jobs, stack.logger).Register(app.Group("/ws/evaluations/jobs"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String() + "/ws/evaluations/jobs/"
}

func TestJobStreamHandler_PushesUntilFinished(t *testing.T) {
	submitter := &stubSubmitter{payload: resultPayload(), release: make(chan struct{})}
	stack := newTestStack(t, submitter, 1024*1024)
	base := startStreamServer(t, stack)

	job, err := stack.jobs.Submit(context.Background(), samplePapers())
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(base+job.ID, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var first dto.EvaluationJob
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, job.ID, first.ID)
	require.Equal(t, dto.JobStatusProcessing, first.Status)

	close(submitter.release)

	var last dto.EvaluationJob
	for {
		var snapshot dto.EvaluationJob
		err := conn.ReadJSON(&snapshot)
		if err != nil {
			var closeErr *websocket.CloseError
			require.True(t, errors.As(err, &closeErr), "unexpected error: %v", err)
			require.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
			break
		}
		last = snapshot
	}

	require.Equal(t, dto.JobStatusCompleted, last.Status)
	require.Contains(t, last.HTML, `id="answer-1"`)
}

func TestJobStreamHandler_UnknownJob(t *testing.T) {
	stack := newTestStack(t, &stubSubmitter{}, 1024)
	base := startStreamServer(t, stack)

	conn, _, err := websocket.DefaultDialer.Dial(base+"missing", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, handler.CloseJobNotFound, closeErr.Code)
}
