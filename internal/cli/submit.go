package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/noah-isme/evalmate-go/internal/config"
	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/internal/service"
	"github.com/noah-isme/evalmate-go/pkg/evalclient"
)

const formatJSON = "json"

func runSubmit(cmd *Command) func(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return func(args []string, _ io.Reader, stdout, stderr io.Writer) int {
		cfg, err := config.Read()
		if err != nil {
			fmt.Fprintf(stderr, "configuration error: %v\n", err)
			return ExitError
		}

		var (
			out                     outputOptions
			answer, model, question string
			endpoint                string
			mock, validate          bool
			timeout, mockDelay      time.Duration
		)
		flags := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
		out.bind(flags, string(render.FormatText))
		flags.StringVar(&answer, "answer", "", "student answer paper (PDF)")
		flags.StringVar(&model, "model", "", "model answer paper (PDF)")
		flags.StringVar(&question, "question", "", "question paper (PDF)")
		flags.StringVar(&endpoint, "endpoint", cfg.EvaluationEndpoint, "grading backend URL")
		flags.BoolVar(&mock, "mock", cfg.EvaluationMock, "use the built-in mock backend")
		flags.DurationVar(&mockDelay, "mock-delay", cfg.EvaluationMockDelay, "latency of the mock backend")
		flags.DurationVar(&timeout, "timeout", cfg.EvaluationTimeout, "overall request timeout")
		flags.BoolVar(&validate, "validate", cfg.EvaluationValidate, "check the result against the schema")
		if code, stop := parseFlags(cmd, flags, args, stdout, stderr); stop {
			return code
		}
		if flags.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
			printCommandUsage(cmd, flags, stderr)
			return ExitUsage
		}

		format := strings.ToLower(strings.TrimSpace(out.format))
		if format == "" {
			format = string(render.FormatText)
		}
		if format != formatJSON {
			if _, err := render.ParseFormat(format); err != nil {
				fmt.Fprintln(stderr, "format must be text, html or json")
				return ExitUsage
			}
		}

		cfg.EvaluationEndpoint = strings.TrimSpace(endpoint)
		cfg.EvaluationMock = mock
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return ExitUsage
		}

		logger := out.logger(stderr)
		renderer := out.renderer(cfg.RenderCurrency)
		renders := service.NewRenderService(renderer, validate, logger)

		var submitter evalclient.Submitter
		if mock {
			submitter = evalclient.NewMockSubmitter(mockDelay, logger)
		} else {
			submitter = evalclient.NewClient(evalclient.Config{Timeout: timeout, Logger: logger})
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		papers, err := service.NewPaperService(cfg.UploadMaxBytes, logger).Prepare(ctx, service.PaperSet{
			Answer:      service.FileSource(evalclient.FieldAnswerPaper, answer),
			ModelAnswer: service.FileSource(evalclient.FieldModelAnswerPaper, model),
			Question:    service.FileSource(evalclient.FieldQuestionPaper, question),
		})
		if err != nil {
			fmt.Fprintf(stderr, "cannot read papers: %v\n", err)
			return ExitUsage
		}

		response, err := service.NewEvaluationService(submitter, renders, cfg.EvaluationEndpoint, logger).Evaluate(ctx, papers)
		if err != nil {
			fmt.Fprintf(stderr, "evaluation failed: %v\n", err)
			return ExitError
		}

		switch format {
		case formatJSON:
			_, err = fmt.Fprintf(stdout, "%s\n", response.Payload)
		case string(render.FormatHTML):
			_, err = io.WriteString(stdout, response.HTML)
		default:
			var output string
			output, err = renders.Render(ctx, response.ModelAnswerPreview, render.FormatText)
			if err == nil {
				_, err = io.WriteString(stdout, output)
			}
		}
		if err != nil {
			fmt.Fprintf(stderr, "write output: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}
