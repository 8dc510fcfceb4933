package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/noah-isme/evalmate-go/internal/render"
	"github.com/noah-isme/evalmate-go/internal/service"
)

func runRender(cmd *Command) func(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return func(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
		var (
			out      outputOptions
			payload  bool
			validate bool
		)
		flags := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
		out.bind(flags, string(render.FormatText))
		flags.BoolVar(&payload, "payload", false, "input is a full backend response, render its modelAnswerPreview")
		flags.BoolVar(&validate, "validate", true, "check the result against the schema")
		if code, stop := parseFlags(cmd, flags, args, stdout, stderr); stop {
			return code
		}
		if flags.NArg() != 1 {
			fmt.Fprintln(stderr, "expected exactly one input file (use - for stdin)")
			printCommandUsage(cmd, flags, stderr)
			return ExitUsage
		}

		format, err := render.ParseFormat(out.format)
		if err != nil {
			fmt.Fprintln(stderr, "format must be text or html")
			return ExitUsage
		}

		raw, err := readInput(flags.Arg(0), stdin)
		if err != nil {
			fmt.Fprintf(stderr, "cannot read input: %v\n", err)
			return ExitError
		}

		logger := out.logger(stderr)
		renders := service.NewRenderService(out.renderer(render.DefaultCurrencySymbol), validate, logger)
		output, err := renders.RenderDocument(context.Background(), raw, payload, format)
		if err != nil {
			fmt.Fprintf(stderr, "render failed: %v\n", err)
			return ExitError
		}

		if _, err := io.WriteString(stdout, output); err != nil {
			fmt.Fprintf(stderr, "write output: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}

func runPlaceholder(cmd *Command) func(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return func(args []string, _ io.Reader, stdout, stderr io.Writer) int {
		var out outputOptions
		flags := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
		out.bind(flags, string(render.FormatText))
		if code, stop := parseFlags(cmd, flags, args, stdout, stderr); stop {
			return code
		}
		if flags.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
			printCommandUsage(cmd, flags, stderr)
			return ExitUsage
		}

		format, err := render.ParseFormat(out.format)
		if err != nil {
			fmt.Fprintln(stderr, "format must be text or html")
			return ExitUsage
		}

		if err := out.renderer(render.DefaultCurrencySymbol).Render(stdout, format, nil); err != nil {
			fmt.Fprintf(stderr, "render failed: %v\n", err)
			return ExitError
		}
		return ExitOK
	}
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		if stdin == nil {
			return nil, errors.New("stdin is not available")
		}
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
