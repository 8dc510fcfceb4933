// Package cli implements the evalmate command line tool.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/noah-isme/evalmate-go/internal/render"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Command is one evalmate subcommand.
type Command struct {
	Name    string
	Summary string
	Usage   []string
	Run     func(args []string, stdin io.Reader, stdout, stderr io.Writer) int
}

// Run dispatches args to the matching command and returns the exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return ExitUsage
	}
	if isHelpArg(args[0]) {
		printUsage(stdout)
		return ExitOK
	}

	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return ExitUsage
	}

	return cmd.Run(args[1:], stdin, stdout, stderr)
}

func findCommand(name string) *Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  evalmate <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintln(w, "\nUse \"evalmate <command> --help\" for more information.")
}

func printCommandUsage(cmd *Command, flags *pflag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, line := range cmd.Usage {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if cmd.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", cmd.Summary)
	}
	if flags != nil && flags.HasFlags() {
		fmt.Fprintf(w, "\nOptions:\n%s", flags.FlagUsages())
	}
}

func command(name, summary string, usage []string, runner func(cmd *Command) func(args []string, stdin io.Reader, stdout, stderr io.Writer) int) *Command {
	cmd := &Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
	}
	cmd.Run = runner(cmd)
	return cmd
}

var commands = []*Command{
	command("submit", "Upload three papers for evaluation and print the result", []string{
		"evalmate submit --answer <pdf> --model <pdf> --question <pdf> [--endpoint <url>] [--mock] [--format text|html|json]",
	}, runSubmit),
	command("render", "Render a saved evaluation result", []string{
		"evalmate render [--format text|html] [--payload] <file|->",
	}, runRender),
	command("placeholder", "Print the processing placeholder", []string{
		"evalmate placeholder [--format text|html]",
	}, runPlaceholder),
}

// parseFlags parses args and reports whether the command should stop, with the exit code.
func parseFlags(cmd *Command, flags *pflag.FlagSet, args []string, stdout, stderr io.Writer) (int, bool) {
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printCommandUsage(cmd, flags, stdout)
			return ExitOK, true
		}
		fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
		printCommandUsage(cmd, flags, stderr)
		return ExitUsage, true
	}
	return ExitOK, false
}

// outputOptions are the presentation flags shared by every command.
type outputOptions struct {
	format   string
	noColor  bool
	currency string
	verbose  bool
}

func (o *outputOptions) bind(flags *pflag.FlagSet, defaultFormat string) {
	flags.StringVarP(&o.format, "format", "f", defaultFormat, "output format")
	flags.BoolVar(&o.noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable styled terminal output")
	flags.StringVar(&o.currency, "currency", "", "currency symbol for monetary amounts")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "log debug output to stderr")
}

func (o outputOptions) renderer(fallbackCurrency string) *render.Renderer {
	currency := strings.TrimSpace(o.currency)
	if currency == "" {
		currency = fallbackCurrency
	}
	return render.New(render.Options{CurrencySymbol: currency, NoColor: o.noColor})
}

func (o outputOptions) logger(stderr io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: stderr, NoColor: o.noColor, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
