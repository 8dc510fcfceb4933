// Package render lays out evaluation results for the browser and the terminal.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/noah-isme/evalmate-go/internal/models"
)

// DefaultCurrencySymbol prefixes monetary amounts unless configured otherwise.
const DefaultCurrencySymbol = "$"

// Format names an output of the renderer.
type Format string

const (
	FormatHTML Format = "html"
	FormatText Format = "text"
)

// ErrUnknownFormat is returned for formats other than html and text.
var ErrUnknownFormat = errors.New("unknown render format")

// ParseFormat maps a user supplied name to a Format. Empty means html.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Options tune the renderer.
type Options struct {
	CurrencySymbol string
	// NoColor disables styling of text output.
	NoColor bool
}

// Renderer turns evaluation results into views and documents. It is safe for
// concurrent use.
type Renderer struct {
	opts Options
}

// New builds a renderer.
func New(opts Options) *Renderer {
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = DefaultCurrencySymbol
	}
	return &Renderer{opts: opts}
}

// Render writes result to w in the given format.
func (r *Renderer) Render(w io.Writer, format Format, result *models.EvaluationResult) error {
	switch format {
	case FormatHTML, "":
		return r.RenderHTML(w, result)
	case FormatText:
		return r.RenderText(w, result)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// HTML renders result as an HTML fragment.
func (r *Renderer) HTML(result *models.EvaluationResult) (string, error) {
	var b strings.Builder
	if err := r.RenderHTML(&b, result); err != nil {
		return "", err
	}
	return b.String(), nil
}
