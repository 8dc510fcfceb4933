package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/noah-isme/evalmate-go/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Page is the data of the single-page viewer served at the site root.
type Page struct {
	AppName       string
	JobsEndpoint  string
	WebSocketPath string
	Fragment      template.HTML
}

// RenderHTML writes the HTML fragment of result. A nil result writes the
// processing placeholder. Answer blocks carry the id "answer-<id>".
func (r *Renderer) RenderHTML(w io.Writer, result *models.EvaluationResult) error {
	if err := templates.ExecuteTemplate(w, "view", r.View(result)); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// RenderPage writes the full viewer document with the placeholder embedded.
func (r *Renderer) RenderPage(w io.Writer, page Page) error {
	if page.Fragment == "" {
		var b strings.Builder
		if err := r.RenderHTML(&b, nil); err != nil {
			return err
		}
		// Output of the escaped "view" template.
		page.Fragment = template.HTML(b.String())
	}
	if err := templates.ExecuteTemplate(w, "page", page); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
