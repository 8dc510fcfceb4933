package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/noah-isme/evalmate-go/internal/models"
)

const indent = "  "

var (
	accentColor  = lipgloss.Color("141")
	mutedColor   = lipgloss.Color("244")
	successColor = lipgloss.Color("42")
)

// RenderText writes result as terminal text. A nil result writes the
// processing placeholder.
func (r *Renderer) RenderText(w io.Writer, result *models.EvaluationResult) error {
	view := r.View(result)
	var out string
	if view.Pending {
		out = r.placeholderText(view.Placeholder)
	} else {
		out = r.resultText(view)
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	return nil
}

func (r *Renderer) style(text string, style lipgloss.Style) string {
	if r.opts.NoColor {
		return text
	}
	return style.Render(text)
}

func (r *Renderer) heading(text string) string {
	return r.style(text, lipgloss.NewStyle().Bold(true).Foreground(accentColor))
}

func (r *Renderer) muted(text string) string {
	return r.style(text, lipgloss.NewStyle().Foreground(mutedColor))
}

func (r *Renderer) placeholderText(p Placeholder) string {
	var b strings.Builder
	b.WriteString(r.heading(p.Title))
	b.WriteString("\n")
	b.WriteString(p.Message)
	b.WriteString("\n\n")
	b.WriteString(p.FormatNote)
	b.WriteString("\n")
	b.WriteString(r.muted(p.ShapeExample))
	b.WriteString("\n\n")
	for _, feature := range p.Features {
		b.WriteString(r.style("✓", lipgloss.NewStyle().Foreground(successColor)))
		b.WriteString(" ")
		b.WriteString(feature)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(r.muted(p.Footer))
	b.WriteString("\n")
	return b.String()
}

func (r *Renderer) resultText(view View) string {
	sections := []string{r.headerText(view.Header)}
	if view.Metadata != nil {
		sections = append(sections, r.metadataText(view.Metadata))
	}
	if view.Table != nil {
		sections = append(sections, r.tableText(view.Table))
	}
	if len(view.Answers) > 0 {
		sections = append(sections, r.answersText(view.Answers))
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func (r *Renderer) headerText(h Header) string {
	lines := []string{r.style(h.QuizLabel, lipgloss.NewStyle().Bold(true).Foreground(accentColor))}
	if h.Term != "" {
		lines[0] += "  " + r.muted(h.Term)
	}
	if h.Title != "" {
		lines = append(lines, r.style(h.Title, lipgloss.NewStyle().Bold(true)))
	}
	if h.Course != "" {
		lines = append(lines, h.Course)
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) metadataText(meta *MetadataView) string {
	lines := []string{r.heading("Context Information")}
	for _, line := range meta.Lines {
		lines = append(lines, indent+line.Label+": "+line.Value)
	}
	if meta.Context != "" {
		lines = append(lines, indent+r.style(meta.Context, lipgloss.NewStyle().Italic(true)))
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) tableText(view *TableView) string {
	width := max(len(view.Columns), 3)
	headers := make([]string, width)
	copy(headers, view.Columns)

	rows := make([][]string, 0, len(view.Rows))
	for _, row := range view.Rows {
		cells := make([]string, width)
		cells[0], cells[1], cells[2] = row.Item, row.Units, row.UnitCost
		rows = append(rows, cells)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				if r.opts.NoColor {
					return style
				}
				return style.Bold(true).Foreground(accentColor)
			}
			switch col {
			case 1:
				return style.Align(lipgloss.Center)
			case 2:
				return style.Align(lipgloss.Right)
			}
			return style
		})

	return r.heading("Inventory Data") + "\n" + t.Render()
}

func (r *Renderer) answersText(answers []AnswerView) string {
	blocks := []string{r.heading("Model Answers")}
	for _, answer := range answers {
		blocks = append(blocks, r.answerText(answer))
	}
	return strings.Join(blocks, "\n\n")
}

func (r *Renderer) answerText(answer AnswerView) string {
	lines := []string{r.style(fmt.Sprintf("%d. %s", answer.ID, answer.Question), lipgloss.NewStyle().Bold(true))}
	solution := answer.Solution
	if solution == nil {
		return lines[0]
	}

	if solution.Method != "" {
		lines = append(lines, indent+r.style("["+solution.Method+"]", lipgloss.NewStyle().Foreground(accentColor)))
	}
	if solution.HasWorkings {
		lines = append(lines, indent+r.muted("Workings"))
		for _, working := range solution.Workings {
			lines = append(lines, r.workingLines(working)...)
		}
	}

	lines = append(lines, indent+r.style("Final Answer", lipgloss.NewStyle().Bold(true).Foreground(successColor)))
	if solution.FinalAnswer.IsRecord() {
		for _, field := range solution.FinalAnswer.Fields {
			lines = append(lines, indent+indent+field.Label+": "+field.Value)
		}
	} else {
		lines = append(lines, indent+indent+solution.FinalAnswer.Value)
	}
	return strings.Join(lines, "\n")
}

func (r *Renderer) workingLines(working WorkingView) []string {
	prefix := indent + indent
	if !working.IsList {
		return []string{prefix + working.Label + ": " + working.Value}
	}

	lines := []string{prefix + working.Label + ":"}
	for _, item := range working.Items {
		if !item.IsRecord() {
			lines = append(lines, prefix+indent+"- "+item.Text)
			continue
		}
		for i, field := range item.Fields {
			bullet := "  "
			if i == 0 {
				bullet = "- "
			}
			lines = append(lines, prefix+indent+bullet+field.Label+": "+field.Value)
		}
	}
	return lines
}
