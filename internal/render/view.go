package render

import (
	"fmt"
	"strconv"

	"github.com/noah-isme/evalmate-go/internal/models"
)

// Dash marks a null cell in the inventory table.
const Dash = "-"

// View is the layout of an evaluation result, independent of output format.
// When Pending is set only Placeholder is meaningful.
type View struct {
	Pending     bool
	Placeholder Placeholder
	Header      Header
	Metadata    *MetadataView
	Table       *TableView
	Answers     []AnswerView
}

// Placeholder is the static "processing" state shown before a result exists.
type Placeholder struct {
	Title        string
	Message      string
	FormatNote   string
	ShapeExample string
	Features     []string
	Footer       string
}

// Header carries the quiz labels.
type Header struct {
	QuizLabel string
	Term      string
	Title     string
	Course    string
}

// Line is a label/value pair.
type Line struct {
	Label string
	Value string
}

// MetadataView is the context block. Context is the free-text note shown apart.
type MetadataView struct {
	Lines   []Line
	Context string
}

// TableView is the inventory table.
type TableView struct {
	Columns []string
	Rows    []TableRow
}

// TableRow is one rendered inventory row.
type TableRow struct {
	Item     string
	Units    string
	UnitCost string
}

// AnswerView is one graded answer. Key is the stable identity derived from the answer id.
type AnswerView struct {
	ID       int
	Key      string
	Question string
	Solution *SolutionView
}

// SolutionView holds the rendered solution of an answer.
type SolutionView struct {
	Method      string
	HasWorkings bool
	Workings    []WorkingView
	FinalAnswer FinalAnswerView
}

// WorkingView is one rendered workings entry: either a single value or a list.
type WorkingView struct {
	Key    string
	Label  string
	Value  string
	IsList bool
	Items  []ListItem
}

// ListItem is one element of a list-valued working. Record elements expand into Fields.
type ListItem struct {
	Text   string
	Fields []Line
}

// IsRecord reports whether the element expanded into key/value lines.
func (i ListItem) IsRecord() bool {
	return i.Fields != nil
}

// FinalAnswerView is the conclusive value of an answer. Fields is set for
// multi-field answers, Value otherwise.
type FinalAnswerView struct {
	Value  string
	Fields []Line
}

// IsRecord reports whether the final answer lists several fields.
func (f FinalAnswerView) IsRecord() bool {
	return f.Fields != nil
}

var placeholderFeatures = []string{
	"Structured question analysis",
	"Detailed solution workings",
	"Formatted tables and calculations",
	"Final answers with explanations",
}

const shapeExample = `{
  "quiz_number": 3,
  "course": "...",
  "metadata": { ... },
  "inventory_table": { ... },
  "answers": [ ... ]
}`

func newPlaceholder() Placeholder {
	features := make([]string, len(placeholderFeatures))
	copy(features, placeholderFeatures)
	return Placeholder{
		Title:        "AI Agent Processing...",
		Message:      "Analyzing the handwritten answer sheet and generating evaluation results",
		FormatNote:   "Results will be in JSON format",
		ShapeExample: shapeExample,
		Features:     features,
		Footer:       "Processing your answer sheet...",
	}
}

// View builds the layout of result. A nil result yields the processing placeholder.
func (r *Renderer) View(result *models.EvaluationResult) View {
	if result == nil {
		return View{Pending: true, Placeholder: newPlaceholder()}
	}

	view := View{
		Header: r.header(result),
	}
	if result.Metadata != nil {
		view.Metadata = r.metadata(result.Metadata)
	}
	if result.InventoryTable != nil {
		view.Table = r.table(result.InventoryTable)
	}
	if len(result.Answers) > 0 {
		view.Answers = make([]AnswerView, 0, len(result.Answers))
		for _, answer := range result.Answers {
			view.Answers = append(view.Answers, r.answer(answer))
		}
	}
	return view
}

func (r *Renderer) header(result *models.EvaluationResult) Header {
	label := "Quiz #"
	if result.QuizNumber != nil {
		label += strconv.Itoa(*result.QuizNumber)
	}
	return Header{
		QuizLabel: label,
		Term:      result.Term,
		Title:     result.Title,
		Course:    result.Course,
	}
}

func (r *Renderer) metadata(meta *models.Metadata) *MetadataView {
	view := &MetadataView{}
	if meta.Company != "" {
		view.Lines = append(view.Lines, Line{Label: "Company", Value: meta.Company})
	}
	if meta.InventorySystem != "" {
		view.Lines = append(view.Lines, Line{Label: "System", Value: meta.InventorySystem})
	}
	if meta.AccountingPeriodEnd != "" {
		view.Lines = append(view.Lines, Line{Label: "Period End", Value: meta.AccountingPeriodEnd})
	}
	view.Context = meta.Context
	if len(view.Lines) == 0 && view.Context == "" {
		return nil
	}
	return view
}

func (r *Renderer) table(table *models.InventoryTable) *TableView {
	view := &TableView{
		Columns: make([]string, 0, len(table.Columns)),
		Rows:    make([]TableRow, 0, len(table.Rows)),
	}
	for _, column := range table.Columns {
		view.Columns = append(view.Columns, column)
	}
	for _, row := range table.Rows {
		rendered := TableRow{
			Item:     row.Item,
			Units:    Dash,
			UnitCost: Dash,
		}
		if row.Units != nil {
			rendered.Units = models.FormatFloat(*row.Units)
		}
		if row.UnitCost != nil {
			rendered.UnitCost = r.opts.CurrencySymbol + models.FormatFloat(*row.UnitCost)
		}
		view.Rows = append(view.Rows, rendered)
	}
	return view
}

func (r *Renderer) answer(answer models.Answer) AnswerView {
	view := AnswerView{
		ID:       answer.ID,
		Key:      fmt.Sprintf("answer-%d", answer.ID),
		Question: answer.Question,
	}
	if answer.Solution != nil {
		view.Solution = r.solution(answer.Solution)
	}
	return view
}

func (r *Renderer) solution(solution *models.Solution) *SolutionView {
	view := &SolutionView{
		Method:      solution.Method,
		FinalAnswer: r.finalAnswer(solution.FinalAnswer),
	}
	if solution.Workings != nil {
		view.HasWorkings = true
		view.Workings = r.workings(*solution.Workings)
	}
	return view
}

func (r *Renderer) workings(workings models.Record) []WorkingView {
	views := make([]WorkingView, 0, len(workings))
	for _, field := range workings {
		switch value := field.Value.(type) {
		case models.Record:
			// Nested records are not rendered.
			continue
		case models.Array:
			views = append(views, WorkingView{
				Key:    field.Key,
				Label:  models.Label(field.Key),
				IsList: true,
				Items:  r.listItems(value),
			})
		case models.Scalar:
			views = append(views, WorkingView{
				Key:   field.Key,
				Label: models.Label(field.Key),
				Value: r.workingValue(field.Key, value),
			})
		}
	}
	return views
}

func (r *Renderer) workingValue(key string, value models.Scalar) string {
	if value.IsNumeric() && models.IsMonetaryKey(key) {
		return r.opts.CurrencySymbol + value.String()
	}
	return value.String()
}

func (r *Renderer) listItems(items models.Array) []ListItem {
	out := make([]ListItem, 0, len(items))
	for _, item := range items {
		switch value := item.(type) {
		case models.Record:
			fields := make([]Line, 0, len(value))
			for _, field := range value {
				fields = append(fields, Line{Label: field.Key, Value: models.Stringify(field.Value)})
			}
			out = append(out, ListItem{Fields: fields})
		default:
			out = append(out, ListItem{Text: models.Stringify(value)})
		}
	}
	return out
}

func (r *Renderer) finalAnswer(value models.Value) FinalAnswerView {
	switch answer := value.(type) {
	case models.Record:
		fields := make([]Line, 0, len(answer))
		for _, field := range answer {
			fields = append(fields, Line{Label: models.Label(field.Key), Value: models.Stringify(field.Value)})
		}
		return FinalAnswerView{Fields: fields}
	case models.Array:
		fields := make([]Line, 0, len(answer))
		for i, item := range answer {
			fields = append(fields, Line{Label: strconv.Itoa(i), Value: models.Stringify(item)})
		}
		return FinalAnswerView{Fields: fields}
	case models.Scalar:
		switch {
		case answer.IsNumeric():
			return FinalAnswerView{Value: r.opts.CurrencySymbol + answer.String()}
		case answer.IsNull():
			return FinalAnswerView{}
		default:
			return FinalAnswerView{Value: answer.String()}
		}
	default:
		return FinalAnswerView{}
	}
}
