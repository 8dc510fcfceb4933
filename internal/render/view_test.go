package render_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/evalmate-go/internal/models"
	"github.com/noah-isme/evalmate-go/internal/render"
)

func loadResult(t *testing.T, name string) *models.EvaluationResult {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	result, err := models.ParseEvaluationResult(raw)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func parseResult(t *testing.T, raw string) *models.EvaluationResult {
	t.Helper()
	result, err := models.ParseEvaluationResult([]byte(raw))
	require.NoError(t, err)
	return result
}

func TestViewNilResultIsPlaceholder(t *testing.T) {
	view := render.New(render.Options{}).View(nil)

	require.True(t, view.Pending)
	require.Equal(t, "AI Agent Processing...", view.Placeholder.Title)
	require.Contains(t, view.Placeholder.ShapeExample, "quiz_number")
	require.Contains(t, view.Placeholder.ShapeExample, "inventory_table")
	require.Len(t, view.Placeholder.Features, 4)
	require.Nil(t, view.Answers)
}

func TestViewHeaderAndMetadata(t *testing.T) {
	view := render.New(render.Options{}).View(loadResult(t, "quiz3.json"))

	require.False(t, view.Pending)
	require.Equal(t, render.Header{
		QuizLabel: "Quiz #3",
		Term:      "Fall 2024",
		Title:     "Inventory Costing Methods",
		Course:    "ACCT 2101 Financial Accounting",
	}, view.Header)
	require.NotNil(t, view.Metadata)
	require.Equal(t, []render.Line{
		{Label: "Company", Value: "Harbor Outfitters"},
		{Label: "System", Value: "Periodic"},
		{Label: "Period End", Value: "December 31"},
	}, view.Metadata.Lines)
	require.Equal(t, "All purchases were made on account.", view.Metadata.Context)
}

func TestViewOmitsAbsentSections(t *testing.T) {
	result := parseResult(t, `{"quiz_number": 1, "course": "ACCT", "answers": []}`)

	view := render.New(render.Options{}).View(result)

	require.Nil(t, view.Metadata)
	require.Nil(t, view.Table)
	require.Empty(t, view.Answers)
}

func TestViewMetadataSubFieldsAreOptional(t *testing.T) {
	result := parseResult(t, `{"metadata": {"company": "Harbor Outfitters"}}`)

	view := render.New(render.Options{}).View(result)

	require.NotNil(t, view.Metadata)
	require.Equal(t, []render.Line{{Label: "Company", Value: "Harbor Outfitters"}}, view.Metadata.Lines)
	require.Empty(t, view.Metadata.Context)
}

func TestViewOmitsEmptyMetadata(t *testing.T) {
	view := render.New(render.Options{}).View(parseResult(t, `{"metadata": {"company": "", "context": ""}, "answers": []}`))
	require.Nil(t, view.Metadata)

	view = render.New(render.Options{}).View(parseResult(t, `{"metadata": {"context": "Periodic count only."}}`))
	require.NotNil(t, view.Metadata)
	require.Empty(t, view.Metadata.Lines)
	require.Equal(t, "Periodic count only.", view.Metadata.Context)
}

func TestViewTableRendersNullsAsDash(t *testing.T) {
	view := render.New(render.Options{}).View(loadResult(t, "quiz3.json"))

	require.NotNil(t, view.Table)
	require.Equal(t, []string{"Item", "Units", "Unit Cost"}, view.Table.Columns)
	require.Equal(t, []render.TableRow{
		{Item: "Beginning inventory", Units: "100", UnitCost: "$10"},
		{Item: "Purchase, March 4", Units: "150", UnitCost: "$12.5"},
		{Item: "Returned goods", Units: render.Dash, UnitCost: render.Dash},
	}, view.Table.Rows)
}

func TestViewTableKeepsZeroDistinctFromNull(t *testing.T) {
	result := parseResult(t, `{"inventory_table": {"columns": ["Item", "Units", "Unit Cost"], "rows": [{"item": "Samples", "units": 0, "unit_cost": 0}]}}`)

	view := render.New(render.Options{}).View(result)

	require.Equal(t, render.TableRow{Item: "Samples", Units: "0", UnitCost: "$0"}, view.Table.Rows[0])
}

func TestViewWorkingsSkipNestedRecords(t *testing.T) {
	view := render.New(render.Options{}).View(loadResult(t, "quiz3.json"))

	solution := view.Answers[0].Solution
	require.NotNil(t, solution)
	require.True(t, solution.HasWorkings)

	keys := make([]string, 0, len(solution.Workings))
	for _, working := range solution.Workings {
		keys = append(keys, working.Key)
	}
	require.Equal(t, []string{"units_available", "ending_inventory_cost", "layers", "notes", "market_value"}, keys)
}

func TestViewWorkingsFormatting(t *testing.T) {
	view := render.New(render.Options{}).View(loadResult(t, "quiz3.json"))
	workings := view.Answers[0].Solution.Workings

	require.Equal(t, render.WorkingView{Key: "units_available", Label: "Units Available", Value: "250"}, workings[0])
	require.Equal(t, render.WorkingView{Key: "ending_inventory_cost", Label: "Ending Inventory Cost", Value: "$1250"}, workings[1])

	layers := workings[2]
	require.True(t, layers.IsList)
	require.Equal(t, "Layers", layers.Label)
	require.Len(t, layers.Items, 2)
	require.True(t, layers.Items[0].IsRecord())
	require.Equal(t, []render.Line{{Label: "units", Value: "100"}, {Label: "cost", Value: "10"}}, layers.Items[0].Fields)

	notes := workings[3]
	require.True(t, notes.IsList)
	require.Equal(t, []render.ListItem{{Text: "oldest units sold first"}, {Text: "2"}}, notes.Items)

	require.Equal(t, "$1300", workings[4].Value)
}

func TestViewCurrencyHeuristic(t *testing.T) {
	cases := []struct {
		name     string
		workings string
		want     string
	}{
		{name: "cost keyword", workings: `{"total_cost": 500}`, want: "$500"},
		{name: "upper case key", workings: `{"NET_INCOME": 42.5}`, want: "$42.5"},
		{name: "revenue keyword", workings: `{"revenue": 9000}`, want: "$9000"},
		{name: "profit keyword", workings: `{"grossProfit": -20}`, want: "$-20"},
		{name: "expense keyword", workings: `{"expenses": 3}`, want: "$3"},
		{name: "value keyword", workings: `{"book_value": 7}`, want: "$7"},
		{name: "non monetary key", workings: `{"units_sold": 500}`, want: "500"},
		{name: "monetary key with text", workings: `{"cost_basis": "weighted"}`, want: "weighted"},
		{name: "null value", workings: `{"cost": null}`, want: "null"},
		{name: "boolean value", workings: `{"is_valued": true}`, want: "true"},
	}

	renderer := render.New(render.Options{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := parseResult(t, `{"answers": [{"id": 1, "question": "q", "solution": {"workings": `+tc.workings+`}}]}`)
			view := renderer.View(result)
			workings := view.Answers[0].Solution.Workings
			require.Len(t, workings, 1)
			require.Equal(t, tc.want, workings[0].Value)
		})
	}
}

func TestViewCustomCurrencySymbol(t *testing.T) {
	result := parseResult(t, `{"answers": [{"id": 1, "question": "q", "solution": {"workings": {"cost": 5}, "final_answer": 10}}]}`)

	view := render.New(render.Options{CurrencySymbol: "€"}).View(result)

	require.Equal(t, "€5", view.Answers[0].Solution.Workings[0].Value)
	require.Equal(t, "€10", view.Answers[0].Solution.FinalAnswer.Value)
}

func TestViewFinalAnswerShapes(t *testing.T) {
	view := render.New(render.Options{}).View(loadResult(t, "quiz3.json"))

	require.Equal(t, "$1250", view.Answers[0].Solution.FinalAnswer.Value)
	require.False(t, view.Answers[0].Solution.FinalAnswer.IsRecord())

	negative := view.Answers[1].Solution
	require.Equal(t, "$-150", negative.FinalAnswer.Value)
	require.Empty(t, negative.Method)
	require.False(t, negative.HasWorkings)

	record := view.Answers[2].Solution.FinalAnswer
	require.True(t, record.IsRecord())
	require.Equal(t, []render.Line{
		{Label: "Fifo Cost", Value: "1250"},
		{Label: "Lifo Cost", Value: "1100"},
	}, record.Fields)

	require.Nil(t, view.Answers[3].Solution)
}

func TestViewFinalAnswerText(t *testing.T) {
	result := parseResult(t, `{"answers": [
		{"id": 1, "question": "q", "solution": {"final_answer": "FIFO"}},
		{"id": 2, "question": "q", "solution": {"final_answer": null}},
		{"id": 3, "question": "q", "solution": {"final_answer": ["a", 2]}}
	]}`)

	view := render.New(render.Options{}).View(result)

	require.Equal(t, "FIFO", view.Answers[0].Solution.FinalAnswer.Value)
	require.Equal(t, "", view.Answers[1].Solution.FinalAnswer.Value)
	require.Equal(t, []render.Line{{Label: "0", Value: "a"}, {Label: "1", Value: "2"}}, view.Answers[2].Solution.FinalAnswer.Fields)
}

func TestViewAnswerKeysFollowIDs(t *testing.T) {
	view := render.New(render.Options{}).View(loadResult(t, "quiz3.json"))

	keys := make([]string, 0, len(view.Answers))
	for _, answer := range view.Answers {
		keys = append(keys, answer.Key)
	}
	require.Equal(t, []string{"answer-1", "answer-2", "answer-3", "answer-4"}, keys)
}

func TestViewMissingHeaderFieldsDegrade(t *testing.T) {
	view := render.New(render.Options{}).View(parseResult(t, `{"answers": [{"id": 7}]}`))

	require.Equal(t, "Quiz #", view.Header.QuizLabel)
	require.Empty(t, view.Header.Title)
	require.Equal(t, "", view.Answers[0].Question)
}

func TestViewKeepsTextVerbatim(t *testing.T) {
	result := parseResult(t, `{
		"title": "<b>Inventory</b> & Costing",
		"answers": [{
			"id": 1,
			"question": "If cost<market value, which is used? Compare a<b and b>c.",
			"solution": {
				"workings": {"rule": "use x<y when y>z"},
				"final_answer": "LCM: cost<market"
			}
		}]
	}`)

	view := render.New(render.Options{}).View(result)

	require.Equal(t, "<b>Inventory</b> & Costing", view.Header.Title)
	answer := view.Answers[0]
	require.Equal(t, "If cost<market value, which is used? Compare a<b and b>c.", answer.Question)
	require.Equal(t, "use x<y when y>z", answer.Solution.Workings[0].Value)
	require.Equal(t, "LCM: cost<market", answer.Solution.FinalAnswer.Value)
}
