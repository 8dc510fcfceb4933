package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDuplicateAnswerID indicates two answers share the same display key.
var ErrDuplicateAnswerID = errors.New("duplicate answer id")

// EvaluationResult is the structured grading output for one quiz.
type EvaluationResult struct {
	QuizNumber     *int            `json:"quiz_number,omitempty"`
	Course         string          `json:"course"`
	Term           string          `json:"term"`
	Title          string          `json:"title"`
	Metadata       *Metadata       `json:"metadata,omitempty"`
	InventoryTable *InventoryTable `json:"inventory_table,omitempty"`
	Answers        []Answer        `json:"answers"`
}

// Metadata carries the optional context block of a quiz. Empty fields are
// treated as absent.
type Metadata struct {
	Company             string `json:"company,omitempty"`
	InventorySystem     string `json:"inventory_system,omitempty"`
	AccountingPeriodEnd string `json:"accounting_period_end,omitempty"`
	Context             string `json:"context,omitempty"`
}

// InventoryTable is the tabular data shown above the answers.
type InventoryTable struct {
	Columns []string       `json:"columns"`
	Rows    []InventoryRow `json:"rows"`
}

// InventoryRow is one line of the inventory table. Nil numbers are nulls,
// which are distinct from zero.
type InventoryRow struct {
	Item     string   `json:"item"`
	Units    *float64 `json:"units"`
	UnitCost *float64 `json:"unit_cost"`
}

// Answer is one graded question.
type Answer struct {
	ID       int       `json:"id"`
	Question string    `json:"question"`
	Solution *Solution `json:"solution,omitempty"`
}

// Solution holds the workings and final answer of a graded question.
type Solution struct {
	Method      string  `json:"method,omitempty"`
	Workings    *Record `json:"workings,omitempty"`
	FinalAnswer Value   `json:"final_answer,omitempty"`
}

// UnmarshalJSON decodes a solution, keeping the order of workings entries
// and the shape of the final answer.
func (s *Solution) UnmarshalJSON(data []byte) error {
	var raw struct {
		Method      *string         `json:"method"`
		Workings    json.RawMessage `json:"workings"`
		FinalAnswer json.RawMessage `json:"final_answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Solution
	if raw.Method != nil {
		out.Method = *raw.Method
	}
	if !isNullOrEmpty(raw.Workings) {
		var workings Record
		if err := workings.UnmarshalJSON(raw.Workings); err != nil {
			return fmt.Errorf("workings: %w", err)
		}
		out.Workings = &workings
	}
	if !isNullOrEmpty(raw.FinalAnswer) {
		value, err := ParseValue(raw.FinalAnswer)
		if err != nil {
			return fmt.Errorf("final_answer: %w", err)
		}
		out.FinalAnswer = value
	}

	*s = out
	return nil
}

func isNullOrEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ParseEvaluationResult decodes a result document. A JSON null yields a nil
// result, meaning the evaluation has not been computed yet.
func ParseEvaluationResult(data []byte) (*EvaluationResult, error) {
	if isNullOrEmpty(data) {
		return nil, nil
	}
	var result EvaluationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Validate checks constraints the renderer relies on but does not enforce.
func (r *EvaluationResult) Validate() error {
	if r == nil {
		return nil
	}
	seen := make(map[int]struct{}, len(r.Answers))
	for _, answer := range r.Answers {
		if _, exists := seen[answer.ID]; exists {
			return fmt.Errorf("%w: %d", ErrDuplicateAnswerID, answer.ID)
		}
		seen[answer.ID] = struct{}{}
	}
	return nil
}
