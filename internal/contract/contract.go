// Package contract checks evaluation results against the published JSON schema.
package contract

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/evalmate-go/internal/models"
)

const evaluationResultSchemaURL = "https://evalmate.local/schemas/evaluation_result.schema.json"

//go:embed evaluation_result.schema.json
var evaluationResultSchema []byte

// ErrMalformedResult indicates an evaluation result that does not match the expected shape.
var ErrMalformedResult = errors.New("malformed evaluation result")

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(evaluationResultSchemaURL, bytes.NewReader(evaluationResultSchema)); err != nil {
			compileErr = fmt.Errorf("add evaluation schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(evaluationResultSchemaURL)
	})
	return compiledSchema, compileErr
}

// unmarshalJSON decodes a single JSON document the way jsonschema/v5 expects
// (numbers as json.Number), rejecting trailing data.
func unmarshalJSON(r io.Reader) (any, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); err == nil || err != io.EOF {
		return nil, fmt.Errorf("invalid character after top-level value")
	}
	return doc, nil
}

// Validate checks a raw modelAnswerPreview document. A JSON null is valid and
// means the evaluation is still pending.
func Validate(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	compiled, err := schema()
	if err != nil {
		return err
	}

	doc, err := unmarshalJSON(bytes.NewReader(trimmed))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	return nil
}

// Parse validates raw and decodes it into a result. Duplicate answer ids are
// reported as malformed too.
func Parse(raw []byte) (*models.EvaluationResult, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	result, err := models.ParseEvaluationResult(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	return result, nil
}
