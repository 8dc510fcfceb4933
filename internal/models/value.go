package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a JSON value found in solution workings and final answers.
// It is always one of Scalar, Array or Record.
type Value interface {
	isValue()
}

// ScalarKind identifies the JSON type held by a Scalar.
type ScalarKind int

const (
	// ScalarNull is the JSON null literal.
	ScalarNull ScalarKind = iota
	// ScalarBool is a JSON boolean.
	ScalarBool
	// ScalarNumber is a JSON number.
	ScalarNumber
	// ScalarString is a JSON string.
	ScalarString
)

// Scalar is a leaf JSON value. Numbers keep their JSON literal.
type Scalar struct {
	Kind   ScalarKind
	Number json.Number
	Text   string
	Bool   bool
}

// Array is an ordered JSON array.
type Array []Value

// Field is a single key/value pair of a Record.
type Field struct {
	Key   string
	Value Value
}

// Record is a JSON object whose fields keep their document order.
type Record []Field

func (Scalar) isValue() {}
func (Array) isValue()  {}
func (Record) isValue() {}

// ErrInvalidValue indicates a JSON document that cannot be decoded as a Value.
var ErrInvalidValue = errors.New("invalid json value")

// NullValue returns the null scalar.
func NullValue() Scalar { return Scalar{Kind: ScalarNull} }

// NumberValue builds a numeric scalar from its JSON literal.
func NumberValue(literal string) Scalar {
	return Scalar{Kind: ScalarNumber, Number: json.Number(literal)}
}

// StringValue builds a string scalar.
func StringValue(text string) Scalar { return Scalar{Kind: ScalarString, Text: text} }

// BoolValue builds a boolean scalar.
func BoolValue(b bool) Scalar { return Scalar{Kind: ScalarBool, Bool: b} }

// IsNumeric reports whether the scalar holds a number.
func (s Scalar) IsNumeric() bool {
	return s.Kind == ScalarNumber
}

// IsNull reports whether the scalar is the null literal.
func (s Scalar) IsNull() bool {
	return s.Kind == ScalarNull
}

// String converts the scalar to display text.
func (s Scalar) String() string {
	switch s.Kind {
	case ScalarNumber:
		return FormatNumber(s.Number)
	case ScalarString:
		return s.Text
	case ScalarBool:
		return strconv.FormatBool(s.Bool)
	default:
		return "null"
	}
}

// MarshalJSON encodes the scalar back to its JSON form.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case ScalarNumber:
		if s.Number == "" {
			return []byte("0"), nil
		}
		return []byte(s.Number), nil
	case ScalarString:
		return json.Marshal(s.Text)
	case ScalarBool:
		return json.Marshal(s.Bool)
	default:
		return []byte("null"), nil
	}
}

// Get returns the value stored under key.
func (r Record) Get(key string) (Value, bool) {
	for _, field := range r {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Keys lists the record keys in document order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for _, field := range r {
		keys = append(keys, field.Key)
	}
	return keys
}

// MarshalJSON encodes the record keeping field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := marshalValue(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	value, err := ParseValue(data)
	if err != nil {
		return err
	}
	record, ok := value.(Record)
	if !ok {
		return fmt.Errorf("%w: expected object", ErrInvalidValue)
	}
	*r = record
	return nil
}

// MarshalJSON encodes the array.
func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		value, err := marshalValue(item)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// ParseValue decodes a single JSON document into a Value.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	value, err := DecodeValue(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidValue)
	}
	return value, nil
}

// DecodeValue reads the next JSON value from dec. The decoder should have
// UseNumber enabled so numeric literals survive untouched.
func DecodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeRecord(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidValue, t)
		}
	case json.Number:
		return Scalar{Kind: ScalarNumber, Number: t}, nil
	case float64:
		return Scalar{Kind: ScalarNumber, Number: json.Number(strconv.FormatFloat(t, 'f', -1, 64))}, nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case nil:
		return NullValue(), nil
	default:
		return nil, fmt.Errorf("%w: unexpected token %v", ErrInvalidValue, tok)
	}
}

func decodeRecord(dec *json.Decoder) (Record, error) {
	record := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key %v", ErrInvalidValue, tok)
		}
		value, err := DecodeValue(dec)
		if err != nil {
			return nil, err
		}
		record = record.set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return record, nil
}

// set keeps the first position of a repeated key and the last value.
func (r Record) set(key string, value Value) Record {
	for i := range r {
		if r[i].Key == key {
			r[i].Value = value
			return r
		}
	}
	return append(r, Field{Key: key, Value: value})
}

func decodeArray(dec *json.Decoder) (Array, error) {
	array := Array{}
	for dec.More() {
		value, err := DecodeValue(dec)
		if err != nil {
			return nil, err
		}
		array = append(array, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return array, nil
}

// Stringify converts any Value to display text. Arrays join their elements
// with commas and records are written as compact JSON.
func Stringify(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case Scalar:
		return val.String()
	case Array:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(Scalar); ok && s.IsNull() {
				parts = append(parts, "")
				continue
			}
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ",")
	case Record:
		encoded, err := val.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(encoded)
	default:
		return ""
	}
}

// FormatNumber renders a JSON number the shortest way that round-trips,
// without exponent notation for ordinary magnitudes.
func FormatNumber(n json.Number) string {
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return n.String()
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatFloat renders a float with the same rules as FormatNumber.
func FormatFloat(f float64) string {
	return FormatNumber(json.Number(strconv.FormatFloat(f, 'g', -1, 64)))
}
