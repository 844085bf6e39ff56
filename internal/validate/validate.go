package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/outstaffer/content-finder/internal/models"
)

// Error names the offending field of an invalid payload
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Result is either a decoded value or the reason it could not be decoded
type Result[T any] struct {
	Value T
	Err   *Error
}

// Ok wraps a valid value
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Invalid wraps a validation failure
func Invalid[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}

// IsOk reports whether the payload passed validation
func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

// Unwrap returns the value or the validation error as an error
func (r Result[T]) Unwrap() (T, error) {
	if r.Err != nil {
		return r.Value, r.Err
	}
	return r.Value, nil
}

type kind int

const (
	kindString kind = iota
	kindStringArray
	kindNumber
	kindBool
)

type field struct {
	name     string
	kind     kind
	optional bool
	enum     []string
	min, max *float64
}

func bounded(lo, hi float64) (*float64, *float64) {
	return &lo, &hi
}

// checkShape decodes data as an object whose keys must be exactly the given fields.
// Missing keys are reported before unexpected ones, then types are checked in field order.
func checkShape(data []byte, fields []field) *Error {
	var obj map[string]json.RawMessage
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &Error{Field: "response", Reason: "expected JSON object"}
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return &Error{Field: "response", Reason: "expected JSON object"}
	}

	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.name] = true
		if _, ok := obj[f.name]; !ok && !f.optional {
			return &Error{Field: f.name, Reason: "missing"}
		}
	}

	var extra []string
	for key := range obj {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return &Error{Field: extra[0], Reason: "unexpected field"}
	}

	for _, f := range fields {
		raw, ok := obj[f.name]
		if !ok {
			continue
		}
		if err := checkKind(f, raw); err != nil {
			return err
		}
	}
	return nil
}

func checkKind(f field, raw json.RawMessage) *Error {
	raw = bytes.TrimSpace(raw)
	switch f.kind {
	case kindString:
		var s string
		if len(raw) == 0 || raw[0] != '"' || json.Unmarshal(raw, &s) != nil {
			return &Error{Field: f.name, Reason: "expected string"}
		}
		if len(f.enum) > 0 && !contains(f.enum, s) {
			return &Error{Field: f.name, Reason: fmt.Sprintf("expected one of %v", f.enum)}
		}
	case kindStringArray:
		var items []json.RawMessage
		if len(raw) == 0 || raw[0] != '[' || json.Unmarshal(raw, &items) != nil {
			return &Error{Field: f.name, Reason: "expected array of strings"}
		}
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '"' {
				return &Error{Field: f.name, Reason: "expected array of strings"}
			}
		}
	case kindNumber:
		var n float64
		if len(raw) == 0 || raw[0] == '"' || raw[0] == 'n' || json.Unmarshal(raw, &n) != nil {
			return &Error{Field: f.name, Reason: "expected number"}
		}
		if f.min != nil && f.max != nil && (n < *f.min || n > *f.max) {
			return &Error{Field: f.name, Reason: fmt.Sprintf("expected number between %g and %g", *f.min, *f.max)}
		}
	case kindBool:
		var b bool
		if json.Unmarshal(raw, &b) != nil || (string(raw) != "true" && string(raw) != "false") {
			return &Error{Field: f.name, Reason: "expected boolean"}
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func decode[T any](data []byte, fields []field) Result[T] {
	if err := checkShape(data, fields); err != nil {
		return Invalid[T](err)
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return Invalid[T](&Error{Field: "response", Reason: err.Error()})
	}
	return Ok(v)
}

var articleFields = []field{
	{name: "overview", kind: kindString},
	{name: "key_insights", kind: kindStringArray},
	{name: "outstaffer_opportunity", kind: kindString},
}

// ArticleAnalysis validates a single-article analysis payload
func ArticleAnalysis(data []byte) Result[models.ArticleAnalysis] {
	return decode[models.ArticleAnalysis](data, articleFields)
}

// MultiArticleAnalysis validates a synthesis payload. cross_article_themes may be omitted.
func MultiArticleAnalysis(data []byte) Result[models.MultiArticleAnalysis] {
	fields := append(append([]field{}, articleFields...), field{name: "cross_article_themes", kind: kindStringArray, optional: true})
	r := decode[models.MultiArticleAnalysis](data, fields)
	if r.IsOk() && r.Value.CrossArticleThemes == nil {
		r.Value.CrossArticleThemes = []string{}
	}
	return r
}

// Prescore validates a title and snippet pre-score payload
func Prescore(data []byte) Result[models.Prescore] {
	lo, hi := bounded(0, 10)
	return decode[models.Prescore](data, []field{
		{name: "relevance_score", kind: kindNumber, min: lo, max: hi},
		{name: "priority", kind: kindBool},
		{name: "quick_reason", kind: kindString},
	})
}

// RedditAnalysis validates a comment-aware post analysis payload
func RedditAnalysis(data []byte) Result[models.RedditAnalysis] {
	angles := make([]string, 0, len(models.SolutionAngles))
	for _, a := range models.SolutionAngles {
		angles = append(angles, string(a))
	}
	lo, hi := bounded(0, 10)
	return decode[models.RedditAnalysis](data, []field{
		{name: "relevance_score", kind: kindNumber, min: lo, max: hi},
		{name: "reasoning", kind: kindString},
		{name: "identified_pain_point", kind: kindString},
		{name: "outstaffer_solution_angle", kind: kindString, enum: angles},
	})
}
