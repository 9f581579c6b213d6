// Package schema is a small structural validator for decoded JSON documents.
//
// A Schema checks a value produced by encoding/json (maps, slices, float64,
// string, bool, nil) and returns a normalized copy together with any issues
// found. Schemas are immutable once built and safe for concurrent use.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schema validates a value at the given path.
type Schema interface {
	Parse(v any, path Path) (any, Issues)
}

// Path locates a value inside a parsed document. Array positions are
// recorded as decimal strings.
type Path []string

// With returns a copy of p extended by key.
func (p Path) With(key string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}

// Index returns a copy of p extended by an array position.
func (p Path) Index(i int) Path {
	return p.With(strconv.Itoa(i))
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Code classifies an Issue.
type Code string

const (
	CodeRequired         Code = "required"
	CodeInvalidType      Code = "invalid_type"
	CodeInvalidEnumValue Code = "invalid_enum_value"
	CodeInvalidLiteral   Code = "invalid_literal"
	CodeInvalidUnion     Code = "invalid_union"
	CodeUnrecognizedKeys Code = "unrecognized_keys"
	CodeCustom           Code = "custom"
)

// Issue is a single validation failure.
type Issue struct {
	Code     Code   `json:"code"`
	Path     Path   `json:"path"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
	Received string `json:"received,omitempty"`
	// Options lists the accepted tokens of an enum.
	Options []string `json:"options,omitempty"`
	// Keys lists unknown object keys.
	Keys []string `json:"keys,omitempty"`
	// Alternatives lists the key combinations a unique lookup accepts.
	Alternatives [][]string `json:"alternatives,omitempty"`
	// UnionErrors holds the failures of each union branch that got past
	// the outer type check.
	UnionErrors []Issues `json:"unionErrors,omitempty"`
}

func (i Issue) String() string {
	if len(i.Path) == 0 {
		return i.Message
	}
	return i.Path.String() + ": " + i.Message
}

// Issues is an ordered list of validation failures.
type Issues []Issue

// Codes returns the distinct codes in order of first appearance.
func (is Issues) Codes() []Code {
	seen := make(map[Code]struct{}, len(is))
	out := make([]Code, 0, len(is))
	for _, issue := range is {
		if _, ok := seen[issue.Code]; ok {
			continue
		}
		seen[issue.Code] = struct{}{}
		out = append(out, issue.Code)
	}
	return out
}

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports the issues raised while validating against a
// named schema.
type ValidationError struct {
	Schema string
	Issues Issues
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return fmt.Sprintf("%s: validation failed", e.Schema)
	}
	msg := fmt.Sprintf("%s: %s", e.Schema, e.Issues[0].String())
	if len(e.Issues) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Issues)-1)
	}
	return msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validate parses v against s and wraps any issues in a *ValidationError.
func Validate(name string, s Schema, v any) (any, error) {
	out, issues := s.Parse(v, nil)
	if len(issues) > 0 {
		return nil, &ValidationError{Schema: name, Issues: issues}
	}
	return out, nil
}

func invalidType(path Path, expected string, v any) Issues {
	received := TypeOf(v)
	return Issues{{
		Code:     CodeInvalidType,
		Path:     path,
		Message:  fmt.Sprintf("Expected %s, received %s", expected, received),
		Expected: expected,
		Received: received,
	}}
}

// Custom builds a single custom issue.
func Custom(path Path, format string, args ...any) Issues {
	return Issues{{Code: CodeCustom, Path: path, Message: fmt.Sprintf(format, args...)}}
}

// TypeOf names the JSON type of v the way issues report it.
func TypeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return "number"
	case time.Time:
		return "date"
	case map[string]any:
		return "object"
	}
	if isSlice(v) {
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
