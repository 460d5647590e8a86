package core

import (
	"strings"
)

// Field is a named raw input value subject to presence checks.
type Field struct {
	Name  string
	Value string
}

// FieldError describes a present but unusable input value.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationResult is either valid or carries the missing and invalid fields,
// in the order they were checked.
type ValidationResult struct {
	Missing []string     `json:"missing,omitempty"`
	Invalid []FieldError `json:"invalid,omitempty"`
}

// Require checks every field for a non-blank value.
func Require(fields ...Field) ValidationResult {
	var res ValidationResult
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			res.Missing = append(res.Missing, f.Name)
		}
	}
	return res
}

// AddInvalid records a field whose value could not be used.
func (r *ValidationResult) AddInvalid(field, reason string) {
	r.Invalid = append(r.Invalid, FieldError{Field: field, Reason: reason})
}

func (r ValidationResult) Valid() bool {
	return len(r.Missing) == 0 && len(r.Invalid) == 0
}

// Err returns nil for a valid result and a *ValidationError otherwise.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Result: r}
}

// ValidationError is returned for requests rejected before any side effect.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Result.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Result.Missing, ", "))
	}
	for _, fe := range e.Result.Invalid {
		parts = append(parts, "invalid "+fe.Field+": "+fe.Reason)
	}
	return strings.Join(parts, "; ")
}
