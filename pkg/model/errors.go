package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation ErrorCode = "VALIDATION_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrConflict   ErrorCode = "CONFLICT"
	ErrExpansion  ErrorCode = "EXPANSION_ERROR"
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the goramble API.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a problem at a specific key path of a document.
type FieldError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	if f.Path == "" {
		return f.Message
	}
	return f.Path + ": " + f.Message
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Details: details}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// SchemaConflictError is returned when two schema fragments composed as a
// disjoint union declare the same property.
type SchemaConflictError struct {
	Property string
	First    string
	Second   string
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("schema conflict: property %q declared by both %q and %q", e.Property, e.First, e.Second)
}

// SchemaValidationError carries every violation found in a document.
type SchemaValidationError struct {
	Violations []FieldError
}

func (e *SchemaValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "schema validation failed: " + e.Violations[0].String()
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("schema validation failed with %d violations: %s", len(e.Violations), strings.Join(parts, "; "))
}

// UnresolvedChainReferenceError is returned when a chained experiment names
// an experiment that does not exist.
type UnresolvedChainReferenceError struct {
	Experiment string
	Reference  string
}

func (e *UnresolvedChainReferenceError) Error() string {
	return fmt.Sprintf("experiment %q chains unknown experiment %q", e.Experiment, e.Reference)
}

// ChainCycleError is returned when chained experiments reference each
// other in a loop.
type ChainCycleError struct {
	Chain []string
}

func (e *ChainCycleError) Error() string {
	return "chained experiment cycle: " + strings.Join(e.Chain, " -> ")
}

// UnknownModifierError is returned when a modifier name is not registered.
type UnknownModifierError struct {
	Modifier string
}

func (e *UnknownModifierError) Error() string {
	return fmt.Sprintf("unknown modifier %q", e.Modifier)
}

// UnknownModeError is returned when a modifier has no mode with the requested name.
type UnknownModeError struct {
	Modifier string
	Mode     string
}

func (e *UnknownModeError) Error() string {
	if e.Mode == "" {
		return fmt.Sprintf("modifier %q declares several modes and none was selected", e.Modifier)
	}
	return fmt.Sprintf("modifier %q has no mode %q", e.Modifier, e.Mode)
}

// DuplicateModifierError is returned when a modifier name is registered twice.
type DuplicateModifierError struct {
	Modifier string
}

func (e *DuplicateModifierError) Error() string {
	return fmt.Sprintf("modifier %q is already registered", e.Modifier)
}

// ExpansionError collects the problems found while expanding one experiment.
type ExpansionError struct {
	Experiment string
	Problems   []FieldError
}

func (e *ExpansionError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("expand %s: %s", e.Experiment, strings.Join(parts, "; "))
}

// ToAPIError maps domain errors onto the API error envelope.
func ToAPIError(err error) *APIError {
	var (
		apiErr   *APIError
		valErr   *SchemaValidationError
		expErr   *ExpansionError
		chainErr *UnresolvedChainReferenceError
		cycleErr *ChainCycleError
		modErr   *UnknownModifierError
		modeErr  *UnknownModeError
		dupErr   *DuplicateModifierError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &valErr):
		return NewValidationError("document failed schema validation", valErr.Violations...)
	case errors.As(err, &expErr):
		return &APIError{Code: ErrExpansion, Message: "experiment expansion failed", Details: expErr.Problems}
	case errors.As(err, &chainErr):
		return &APIError{Code: ErrNotFound, Message: chainErr.Error()}
	case errors.As(err, &cycleErr):
		return &APIError{Code: ErrValidation, Message: cycleErr.Error()}
	case errors.As(err, &modErr):
		return &APIError{Code: ErrNotFound, Message: modErr.Error()}
	case errors.As(err, &modeErr):
		return &APIError{Code: ErrNotFound, Message: modeErr.Error()}
	case errors.As(err, &dupErr):
		return &APIError{Code: ErrConflict, Message: dupErr.Error()}
	default:
		return &APIError{Code: ErrInternal, Message: err.Error()}
	}
}
