package model

import (
	"fmt"
	"strings"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Code: ErrNotFound, Message: "Instance 'abc' not found"}
	want := "NOT_FOUND: Instance 'abc' not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("Modifier", "lscpu")
	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Message != "Modifier 'lscpu' not found" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestSchemaValidationError_Error(t *testing.T) {
	single := &SchemaValidationError{Violations: []FieldError{
		{Path: "applications.App.bogus", Message: "unexpected property"},
	}}
	if got, want := single.Error(), "schema validation failed: applications.App.bogus: unexpected property"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	multi := &SchemaValidationError{Violations: []FieldError{
		{Path: "a", Message: "x"},
		{Path: "b", Message: "y"},
	}}
	if !strings.Contains(multi.Error(), "2 violations") {
		t.Errorf("Error() = %q, want violation count", multi.Error())
	}
}

func TestUnknownModeError_Error(t *testing.T) {
	tests := []struct {
		err  *UnknownModeError
		want string
	}{
		{&UnknownModeError{Modifier: "lscpu", Mode: "fast"}, `modifier "lscpu" has no mode "fast"`},
		{&UnknownModeError{Modifier: "intel-aps"}, `modifier "intel-aps" declares several modes and none was selected`},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"validation", &SchemaValidationError{Violations: []FieldError{{Path: "x", Message: "bad"}}}, ErrValidation},
		{"wrapped validation", fmt.Errorf("resolve: %w", &SchemaValidationError{}), ErrValidation},
		{"expansion", &ExpansionError{Experiment: "a.b.c"}, ErrExpansion},
		{"chain", &UnresolvedChainReferenceError{Experiment: "a", Reference: "b"}, ErrNotFound},
		{"cycle", &ChainCycleError{Chain: []string{"a", "b", "a"}}, ErrValidation},
		{"mode", &UnknownModeError{Modifier: "m", Mode: "x"}, ErrNotFound},
		{"duplicate", &DuplicateModifierError{Modifier: "m"}, ErrConflict},
		{"other", fmt.Errorf("boom"), ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToAPIError(tt.err).Code; got != tt.want {
				t.Errorf("Code = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := ToAPIError(&SchemaValidationError{Violations: []FieldError{
		{Path: "applications.App.x", Message: "unexpected property"},
		{Path: "applications.App.y", Message: "unexpected property"},
	}})
	if len(err.Details) != 2 {
		t.Errorf("Details length = %d, want 2", len(err.Details))
	}
}
