package schema

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidate_Success(t *testing.T) {
	schema := Schema{
		"speed":    Continuous(),
		"car":      Enum(),
		"sunny":    Boolean(),
		"timezone": Timezone(),
		"day":      DayOfWeek(),
	}

	data := map[string]any{
		"speed":    30.5,
		"car":      "Renault",
		"sunny":    true,
		"timezone": "+02:00",
		"day":      4,
	}

	if err := Validate(schema, data); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_PartialContext(t *testing.T) {
	schema := Schema{
		"speed": Continuous(),
		"car":   Enum(),
	}

	// Absent and nil values are resolved later through missing branches.
	data := map[string]any{
		"car": nil,
	}

	if err := Validate(schema, data); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_TypeMismatch(t *testing.T) {
	schema := Schema{
		"speed": Continuous(),
	}

	err := Validate(schema, map[string]any{"speed": "fast"})
	if err == nil {
		t.Fatal("Validate() should return error for type mismatch")
	}

	aggr, ok := err.(*AggregateError)
	if !ok {
		t.Fatalf("error should be *AggregateError, got %T", err)
	}

	validErr, ok := aggr.Errors[0].(*ValidationError)
	if !ok {
		t.Fatalf("error should be *ValidationError, got %T", aggr.Errors[0])
	}

	if validErr.Key != "speed" {
		t.Errorf("ValidationError.Key = %q, want %q", validErr.Key, "speed")
	}
	if validErr.Value != "fast" {
		t.Errorf("ValidationError.Value = %v, want %q", validErr.Value, "fast")
	}
}

func TestValidate_MultipleErrorsAreSorted(t *testing.T) {
	schema := Schema{
		"speed": Continuous(),
		"car":   Enum(),
		"day":   DayOfWeek(),
	}

	data := map[string]any{
		"speed": "fast",
		"car":   12,
		"day":   9,
	}

	errs := ValidationErrors(Validate(schema, data))
	if len(errs) != 3 {
		t.Fatalf("Validate() = %d errors, want 3", len(errs))
	}

	var keys []string
	for _, err := range errs {
		keys = append(keys, err.(*ValidationError).Key)
	}
	if strings.Join(keys, ",") != "car,day,speed" {
		t.Errorf("error order = %v, want [car day speed]", keys)
	}
}

func TestNormalize(t *testing.T) {
	schema := Schema{
		"speed":    Continuous(),
		"day":      DayOfWeek(),
		"timezone": Timezone(),
	}

	got, err := Normalize(schema, map[string]any{
		"speed":    10,
		"day":      2.0,
		"timezone": 120,
		"extra":    "kept",
		"missing":  nil,
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := map[string]any{
		"speed":    10.0,
		"day":      2,
		"timezone": "+02:00",
		"extra":    "kept",
		"missing":  nil,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Normalize()[%q] = %v (%T), want %v (%T)", k, got[k], got[k], v, v)
		}
	}
	if _, ok := got["missing"]; !ok {
		t.Error("Normalize() dropped an explicit nil value")
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	if err := Validate(Schema{}, map[string]any{"anything": struct{}{}}); err != nil {
		t.Errorf("Validate() with empty schema should succeed, got %v", err)
	}
}

func TestValidationError_String(t *testing.T) {
	tests := []struct {
		err  *ValidationError
		want string
	}{
		{
			&ValidationError{Key: "speed", Reason: "required", Value: nil},
			`property "speed": required`,
		},
		{
			&ValidationError{Key: "speed", Reason: "expected number, got string", Value: "fast"},
			`property "speed": expected number, got string (got string)`,
		},
	}

	for _, tt := range tests {
		got := tt.err.Error()
		if got != tt.want {
			t.Errorf("ValidationError.Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestAggregateError_String(t *testing.T) {
	aggr := &AggregateError{
		Errors: []error{
			&ValidationError{Key: "car", Reason: "expected string", Value: 1},
			&ValidationError{Key: "speed", Reason: "expected number", Value: "fast"},
		},
	}

	result := aggr.Error()
	if !strings.Contains(result, "2 validation errors") {
		t.Errorf("AggregateError.Error() should mention 2 errors, got: %s", result)
	}
}

func TestValidationErrors(t *testing.T) {
	aggr := &AggregateError{
		Errors: []error{
			&ValidationError{Key: "speed", Reason: "required", Value: nil},
		},
	}

	if errs := ValidationErrors(aggr); len(errs) != 1 {
		t.Errorf("ValidationErrors() = %d errors, want 1", len(errs))
	}

	wrapped := fmt.Errorf("rebuilding context: %w", aggr)
	if errs := ValidationErrors(wrapped); len(errs) != 1 {
		t.Errorf("ValidationErrors() on wrapped aggregate = %d errors, want 1", len(errs))
	}

	var ve *ValidationError
	if !errors.As(wrapped, &ve) || ve.Key != "speed" {
		t.Errorf("errors.As() should reach the ValidationError inside the aggregate, got %v", ve)
	}

	// Non-aggregate error returns nil
	err := &ValidationError{Key: "speed", Reason: "required", Value: nil}
	if errs := ValidationErrors(err); errs != nil {
		t.Errorf("ValidationErrors() on non-aggregate = %v, want nil", errs)
	}
}
