package schema

import (
	"fmt"
	"math"

	"github.com/aretw0/arbor/pkg/domain"
)

// Type defines the contract for context value validation.
// Implementations determine how values are validated against a property type.
type Type interface {
	// Name returns the property type name (e.g., "continuous", "day_of_week").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
	// Normalize returns the canonical representation of a valid value.
	Normalize(value any) (any, error)
}

// --- Built-in Type Implementations ---

// ContinuousType accepts any real number and normalizes it to float64.
type ContinuousType struct{}

func (t *ContinuousType) Name() string { return string(domain.TypeContinuous) }

func (t *ContinuousType) Validate(value any) error {
	_, err := t.Normalize(value)
	return err
}

func (t *ContinuousType) Normalize(value any) (any, error) {
	f, ok := domain.ToFloat(value)
	if !ok {
		return nil, fmt.Errorf("expected number, got %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("expected finite number, got %v", f)
	}
	return f, nil
}

// EnumType accepts opaque string tokens.
type EnumType struct{}

func (t *EnumType) Name() string { return string(domain.TypeEnum) }

func (t *EnumType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

func (t *EnumType) Normalize(value any) (any, error) {
	if err := t.Validate(value); err != nil {
		return nil, err
	}
	return value, nil
}

// BooleanType accepts bool values.
type BooleanType struct{}

func (t *BooleanType) Name() string { return string(domain.TypeBoolean) }

func (t *BooleanType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

func (t *BooleanType) Normalize(value any) (any, error) {
	if err := t.Validate(value); err != nil {
		return nil, err
	}
	return value, nil
}

// TimezoneType accepts a UTC offset as "+HH:MM" or as a number of minutes,
// and normalizes it to "+HH:MM".
type TimezoneType struct{}

func (t *TimezoneType) Name() string { return string(domain.TypeTimezone) }

func (t *TimezoneType) Validate(value any) error {
	_, err := t.Normalize(value)
	return err
}

func (t *TimezoneType) Normalize(value any) (any, error) {
	switch value.(type) {
	case bool, nil:
		return nil, fmt.Errorf("expected offset, got %T", value)
	}
	minutes, err := domain.ParseOffset(value)
	if err != nil {
		return nil, err
	}
	return domain.FormatOffset(minutes), nil
}

// IntRangeType accepts whole numbers in [Min, Max] and normalizes them to int.
// It backs day_of_week and month_of_year.
type IntRangeType struct {
	name     string
	min, max int
}

func (t *IntRangeType) Name() string { return t.name }

func (t *IntRangeType) Validate(value any) error {
	_, err := t.Normalize(value)
	return err
}

func (t *IntRangeType) Normalize(value any) (any, error) {
	f, ok := domain.ToFloat(value)
	if !ok {
		return nil, fmt.Errorf("expected integer, got %T", value)
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("expected integer, got %v (not a whole number)", f)
	}
	if f < float64(t.min) || f > float64(t.max) {
		return nil, fmt.Errorf("expected integer in [%d, %d], got %v", t.min, t.max, f)
	}
	return int(f), nil
}

// TimeOfDayType accepts hours since midnight in [0, 24) and normalizes them to float64.
type TimeOfDayType struct{}

func (t *TimeOfDayType) Name() string { return string(domain.TypeTimeOfDay) }

func (t *TimeOfDayType) Validate(value any) error {
	_, err := t.Normalize(value)
	return err
}

func (t *TimeOfDayType) Normalize(value any) (any, error) {
	f, ok := domain.ToFloat(value)
	if !ok {
		return nil, fmt.Errorf("expected number, got %T", value)
	}
	if !(f >= 0 && f < 24) {
		return nil, fmt.Errorf("expected hours in [0, 24), got %v", f)
	}
	return f, nil
}

// --- Factory Functions ---

// Continuous creates a continuous type validator.
func Continuous() Type { return &ContinuousType{} }

// Enum creates an enum type validator.
func Enum() Type { return &EnumType{} }

// Boolean creates a boolean type validator.
func Boolean() Type { return &BooleanType{} }

// Timezone creates a timezone type validator.
func Timezone() Type { return &TimezoneType{} }

// DayOfWeek creates a validator for 0 (Monday) through 6 (Sunday).
func DayOfWeek() Type {
	return &IntRangeType{name: string(domain.TypeDayOfWeek), min: 0, max: 6}
}

// MonthOfYear creates a validator for 1 (January) through 12 (December).
func MonthOfYear() Type {
	return &IntRangeType{name: string(domain.TypeMonthOfYear), min: 1, max: 12}
}

// TimeOfDay creates a time of day type validator.
func TimeOfDay() Type { return &TimeOfDayType{} }

// ParseType converts a property type name to a Type.
func ParseType(typeStr string) (Type, error) {
	switch domain.PropertyType(typeStr) {
	case domain.TypeContinuous:
		return Continuous(), nil
	case domain.TypeEnum:
		return Enum(), nil
	case domain.TypeBoolean:
		return Boolean(), nil
	case domain.TypeTimezone:
		return Timezone(), nil
	case domain.TypeDayOfWeek:
		return DayOfWeek(), nil
	case domain.TypeMonthOfYear:
		return MonthOfYear(), nil
	case domain.TypeTimeOfDay:
		return TimeOfDay(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of property names to type strings into a Schema.
// Example: {"speed": "continuous", "car": "enum"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}

// FromConfiguration builds the Schema of a tree configuration.
func FromConfiguration(cfg domain.Configuration) (Schema, error) {
	result := make(Schema, len(cfg.Context))
	for _, name := range cfg.Names() {
		t, err := ParseType(string(cfg.Context[name].Type))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		result[name] = t
	}
	return result, nil
}
