package schema

import "sort"

// Schema is a map of property names to their expected types.
// Example: {"speed": Continuous(), "car": Enum(), "day": DayOfWeek()}
type Schema map[string]Type

// Validate checks that every present value in data conforms to the schema.
// Absent properties and nil values are allowed, since contexts are partial.
// Returns an error with all validation failures found.
func Validate(schema Schema, data map[string]any) error {
	_, err := Normalize(schema, data)
	return err
}

// Normalize validates data and returns a copy where every declared value is
// in its canonical representation. Undeclared properties are copied verbatim.
// Failures are reported in lexical property order as an *AggregateError.
func Normalize(schema Schema, data map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(data))
	var errs []error

	for _, key := range keys {
		value := data[key]
		fieldType, declared := schema[key]
		if !declared || value == nil {
			out[key] = value
			continue
		}

		normalized, err := fieldType.Normalize(value)
		if err != nil {
			errs = append(errs, &ValidationError{
				Key:    key,
				Reason: err.Error(),
				Value:  value,
			})
			continue
		}
		out[key] = normalized
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}

	return out, nil
}
