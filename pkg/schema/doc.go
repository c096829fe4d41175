// Package schema provides the type system used to check and normalize
// context values against a tree configuration.
//
// Each configuration property type (continuous, enum, boolean, timezone,
// day_of_week, month_of_year, time_of_day) has a Type that validates a raw
// value and returns its canonical form. Schemas map property names to types:
//
//	s := schema.Schema{
//	    "speed": schema.Continuous(),
//	    "car":   schema.Enum(),
//	    "day":   schema.DayOfWeek(),
//	}
//
//	normalized, err := schema.Normalize(s, map[string]any{"speed": 10, "day": 2.0})
//	// normalized["speed"] == 10.0, normalized["day"] == 2
//
// Schemas can be built from a configuration or parsed from type names:
//
//	s, err := schema.FromConfiguration(tree.Configuration)
//	s, err := schema.ParseTypeMap(map[string]string{"speed": "continuous"})
//
// Validation failures are reported as *ValidationError values collected in an
// *AggregateError.
package schema
