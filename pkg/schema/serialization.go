package schema

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the schema as property names mapped to type names.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	names := make(map[string]string, len(s))
	for property, t := range s {
		if t == nil {
			return nil, fmt.Errorf("property %s: type is nil", property)
		}
		names[property] = t.Name()
	}
	return json.Marshal(names)
}

// UnmarshalJSON decodes property names mapped to type names. Unknown type
// names are rejected.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if names == nil {
		*s = nil
		return nil
	}
	parsed, err := ParseTypeMap(names)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	*s = parsed
	return nil
}
