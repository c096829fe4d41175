package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// PropertyType is the declared type of a context property.
type PropertyType string

const (
	TypeContinuous  PropertyType = "continuous"
	TypeEnum        PropertyType = "enum"
	TypeBoolean     PropertyType = "boolean"
	TypeTimezone    PropertyType = "timezone"
	TypeDayOfWeek   PropertyType = "day_of_week"
	TypeMonthOfYear PropertyType = "month_of_year"
	TypeTimeOfDay   PropertyType = "time_of_day"
)

// Valid reports whether t is one of the recognized property types.
func (t PropertyType) Valid() bool {
	switch t {
	case TypeContinuous, TypeEnum, TypeBoolean, TypeTimezone,
		TypeDayOfWeek, TypeMonthOfYear, TypeTimeOfDay:
		return true
	}
	return false
}

// IsTimeDerived reports whether values of this type can be generated from a Time.
func (t PropertyType) IsTimeDerived() bool {
	switch t {
	case TypeTimezone, TypeDayOfWeek, TypeMonthOfYear, TypeTimeOfDay:
		return true
	}
	return false
}

// IsPeriodic reports whether the type lives on a cyclic numeric domain.
func (t PropertyType) IsPeriodic() bool {
	switch t {
	case TypeDayOfWeek, TypeMonthOfYear, TypeTimeOfDay:
		return true
	}
	return false
}

// IsNumeric reports whether range predicates apply to this type.
func (t PropertyType) IsNumeric() bool {
	return t == TypeContinuous || t.IsPeriodic()
}

// IsCategorical reports whether predictions for this type carry a distribution.
func (t PropertyType) IsCategorical() bool {
	return t == TypeEnum || t == TypeBoolean || t == TypeTimezone || t == TypeDayOfWeek || t == TypeMonthOfYear
}

// Domain returns the [lower, upper) numeric domain of the type.
// The bool is false for non-numeric types.
func (t PropertyType) Domain() (lower, upper float64, ok bool) {
	switch t {
	case TypeContinuous:
		return negInf, posInf, true
	case TypeDayOfWeek:
		return 0, 7, true
	case TypeMonthOfYear:
		return 1, 13, true
	case TypeTimeOfDay:
		return 0, 24, true
	}
	return 0, 0, false
}

// Property describes one entry of a configuration context.
type Property struct {
	Type        PropertyType `json:"type" mapstructure:"type"`
	IsGenerated *bool        `json:"is_generated,omitempty" mapstructure:"is_generated"`
}

// Generated reports whether the property is derived from time when absent.
// It defaults to true for the time-derived types and is always false otherwise.
func (p Property) Generated() bool {
	if !p.Type.IsTimeDerived() {
		return false
	}
	if p.IsGenerated == nil {
		return true
	}
	return *p.IsGenerated
}

// Configuration is attached to every tree and declares its properties.
type Configuration struct {
	// Context maps property names to their descriptors.
	Context map[string]Property
	// Order preserves the declaration order of Context keys.
	Order []string
	// Output lists the predicted properties.
	Output []string
	// TimeQuantum is the minimum time granularity, in seconds.
	TimeQuantum int64
}

// Names returns the property names in declaration order.
// Keys missing from Order are appended in lexical order.
func (c Configuration) Names() []string {
	names := make([]string, 0, len(c.Context))
	seen := make(map[string]bool, len(c.Context))
	for _, n := range c.Order {
		if _, ok := c.Context[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	var rest []string
	for n := range c.Context {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// Property looks up a property descriptor by name.
func (c Configuration) Property(name string) (Property, bool) {
	p, ok := c.Context[name]
	return p, ok
}

// Set declares (or redeclares) a property, keeping declaration order.
func (c *Configuration) Set(name string, p Property) {
	if c.Context == nil {
		c.Context = make(map[string]Property)
	}
	if _, exists := c.Context[name]; !exists {
		c.Order = append(c.Order, name)
	}
	c.Context[name] = p
}

type configurationJSON struct {
	Context     json.RawMessage `json:"context"`
	Output      []string        `json:"output"`
	TimeQuantum int64           `json:"time_quantum,omitempty"`
}

// MarshalJSON emits the context object in declaration order.
func (c Configuration) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(name)
		val, err := json.Marshal(c.Context[name])
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	output := c.Output
	if output == nil {
		output = []string{}
	}
	return json.Marshal(configurationJSON{
		Context:     buf.Bytes(),
		Output:      output,
		TimeQuantum: c.TimeQuantum,
	})
}

// UnmarshalJSON decodes a configuration, keeping the context key order.
func (c *Configuration) UnmarshalJSON(data []byte) error {
	var raw configurationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	props := make(map[string]Property)
	if len(raw.Context) > 0 && string(raw.Context) != "null" {
		if err := json.Unmarshal(raw.Context, &props); err != nil {
			return fmt.Errorf("context: %w", err)
		}
	}
	order, err := ObjectKeys(raw.Context)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	*c = Configuration{
		Context:     props,
		Order:       order,
		Output:      raw.Output,
		TimeQuantum: raw.TimeQuantum,
	}
	return nil
}

// ObjectKeys returns the top-level keys of a JSON object in document order.
func ObjectKeys(data []byte) ([]string, error) {
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
