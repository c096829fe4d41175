package runtime

import (
	"errors"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
)

// RebuildContext completes partial against cfg at the resolved time t.
// Supplied values are checked and normalized, generated time properties
// that are absent are derived from t, and undeclared properties are dropped.
// The caller's map is never modified.
func (e *Engine) RebuildContext(cfg domain.Configuration, partial domain.Context, t domain.Time) (domain.Context, error) {
	rebuilt, dropped, err := rebuildContext(cfg, partial, t)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		e.logger.Debug("dropped undeclared context properties", "properties", dropped)
	}
	return rebuilt, nil
}

func rebuildContext(cfg domain.Configuration, partial domain.Context, t domain.Time) (domain.Context, []string, error) {
	keys := partial.Keys()
	for _, k := range keys {
		if !domain.IsPrimitive(partial[k]) {
			return nil, nil, &domain.ValueTypeError{Property: k, Value: partial[k]}
		}
	}

	types, err := schema.FromConfiguration(cfg)
	if err != nil {
		return nil, nil, &domain.MalformedTreeError{Path: "configuration.context", Reason: "invalid property type", Err: err}
	}

	normalized, err := schema.Normalize(types, partial)
	if err != nil {
		return nil, nil, contextError(cfg, partial, err)
	}

	rebuilt := make(domain.Context, len(cfg.Context))
	var dropped []string
	for _, k := range keys {
		if _, declared := cfg.Context[k]; !declared {
			dropped = append(dropped, k)
			continue
		}
		rebuilt[k] = normalized[k]
	}

	for _, name := range cfg.Names() {
		prop := cfg.Context[name]
		if _, present := partial[name]; present || !prop.Generated() {
			continue
		}
		switch prop.Type {
		case domain.TypeTimezone:
			rebuilt[name] = t.Timezone()
		case domain.TypeDayOfWeek:
			rebuilt[name] = t.DayOfWeek()
		case domain.TypeMonthOfYear:
			rebuilt[name] = t.MonthOfYear()
		case domain.TypeTimeOfDay:
			rebuilt[name] = t.TimeOfDay(cfg.TimeQuantum)
		}
	}

	return rebuilt, dropped, nil
}

// contextError reports the first schema failure as an InvalidContextError.
func contextError(cfg domain.Configuration, partial domain.Context, err error) error {
	var first *schema.ValidationError
	for _, e := range schema.ValidationErrors(err) {
		if errors.As(e, &first) {
			break
		}
	}
	if first == nil {
		return &domain.InvalidContextError{Reason: err.Error()}
	}
	return &domain.InvalidContextError{
		Property: first.Key,
		Expected: cfg.Context[first.Key].Type,
		Value:    partial[first.Key],
		Reason:   first.Reason,
	}
}
