package runtime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
)

// fixedNow is 2017-03-20T08:22:54Z, a Monday.
var fixedNow = time.Unix(1489998174, 0).UTC()

func newEngine(opts ...runtime.EngineOption) *runtime.Engine {
	opts = append([]runtime.EngineOption{runtime.WithClock(func() time.Time { return fixedNow })}, opts...)
	return runtime.NewEngine(opts...)
}

func mustParse(t *testing.T, doc string) *domain.Tree {
	t.Helper()
	tree, err := compiler.NewParser().Parse([]byte(doc))
	require.NoError(t, err)
	return tree
}

func ptrTime(ts int64, offset int) *domain.Time {
	return &domain.Time{Timestamp: ts, Offset: offset}
}

// speedTree routes on speed: [-inf, 10) -> "slow", [10, +inf) -> "fast".
const speedTree = `{
	"_version": "1.1.0",
	"configuration": {
		"context": {
			"speed": {"type": "continuous"},
			"label": {"type": "enum"}
		},
		"output": ["label"]
	},
	"trees": {"label": {"children": [
		{"decision_rule": {"property": "speed", "operator": "<", "operand": 10}, "predicted_value": "slow", "confidence": 0.9},
		{"decision_rule": {"property": "speed", "operator": ">=", "operand": 10}, "predicted_value": "fast", "confidence": 0.8}
	]}}
}`

// pierreTree routes on b with an equality branch and a missing branch.
const pierreTree = `{
	"configuration": {
		"context": {"b": {"type": "enum"}, "out": {"type": "enum"}},
		"output": ["out"]
	},
	"root": {"children": [
		{"decision_rule": {"property": "b", "operator": "is", "operand": "Pierre"}, "predicted_value": "known"},
		{"decision_rule": {"property": "b", "operator": "is", "operand": null}, "predicted_value": "unknown"}
	]}
}`

// calendarTree routes on generated time properties.
const calendarTree = `{
	"_version": "1.1.0",
	"configuration": {
		"context": {
			"dow": {"type": "day_of_week"},
			"tod": {"type": "time_of_day"},
			"tz": {"type": "timezone"},
			"open": {"type": "boolean"}
		},
		"output": ["open"],
		"time_quantum": 3600
	},
	"trees": {"open": {"children": [
		{"decision_rule": {"property": "dow", "operator": "[in[", "operand": [0, 5]}, "children": [
			{"decision_rule": {"property": "tod", "operator": "[in[", "operand": [9, 18]}, "predicted_value": true},
			{"decision_rule": {"property": "tod", "operator": "[in[", "operand": [18, 9]}, "predicted_value": false}
		]},
		{"decision_rule": {"property": "dow", "operator": "[in[", "operand": [5, 0]}, "predicted_value": false}
	]}}
}`
