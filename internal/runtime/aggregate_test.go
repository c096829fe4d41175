package runtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
)

// weatherConfig is shared by the generator and its agents.
const weatherConfig = `{
	"context": {
		"speed": {"type": "continuous"},
		"temp": {"type": "continuous"},
		"sky": {"type": "enum"}
	},
	"output": ["%s"]
}`

// agentLeaf returns a single-leaf agent tree predicting output.
func agentLeaf(t *testing.T, id, output, leaf string) domain.AgentTree {
	t.Helper()
	doc := fmt.Sprintf(`{"configuration": %s, "trees": {%q: %s}}`, fmt.Sprintf(weatherConfig, output), output, leaf)
	return domain.AgentTree{AgentID: id, Tree: mustParse(t, doc)}
}

// agentOnSpeed returns an agent tree that needs speed to decide.
func agentOnSpeed(t *testing.T, id string) domain.AgentTree {
	t.Helper()
	doc := fmt.Sprintf(`{"configuration": %s, "trees": {"temp": {"children": [
		{"decision_rule": {"property": "speed", "operator": "<", "operand": 5}, "predicted_value": 1},
		{"decision_rule": {"property": "speed", "operator": ">=", "operand": 5}, "predicted_value": 2}
	]}}}`, fmt.Sprintf(weatherConfig, "temp"))
	return domain.AgentTree{AgentID: id, Tree: mustParse(t, doc)}
}

func generator(t *testing.T, output string, filter ...string) domain.Generator {
	t.Helper()
	var cfg domain.Configuration
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(weatherConfig, output)), &cfg))
	return domain.Generator{Filter: filter, Configuration: cfg}
}

func TestDecideGenerator_SingleAgentIsIdentity(t *testing.T) {
	engine := newEngine()
	agent := agentLeaf(t, "solo", "temp", `{"predicted_value": 21.5, "standard_deviation": 1.5, "confidence": 0.7, "nb_samples": 12}`)

	single, err := engine.Decide(context.Background(), agent.Tree, domain.Context{}, nil)
	require.NoError(t, err)

	merged, err := engine.DecideGenerator(context.Background(), generator(t, "temp"), []domain.AgentTree{agent}, domain.Context{}, nil)
	require.NoError(t, err)

	assert.Equal(t, single.Output["temp"].Prediction, merged.Output["temp"].Prediction)
	assert.Equal(t, []domain.AgentRules{{AgentID: "solo", DecisionRules: []domain.DecisionRule{}}}, merged.Output["temp"].AgentRules)
	assert.Equal(t, []domain.AgentOutcome{{AgentID: "solo", Status: domain.AgentContributed}}, merged.Agents)
}

func TestDecideGenerator_ContinuousMerge(t *testing.T) {
	engine := newEngine()
	agents := []domain.AgentTree{
		agentLeaf(t, "a", "temp", `{"predicted_value": 10, "standard_deviation": 1, "confidence": 0.5, "nb_samples": 1}`),
		agentLeaf(t, "b", "temp", `{"predicted_value": 20, "standard_deviation": 2, "confidence": 0.9, "nb_samples": 3}`),
	}

	d, err := engine.DecideGenerator(context.Background(), generator(t, "temp"), agents, domain.Context{}, nil)
	require.NoError(t, err)

	out := d.Output["temp"]
	// mean = (1*10 + 3*20) / 4; variance = (1*(1 + 7.5^2) + 3*(4 + 2.5^2)) / 4 = 22.
	assert.InDelta(t, 17.5, out.PredictedValue, 1e-12)
	require.NotNil(t, out.StandardDeviation)
	assert.InDelta(t, math.Sqrt(22), *out.StandardDeviation, 1e-12)
	require.NotNil(t, out.Confidence)
	assert.InDelta(t, 0.8, *out.Confidence, 1e-12)
	require.NotNil(t, out.NbSamples)
	assert.Equal(t, int64(4), *out.NbSamples)
	assert.Len(t, out.AgentRules, 2)
}

func TestDecideGenerator_MergeIgnoresAgentOrder(t *testing.T) {
	engine := newEngine()
	a := agentLeaf(t, "a", "temp", `{"predicted_value": 0.1, "standard_deviation": 0.3, "nb_samples": 7}`)
	b := agentLeaf(t, "b", "temp", `{"predicted_value": 0.2, "standard_deviation": 0.1, "nb_samples": 2}`)
	c := agentLeaf(t, "c", "temp", `{"predicted_value": 0.7, "nb_samples": 5}`)

	forward, err := engine.DecideGenerator(context.Background(), generator(t, "temp"), []domain.AgentTree{a, b, c}, domain.Context{}, nil)
	require.NoError(t, err)
	backward, err := engine.DecideGenerator(context.Background(), generator(t, "temp"), []domain.AgentTree{c, b, a}, domain.Context{}, nil)
	require.NoError(t, err)

	assert.InDelta(t, forward.Output["temp"].PredictedValue, backward.Output["temp"].PredictedValue, 1e-15)
	assert.InDelta(t, *forward.Output["temp"].StandardDeviation, *backward.Output["temp"].StandardDeviation, 1e-15)
}

func TestDecideGenerator_CategoricalMerge(t *testing.T) {
	engine := newEngine()

	t.Run("distributions are pooled", func(t *testing.T) {
		agents := []domain.AgentTree{
			agentLeaf(t, "x", "sky", `{"prediction": {"value": "clear", "confidence": 0.6, "nb_samples": 1, "distribution": {"clear": 0.6, "rain": 0.4}}}`),
			agentLeaf(t, "y", "sky", `{"prediction": {"value": "rain", "confidence": 0.8, "nb_samples": 1, "distribution": {"clear": 0.2, "rain": 0.8}}}`),
		}
		d, err := engine.DecideGenerator(context.Background(), generator(t, "sky"), agents, domain.Context{}, nil)
		require.NoError(t, err)

		out := d.Output["sky"]
		assert.Equal(t, "rain", out.PredictedValue)
		assert.InDelta(t, 0.6, *out.Confidence, 1e-12)
		assert.InDelta(t, 0.4, out.Distribution["clear"], 1e-12)
		assert.InDelta(t, 0.6, out.Distribution["rain"], 1e-12)
	})

	t.Run("ties go to the smallest value", func(t *testing.T) {
		agents := []domain.AgentTree{
			agentLeaf(t, "x", "sky", `{"predicted_value": "snow"}`),
			agentLeaf(t, "y", "sky", `{"predicted_value": "clear"}`),
		}
		d, err := engine.DecideGenerator(context.Background(), generator(t, "sky"), agents, domain.Context{}, nil)
		require.NoError(t, err)
		assert.Equal(t, "clear", d.Output["sky"].PredictedValue)
		assert.InDelta(t, 0.5, *d.Output["sky"].Confidence, 1e-12)
	})
}

func TestDecideGenerator_FailuresAndFilter(t *testing.T) {
	engine := newEngine()
	good := agentLeaf(t, "good", "temp", `{"predicted_value": 3}`)
	needsSpeed := agentOnSpeed(t, "needs-speed")
	other := agentLeaf(t, "other", "temp", `{"predicted_value": 100}`)

	t.Run("failing agents are skipped", func(t *testing.T) {
		d, err := engine.DecideGenerator(context.Background(), generator(t, "temp"), []domain.AgentTree{good, needsSpeed}, domain.Context{}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3.0, d.Value("temp"))

		require.Len(t, d.Agents, 2)
		assert.Equal(t, domain.AgentFailed, d.Agents[1].Status)
		assert.ErrorIs(t, d.Agents[1].Err, domain.ErrDecision)
		assert.NotEmpty(t, d.Agents[1].Error)
	})

	t.Run("filter excludes agents", func(t *testing.T) {
		d, err := engine.DecideGenerator(context.Background(), generator(t, "temp", "good"), []domain.AgentTree{good, other}, domain.Context{}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3.0, d.Value("temp"))
		assert.Equal(t, domain.AgentFiltered, d.Agents[1].Status)
	})

	t.Run("no contributor fails", func(t *testing.T) {
		_, err := engine.DecideGenerator(context.Background(), generator(t, "temp"), []domain.AgentTree{needsSpeed, {AgentID: "empty"}}, domain.Context{}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAggregation)
		assert.ErrorIs(t, err, domain.ErrDecision)

		var agg *domain.AggregationError
		require.True(t, errors.As(err, &agg))
		require.Len(t, agg.Errors, 2)
		assert.Equal(t, "needs-speed", agg.Errors[0].AgentID)
		assert.ErrorIs(t, agg.Errors[1], domain.ErrMalformedTree)
	})

	t.Run("no agents fails", func(t *testing.T) {
		_, err := engine.DecideGenerator(context.Background(), generator(t, "temp"), nil, domain.Context{}, nil)
		assert.ErrorIs(t, err, domain.ErrAggregation)
	})

	t.Run("supplied context reaches every agent", func(t *testing.T) {
		d, err := engine.DecideGenerator(context.Background(), generator(t, "temp"), []domain.AgentTree{needsSpeed}, domain.Context{"speed": 9}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2.0, d.Value("temp"))
	})
}

func TestDecideGenerator_FetchErrorIsReported(t *testing.T) {
	engine := newEngine()
	good := agentLeaf(t, "good", "temp", `{"predicted_value": 3}`)
	missing := domain.AgentTree{AgentID: "gone", Err: fmt.Errorf("agent gone: %w", domain.ErrTreeNotFound)}

	d, err := engine.DecideGenerator(context.Background(), generator(t, "temp"), []domain.AgentTree{good, missing}, domain.Context{}, nil)
	require.NoError(t, err)
	require.Len(t, d.Agents, 2)
	assert.Equal(t, domain.AgentFailed, d.Agents[1].Status)
	assert.ErrorIs(t, d.Agents[1].Err, domain.ErrTreeNotFound)
}

func TestDecideGenerator_RejectsMalformedConfiguration(t *testing.T) {
	engine := newEngine()
	agents := []domain.AgentTree{
		agentLeaf(t, "x", "sky", `{"predicted_value": "sun"}`),
		agentLeaf(t, "y", "sky", `{"predicted_value": "rain"}`),
	}

	tests := []struct {
		name string
		cfg  string
	}{
		{"output not declared in context", `{"context": {"temp": {"type": "continuous"}}, "output": ["sky"]}`},
		{"no outputs", `{"context": {"temp": {"type": "continuous"}}, "output": []}`},
		{"unknown property type", `{"context": {"sky": {"type": "colour"}}, "output": ["sky"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg domain.Configuration
			require.NoError(t, json.Unmarshal([]byte(tt.cfg), &cfg))

			d, err := engine.DecideGenerator(context.Background(), domain.Generator{Configuration: cfg}, agents, domain.Context{}, nil)
			require.Error(t, err)
			assert.Nil(t, d)
			assert.ErrorIs(t, err, domain.ErrMalformedTree)

			var mte *domain.MalformedTreeError
			assert.True(t, errors.As(err, &mte))
		})
	}
}

func TestDecideGenerator_NonNumericContinuousMergeFails(t *testing.T) {
	engine := newEngine()
	enumSky := func(id, value string) domain.AgentTree {
		doc := fmt.Sprintf(`{"configuration": {"context": {"sky": {"type": "enum"}}, "output": ["sky"]}, "trees": {"sky": {"predicted_value": %q}}}`, value)
		return domain.AgentTree{AgentID: id, Tree: mustParse(t, doc)}
	}

	var cfg domain.Configuration
	require.NoError(t, json.Unmarshal([]byte(`{"context": {"sky": {"type": "continuous"}}, "output": ["sky"]}`), &cfg))

	_, err := engine.DecideGenerator(context.Background(), domain.Generator{Configuration: cfg},
		[]domain.AgentTree{enumSky("x", "sun"), enumSky("y", "rain")}, domain.Context{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedTree)
	assert.ErrorContains(t, err, "non-numeric")
}
