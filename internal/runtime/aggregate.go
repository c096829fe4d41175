package runtime

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
)

// contribution is one agent's decision for one output.
type contribution struct {
	agentID string
	out     domain.OutputDecision
}

// DecideGenerator evaluates every agent tree against a context rebuilt from
// the generator configuration and merges the per-agent predictions.
// Agents outside the generator filter are skipped, agents whose tree fails
// are recorded and skipped, and the call fails with an *AggregationError
// only when no agent contributed. A malformed generator configuration fails
// with a *MalformedTreeError before any agent is evaluated.
func (e *Engine) DecideGenerator(ctx context.Context, gen domain.Generator, agents []domain.AgentTree, partial domain.Context, t *domain.Time) (*domain.Decision, error) {
	if err := validator.ValidateConfiguration(gen.Configuration); err != nil {
		return nil, err
	}
	resolved, err := e.ResolveTime(t)
	if err != nil {
		return nil, err
	}
	rebuilt, err := e.RebuildContext(gen.Configuration, partial, resolved)
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.AgentOutcome, 0, len(agents))
	perOutput := make(map[string][]contribution, len(gen.Configuration.Output))
	var failures []domain.AgentError
	contributors := 0

	for _, agent := range agents {
		if !gen.Accepts(agent.AgentID) {
			outcomes = append(outcomes, domain.AgentOutcome{AgentID: agent.AgentID, Status: domain.AgentFiltered})
			continue
		}

		decided, err := e.decideAgent(ctx, gen.Configuration, agent, rebuilt)
		if err != nil {
			e.logger.Debug("agent skipped", "agent", agent.AgentID, "err", err)
			failures = append(failures, domain.AgentError{AgentID: agent.AgentID, Err: err})
			outcomes = append(outcomes, domain.AgentOutcome{
				AgentID: agent.AgentID,
				Status:  domain.AgentFailed,
				Error:   err.Error(),
				Err:     err,
			})
			continue
		}

		contributors++
		outcomes = append(outcomes, domain.AgentOutcome{AgentID: agent.AgentID, Status: domain.AgentContributed})
		for _, output := range gen.Configuration.Output {
			perOutput[output] = append(perOutput[output], contribution{agentID: agent.AgentID, out: decided[output]})
		}
	}

	if contributors == 0 {
		err := &domain.AggregationError{Errors: failures}
		e.emitGenerator(ctx, len(agents), 0, err)
		return nil, err
	}

	merged := make(map[string]domain.OutputDecision, len(gen.Configuration.Output))
	for _, output := range gen.Configuration.Output {
		out, err := merge(output, gen.Configuration.Context[output].Type, perOutput[output])
		if err != nil {
			e.emitGenerator(ctx, len(agents), contributors, err)
			return nil, err
		}
		merged[output] = out
	}

	e.emitGenerator(ctx, len(agents), contributors, nil)
	return &domain.Decision{Context: rebuilt, Output: merged, Agents: outcomes}, nil
}

// decideAgent evaluates one agent tree on the generator outputs.
func (e *Engine) decideAgent(ctx context.Context, cfg domain.Configuration, agent domain.AgentTree, c domain.Context) (map[string]domain.OutputDecision, error) {
	if agent.Err != nil {
		return nil, agent.Err
	}
	if agent.Tree == nil {
		return nil, &domain.MalformedTreeError{Reason: "agent tree is nil"}
	}
	view := &domain.Tree{
		Version:       agent.Tree.Version,
		Configuration: agent.Tree.Configuration,
		Roots:         agent.Tree.Roots,
	}
	// Agents are evaluated on the outputs the generator asks for.
	view.Configuration.Output = cfg.Output
	return e.evaluate(ctx, view, c, agent.AgentID)
}

// merge combines the contributions for one output. A single contribution is
// returned verbatim.
func merge(output string, t domain.PropertyType, contribs []contribution) (domain.OutputDecision, error) {
	rules := make([]domain.AgentRules, len(contribs))
	for i, c := range contribs {
		rules[i] = domain.AgentRules{AgentID: c.agentID, DecisionRules: c.out.DecisionRules}
	}

	var pred domain.Prediction
	switch {
	case len(contribs) == 1:
		pred = contribs[0].out.Prediction
	case t.IsCategorical():
		pred = mergeCategorical(t, contribs)
	default:
		var err error
		if pred, err = mergeContinuous(output, contribs); err != nil {
			return domain.OutputDecision{}, err
		}
	}
	return domain.OutputDecision{Prediction: pred, AgentRules: rules}, nil
}

// mergeContinuous computes the weighted mean and the pooled standard
// deviation sqrt(sum(w*(sd^2 + (m-mean)^2)) / sum(w)).
// Every prediction must be numeric.
func mergeContinuous(output string, contribs []contribution) (domain.Prediction, error) {
	values := make([]float64, len(contribs))
	var weights, weighted sum
	for i, c := range contribs {
		m, ok := domain.ToFloat(c.out.PredictedValue)
		if !ok {
			return domain.Prediction{}, &domain.MalformedTreeError{
				Path:   "trees." + output,
				Reason: fmt.Sprintf("agent %q predicts non-numeric %v for continuous output %q", c.agentID, c.out.PredictedValue, output),
			}
		}
		values[i] = m
		w := c.out.Weight()
		weights.Add(w)
		weighted.Add(w * m)
	}
	total := weights.Value()
	mean := weighted.Value() / total

	var variance sum
	for i, c := range contribs {
		m := values[i]
		sd := 0.0
		if c.out.StandardDeviation != nil {
			sd = *c.out.StandardDeviation
		}
		d := m - mean
		variance.Add(c.out.Weight() * (sd*sd + d*d))
	}
	stddev := math.Sqrt(variance.Value() / total)

	return domain.Prediction{
		PredictedValue:    mean,
		Confidence:        mergeConfidence(contribs),
		StandardDeviation: &stddev,
		NbSamples:         mergeSamples(contribs),
	}, nil
}

// mergeCategorical sums the weighted probability mass of every value and
// renormalizes it. The value with the largest mass wins; ties go to the
// lexicographically smallest key.
func mergeCategorical(t domain.PropertyType, contribs []contribution) domain.Prediction {
	masses := make(map[string]*sum)
	values := make(map[string]any)
	var order []string

	add := func(key string, m float64) {
		s, ok := masses[key]
		if !ok {
			s = &sum{}
			masses[key] = s
			order = append(order, key)
		}
		s.Add(m)
	}

	for _, c := range contribs {
		w := c.out.Weight()
		v := c.out.PredictedValue
		values[domain.DistributionKey(v)] = v

		dist := c.out.Distribution
		if len(dist) == 0 {
			dist = map[string]float64{domain.DistributionKey(v): 1}
		}
		keys := make([]string, 0, len(dist))
		for k := range dist {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k, w*dist[k])
		}
	}

	var total sum
	sort.Strings(order)
	for _, k := range order {
		total.Add(masses[k].Value())
	}

	distribution := make(map[string]float64, len(order))
	best, bestMass := "", -1.0
	for _, k := range order {
		m := 0.0
		if total.Value() > 0 {
			m = masses[k].Value() / total.Value()
		}
		distribution[k] = m
		if m > bestMass {
			best, bestMass = k, m
		}
	}

	value, ok := values[best]
	if !ok {
		value = valueForKey(t, best)
	}

	return domain.Prediction{
		PredictedValue: value,
		Confidence:     &bestMass,
		Distribution:   distribution,
		NbSamples:      mergeSamples(contribs),
	}
}

// valueForKey turns a distribution key back into a typed value.
func valueForKey(t domain.PropertyType, key string) any {
	switch t {
	case domain.TypeBoolean:
		if b, err := strconv.ParseBool(key); err == nil {
			return b
		}
	case domain.TypeDayOfWeek, domain.TypeMonthOfYear:
		if n, err := strconv.Atoi(key); err == nil {
			return n
		}
	}
	return key
}

func mergeConfidence(contribs []contribution) *float64 {
	var weights, weighted sum
	found := false
	for _, c := range contribs {
		if c.out.Confidence == nil {
			continue
		}
		found = true
		w := c.out.Weight()
		weights.Add(w)
		weighted.Add(w * *c.out.Confidence)
	}
	if !found {
		return nil
	}
	v := weighted.Value() / weights.Value()
	return &v
}

func mergeSamples(contribs []contribution) *int64 {
	var total int64
	found := false
	for _, c := range contribs {
		if c.out.NbSamples != nil {
			total += *c.out.NbSamples
			found = true
		}
	}
	if !found {
		return nil
	}
	return &total
}
