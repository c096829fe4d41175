package domain

// OutputDecision is the prediction for one output property, together with
// the explanation that led to it. DecisionRules is set for single-tree
// decisions and AgentRules for generator decisions.
type OutputDecision struct {
	Prediction
	DecisionRules []DecisionRule `json:"decision_rules,omitempty"`
	AgentRules    []AgentRules   `json:"agents_rules,omitempty"`
}

// AgentRules are the decision rules one agent's tree followed.
type AgentRules struct {
	AgentID       string         `json:"agent_id"`
	DecisionRules []DecisionRule `json:"decision_rules"`
}

// AgentStatus describes what happened to an agent during a generator decision.
type AgentStatus string

const (
	AgentContributed AgentStatus = "contributed"
	AgentFailed      AgentStatus = "failed"
	AgentFiltered    AgentStatus = "filtered"
)

// AgentOutcome reports one agent of a generator decision.
type AgentOutcome struct {
	AgentID string      `json:"agent_id"`
	Status  AgentStatus `json:"status"`
	Error   string      `json:"error,omitempty"`
	Err     error       `json:"-"`
}

// Decision is the result of evaluating a tree or a generator.
type Decision struct {
	Context Context                   `json:"context"`
	Output  map[string]OutputDecision `json:"output"`
	Agents  []AgentOutcome            `json:"agents,omitempty"`
}

// Value returns the predicted value of output, or nil if it was not predicted.
func (d *Decision) Value(output string) any {
	if d == nil {
		return nil
	}
	od, ok := d.Output[output]
	if !ok {
		return nil
	}
	return od.PredictedValue
}
