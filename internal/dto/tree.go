// Package dto holds the wire shapes of tree documents, decoded with
// mapstructure before the compiler turns them into domain types.
package dto

// NodeDocument is one node of a tree document. A node with Children is a
// decision node; otherwise it is a leaf carrying either the v1 flat fields or
// the v2 Prediction object. DecisionRule is set on every node except roots.
type NodeDocument struct {
	DecisionRule *RuleDocument    `json:"decision_rule,omitempty" mapstructure:"decision_rule"`
	Children     []map[string]any `json:"children,omitempty" mapstructure:"children"`

	// v1 leaf
	PredictedValue    any `json:"predicted_value,omitempty" mapstructure:"predicted_value"`
	Confidence        any `json:"confidence,omitempty" mapstructure:"confidence"`
	StandardDeviation any `json:"standard_deviation,omitempty" mapstructure:"standard_deviation"`
	NbSamples         any `json:"nb_samples,omitempty" mapstructure:"nb_samples"`
	Distribution      any `json:"distribution,omitempty" mapstructure:"distribution"`

	// v2 leaf
	Prediction *PredictionDocument `json:"prediction,omitempty" mapstructure:"prediction"`

	// v2 roots list the values indexed by array distributions.
	OutputValues []any `json:"output_values,omitempty" mapstructure:"output_values"`
}

// IsLeaf reports whether the node carries a prediction instead of children.
func (n NodeDocument) IsLeaf() bool {
	return len(n.Children) == 0
}

// RuleDocument is the condition guarding a child node.
type RuleDocument struct {
	Property string `json:"property" mapstructure:"property"`
	Operator string `json:"operator" mapstructure:"operator"`
	Operand  any    `json:"operand" mapstructure:"operand"`
}

// PredictionDocument is the v2 leaf payload.
type PredictionDocument struct {
	Value        any `json:"value" mapstructure:"value"`
	Confidence   any `json:"confidence,omitempty" mapstructure:"confidence"`
	NbSamples    any `json:"nb_samples,omitempty" mapstructure:"nb_samples"`
	Distribution any `json:"distribution,omitempty" mapstructure:"distribution"`
}
