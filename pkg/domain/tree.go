package domain

import (
	"fmt"
	"math"
)

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// Node is a tree node: either a *DecisionNode or a *Leaf.
// The set of implementations is closed.
type Node interface {
	isNode()
}

// DecisionNode tests a single property and routes to the first matching branch.
type DecisionNode struct {
	Property string
	Branches []Branch
}

// Branch pairs a predicate with the subtree it guards.
type Branch struct {
	Predicate Predicate
	Child     Node
}

// Leaf holds the final predictions, keyed by output property.
type Leaf struct {
	Predictions map[string]Prediction
}

func (*DecisionNode) isNode() {}
func (*Leaf) isNode()         {}

// MissingBranch returns the branch guarded by a MissingPredicate, if any.
func (n *DecisionNode) MissingBranch() (Branch, bool) {
	for _, b := range n.Branches {
		if _, ok := b.Predicate.(MissingPredicate); ok {
			return b, true
		}
	}
	return Branch{}, false
}

// Prediction is the content of a leaf for one output property.
type Prediction struct {
	PredictedValue    any                `json:"predicted_value"`
	Confidence        *float64           `json:"confidence,omitempty"`
	StandardDeviation *float64           `json:"standard_deviation,omitempty"`
	Distribution      map[string]float64 `json:"distribution,omitempty"`
	NbSamples         *int64             `json:"nb_samples,omitempty"`
}

// Weight returns the sample count backing the prediction, or 1 when unknown.
func (p Prediction) Weight() float64 {
	if p.NbSamples != nil && *p.NbSamples > 0 {
		return float64(*p.NbSamples)
	}
	return 1
}

// Tree is a parsed, immutable decision tree.
// Roots holds one root per output; when the source document has a single
// shared root every output maps to the same Node.
type Tree struct {
	Version       string
	Configuration Configuration
	Roots         map[string]Node
}

// Root returns the root node used to predict output.
func (t *Tree) Root(output string) (Node, error) {
	if t == nil {
		return nil, &MalformedTreeError{Reason: "tree is nil"}
	}
	n, ok := t.Roots[output]
	if !ok || n == nil {
		return nil, &MalformedTreeError{Path: "trees." + output, Reason: fmt.Sprintf("no root for output %q", output)}
	}
	return n, nil
}

// Generator combines the trees of several agents at decision time.
// An empty Filter accepts every agent.
type Generator struct {
	Filter        []string      `json:"filter,omitempty"`
	Configuration Configuration `json:"configuration"`
}

// Accepts reports whether agentID passes the generator filter.
func (g Generator) Accepts(agentID string) bool {
	if len(g.Filter) == 0 {
		return true
	}
	for _, id := range g.Filter {
		if id == agentID {
			return true
		}
	}
	return false
}

// AgentTree is a tree fetched for one agent of a generator. Err is set
// when the tree could not be fetched; such an agent is reported as failed.
type AgentTree struct {
	AgentID string
	Tree    *Tree
	Err     error
}
