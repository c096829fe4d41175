package dsl

import (
	"math"

	"github.com/aretw0/arbor/pkg/domain"
)

// Node is a subtree under construction: a *LeafBuilder or a *SplitBuilder.
type Node interface {
	build(output string) domain.Node
}

// LeafBuilder provides a fluent API for configuring a leaf.
type LeafBuilder struct {
	pred domain.Prediction
}

// Leaf starts a leaf predicting value.
func Leaf(value any) *LeafBuilder {
	return &LeafBuilder{pred: domain.Prediction{PredictedValue: value}}
}

// Confidence sets the confidence of the prediction.
func (l *LeafBuilder) Confidence(c float64) *LeafBuilder {
	l.pred.Confidence = &c
	return l
}

// StandardDeviation sets the spread of a continuous prediction.
func (l *LeafBuilder) StandardDeviation(sd float64) *LeafBuilder {
	l.pred.StandardDeviation = &sd
	return l
}

// Samples sets the number of training samples behind the leaf.
func (l *LeafBuilder) Samples(n int64) *LeafBuilder {
	l.pred.NbSamples = &n
	return l
}

// Distribution sets the probability mass of each categorical value.
func (l *LeafBuilder) Distribution(masses map[string]float64) *LeafBuilder {
	l.pred.Distribution = masses
	return l
}

func (l *LeafBuilder) build(output string) domain.Node {
	return &domain.Leaf{Predictions: map[string]domain.Prediction{output: l.pred}}
}

// SplitBuilder is a decision node testing one property.
type SplitBuilder struct {
	property string
	branches []BranchBuilder
}

// BranchBuilder pairs a predicate with its subtree.
type BranchBuilder struct {
	predicate domain.Predicate
	child     Node
}

// Split creates a decision node on property. Branches are tried in order.
func Split(property string, branches ...BranchBuilder) *SplitBuilder {
	return &SplitBuilder{property: property, branches: branches}
}

func (s *SplitBuilder) build(output string) domain.Node {
	n := &domain.DecisionNode{Property: s.property, Branches: make([]domain.Branch, len(s.branches))}
	for i, b := range s.branches {
		n.Branches[i] = domain.Branch{Predicate: b.predicate, Child: b.child.build(output)}
	}
	return n
}

// Less matches values below upper.
func Less(upper float64, child Node) BranchBuilder {
	return BranchBuilder{predicate: domain.RangePredicate{Lower: math.Inf(-1), Upper: upper}, child: child}
}

// AtLeast matches values at or above lower.
func AtLeast(lower float64, child Node) BranchBuilder {
	return BranchBuilder{predicate: domain.RangePredicate{Lower: lower, Upper: math.Inf(1)}, child: child}
}

// Between matches values in [lower, upper). On periodic properties lower may
// exceed upper to wrap around, e.g. Between(22, 6, ...) on time_of_day.
func Between(lower, upper float64, child Node) BranchBuilder {
	return BranchBuilder{predicate: domain.RangePredicate{Lower: lower, Upper: upper}, child: child}
}

// Is matches a value exactly.
func Is(value any, child Node) BranchBuilder {
	return BranchBuilder{predicate: domain.EqualityPredicate{Value: value}, child: child}
}

// Missing matches an absent or null value.
func Missing(child Node) BranchBuilder {
	return BranchBuilder{predicate: domain.MissingPredicate{}, child: child}
}
