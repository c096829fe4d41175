package domain

import "math"

// Operators used in decision rules, as emitted by the learning service.
const (
	OpLessThan     = "<"
	OpGreaterEqual = ">="
	OpInInterval   = "[in["
	OpIs           = "is"
)

// Predicate guards a branch of a DecisionNode. Implementations are
// RangePredicate, EqualityPredicate and MissingPredicate.
type Predicate interface {
	isPredicate()
	// Rule renders the predicate as the decision rule recorded on the path.
	Rule(property string) DecisionRule
}

// RangePredicate matches numbers in [Lower, Upper). Bounds may be infinite.
// On periodic domains Lower > Upper denotes an interval that wraps around,
// e.g. [22, 2) on time_of_day.
type RangePredicate struct {
	Lower float64
	Upper float64
}

// EqualityPredicate matches a value exactly.
type EqualityPredicate struct {
	Value any
}

// MissingPredicate matches an absent or nil value.
type MissingPredicate struct{}

func (RangePredicate) isPredicate()    {}
func (EqualityPredicate) isPredicate() {}
func (MissingPredicate) isPredicate()  {}

// Wraps reports whether the interval wraps around the end of a periodic domain.
func (p RangePredicate) Wraps() bool {
	return p.Lower > p.Upper
}

// Contains reports whether v lies in the interval. Wrapping intervals are only
// honored when periodic is true.
func (p RangePredicate) Contains(v float64, periodic bool) bool {
	if math.IsNaN(v) {
		return false
	}
	if periodic && p.Wraps() {
		return v >= p.Lower || v < p.Upper
	}
	return p.Lower <= v && v < p.Upper
}

func (p RangePredicate) Rule(property string) DecisionRule {
	switch {
	case math.IsInf(p.Lower, -1):
		return DecisionRule{Property: property, Operator: OpLessThan, Operand: p.Upper}
	case math.IsInf(p.Upper, 1):
		return DecisionRule{Property: property, Operator: OpGreaterEqual, Operand: p.Lower}
	}
	return DecisionRule{Property: property, Operator: OpInInterval, Operand: []float64{p.Lower, p.Upper}}
}

func (p EqualityPredicate) Rule(property string) DecisionRule {
	return DecisionRule{Property: property, Operator: OpIs, Operand: p.Value}
}

func (MissingPredicate) Rule(property string) DecisionRule {
	return DecisionRule{Property: property, Operator: OpIs, Operand: nil}
}

// DecisionRule is one satisfied condition on the path from root to leaf.
// A rule with operator "is" and a nil operand records a missing value.
type DecisionRule struct {
	Property string `json:"property"`
	Operator string `json:"operator"`
	Operand  any    `json:"operand"`
}

// IsMissing reports whether the rule records the missing branch.
func (r DecisionRule) IsMissing() bool {
	return r.Operator == OpIs && r.Operand == nil
}

// Bounds returns the [lower, upper) interval of a numeric rule.
func (r DecisionRule) Bounds() (lower, upper float64, ok bool) {
	switch r.Operator {
	case OpLessThan:
		if u, ok := ToFloat(r.Operand); ok {
			return negInf, u, true
		}
	case OpGreaterEqual:
		if l, ok := ToFloat(r.Operand); ok {
			return l, posInf, true
		}
	case OpInInterval:
		switch b := r.Operand.(type) {
		case []float64:
			if len(b) == 2 {
				return b[0], b[1], true
			}
		case []any:
			if len(b) == 2 {
				l, lok := ToFloat(b[0])
				u, uok := ToFloat(b[1])
				if lok && uok {
					return l, u, true
				}
			}
		}
	}
	return 0, 0, false
}
