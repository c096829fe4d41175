package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// MaxDepth bounds a descent so that a cyclic tree built in memory cannot loop forever.
const MaxDepth = 4096

// evaluate descends the tree once per declared output, in declaration order.
// The first failing output aborts the decision.
func (e *Engine) evaluate(ctx context.Context, tree *domain.Tree, c domain.Context, agentID string) (map[string]domain.OutputDecision, error) {
	out := make(map[string]domain.OutputDecision, len(tree.Configuration.Output))
	for _, output := range tree.Configuration.Output {
		root, err := tree.Root(output)
		if err != nil {
			e.emitDecision(ctx, output, agentID, 0, err)
			return nil, err
		}

		pred, rules, depth, err := e.descend(ctx, tree.Configuration, root, c, output)
		e.emitDecision(ctx, output, agentID, depth, err)
		if err != nil {
			return nil, err
		}
		out[output] = domain.OutputDecision{Prediction: pred, DecisionRules: rules}
	}
	return out, nil
}

// descend walks from root to a leaf and returns the leaf's prediction for
// output together with the rules satisfied on the way.
func (e *Engine) descend(ctx context.Context, cfg domain.Configuration, root domain.Node, c domain.Context, output string) (domain.Prediction, []domain.DecisionRule, int, error) {
	var rules []domain.DecisionRule
	node := root

	for depth := 0; ; depth++ {
		if depth > MaxDepth {
			return domain.Prediction{}, nil, depth, &domain.MalformedTreeError{
				Path:   "trees." + output,
				Reason: fmt.Sprintf("descent exceeds %d levels, the tree is probably cyclic", MaxDepth),
			}
		}
		e.emitNode(ctx, output, depth, node)

		switch n := node.(type) {
		case *domain.Leaf:
			pred, ok := n.Predictions[output]
			if !ok {
				return domain.Prediction{}, nil, depth, &domain.MalformedTreeError{
					Path:   "trees." + output,
					Reason: fmt.Sprintf("leaf at depth %d has no prediction for %q", depth, output),
				}
			}
			if rules == nil {
				rules = []domain.DecisionRule{}
			}
			return pred, rules, depth, nil

		case *domain.DecisionNode:
			branch, err := selectBranch(cfg, n, c, output)
			if err != nil {
				return domain.Prediction{}, nil, depth, err
			}
			if branch.Child == nil {
				return domain.Prediction{}, nil, depth, &domain.MalformedTreeError{
					Path:   "trees." + output,
					Reason: fmt.Sprintf("branch on %q at depth %d has no child", n.Property, depth),
				}
			}
			rules = append(rules, branch.Predicate.Rule(n.Property))
			node = branch.Child

		default:
			return domain.Prediction{}, nil, depth, &domain.MalformedTreeError{
				Path:   "trees." + output,
				Reason: fmt.Sprintf("unknown node %T", node),
			}
		}
	}
}

// selectBranch picks the branch of n that applies to the context.
// An absent or nil value follows the missing branch; a present value follows
// the first branch whose predicate matches, in declaration order.
func selectBranch(cfg domain.Configuration, n *domain.DecisionNode, c domain.Context, output string) (domain.Branch, error) {
	value, present := c.Lookup(n.Property)
	if !present {
		if b, ok := n.MissingBranch(); ok {
			return b, nil
		}
		return domain.Branch{}, &domain.DecisionError{
			Reason:   domain.ReasonMissingValue,
			Output:   output,
			Property: n.Property,
		}
	}

	periodic := cfg.Context[n.Property].Type.IsPeriodic()
	for _, b := range n.Branches {
		if matches(b.Predicate, value, periodic) {
			return b, nil
		}
	}
	return domain.Branch{}, &domain.DecisionError{
		Reason:   domain.ReasonOutOfDomain,
		Output:   output,
		Property: n.Property,
		Value:    value,
	}
}

func matches(p domain.Predicate, value any, periodic bool) bool {
	switch p := p.(type) {
	case domain.RangePredicate:
		f, ok := domain.ToFloat(value)
		return ok && p.Contains(f, periodic)
	case domain.EqualityPredicate:
		return domain.ValuesEqual(p.Value, value)
	case domain.MissingPredicate:
		return false
	}
	return false
}
