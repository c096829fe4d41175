package validator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
)

// ValidateTree checks the structural invariants of a parsed tree: declared
// outputs and properties, acyclicity, well-formed branch sets whose ranges
// partition the property domain, and leaves predicting their outputs.
// All defects are reported together as a *domain.MalformedTreeError.
func ValidateTree(tree *domain.Tree) error {
	if tree == nil {
		return &domain.MalformedTreeError{Reason: "tree is nil"}
	}

	v := &walker{cfg: tree.Configuration}
	v.configuration()

	for _, output := range tree.Configuration.Output {
		root, ok := tree.Roots[output]
		if !ok || root == nil {
			v.fail("trees."+output, "no root for output %q", output)
			continue
		}
		v.walk(root, "trees."+output, output, map[domain.Node]bool{})
	}

	return v.err()
}

// ValidateConfiguration checks a configuration on its own: known property
// types, a non-empty output list whose outputs are declared in the context,
// and a non-negative time quantum.
func ValidateConfiguration(cfg domain.Configuration) error {
	v := &walker{cfg: cfg}
	v.configuration()
	return v.err()
}

type walker struct {
	cfg  domain.Configuration
	errs []error
}

func (v *walker) err() error {
	switch len(v.errs) {
	case 0:
		return nil
	case 1:
		return v.errs[0]
	}
	return &domain.MalformedTreeError{
		Reason: fmt.Sprintf("found %d errors", len(v.errs)),
		Err:    errors.Join(v.errs...),
	}
}

func (v *walker) fail(path, format string, args ...any) {
	v.errs = append(v.errs, &domain.MalformedTreeError{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func (v *walker) configuration() {
	for _, name := range v.cfg.Names() {
		if p := v.cfg.Context[name]; !p.Type.Valid() {
			v.fail("configuration.context."+name, "unknown type %q", p.Type)
		}
	}
	if len(v.cfg.Output) == 0 {
		v.fail("configuration.output", "at least one output is required")
	}
	for _, output := range v.cfg.Output {
		if _, ok := v.cfg.Context[output]; !ok {
			v.fail("configuration.output", "output %q is not declared in the context", output)
		}
	}
	if v.cfg.TimeQuantum < 0 {
		v.fail("configuration.time_quantum", "must not be negative, got %d", v.cfg.TimeQuantum)
	}
}

// walk visits the subtree rooted at n. onPath holds the ancestors of n so
// that shared subtrees are accepted while cycles are rejected.
func (v *walker) walk(n domain.Node, path, output string, onPath map[domain.Node]bool) {
	if onPath[n] {
		v.fail(path, "cycle detected")
		return
	}
	onPath[n] = true
	defer delete(onPath, n)

	switch node := n.(type) {
	case *domain.Leaf:
		v.leaf(node, path, output)
	case *domain.DecisionNode:
		v.decision(node, path)
		for i, b := range node.Branches {
			if b.Child == nil {
				v.fail(fmt.Sprintf("%s.children[%d]", path, i), "branch has no child")
				continue
			}
			v.walk(b.Child, fmt.Sprintf("%s.children[%d]", path, i), output, onPath)
		}
	default:
		v.fail(path, "unknown node %T", n)
	}
}

func (v *walker) leaf(l *domain.Leaf, path, output string) {
	if l == nil {
		v.fail(path, "leaf is nil")
		return
	}
	if _, ok := l.Predictions[output]; !ok {
		v.fail(path, "leaf has no prediction for output %q", output)
	}
	for name := range l.Predictions {
		if !contains(v.cfg.Output, name) {
			v.fail(path, "leaf predicts undeclared output %q", name)
		}
	}
}

func (v *walker) decision(n *domain.DecisionNode, path string) {
	prop, declared := v.cfg.Property(n.Property)
	if !declared {
		v.fail(path, "property %q is not declared in the configuration", n.Property)
		return
	}
	if len(n.Branches) == 0 {
		v.fail(path, "decision node on %q has no branches", n.Property)
		return
	}

	var (
		ranges     []domain.RangePredicate
		equalities []any
		missing    int
	)
	for i, b := range n.Branches {
		bpath := fmt.Sprintf("%s.children[%d]", path, i)
		switch p := b.Predicate.(type) {
		case domain.RangePredicate:
			if !prop.Type.IsNumeric() {
				v.fail(bpath, "range rule on %s property %q", prop.Type, n.Property)
				continue
			}
			if p.Wraps() && !prop.Type.IsPeriodic() {
				v.fail(bpath, "empty interval [%v, %v[ on %q", p.Lower, p.Upper, n.Property)
				continue
			}
			ranges = append(ranges, p)
		case domain.EqualityPredicate:
			for _, seen := range equalities {
				if domain.ValuesEqual(seen, p.Value) {
					v.fail(bpath, "duplicate rule %q is %v", n.Property, p.Value)
				}
			}
			equalities = append(equalities, p.Value)
		case domain.MissingPredicate:
			missing++
		case nil:
			v.fail(bpath, "branch has no predicate")
		default:
			v.fail(bpath, "unknown predicate %T", p)
		}
	}

	if missing > 1 {
		v.fail(path, "%d missing branches on %q, at most one is allowed", missing, n.Property)
	}
	if len(ranges) > 0 && len(equalities) > 0 {
		v.fail(path, "node on %q mixes range and equality rules", n.Property)
	}
	if len(ranges) > 0 {
		if reason := partition(ranges, prop.Type); reason != "" {
			v.fail(path, "ranges on %q %s", n.Property, reason)
		}
	}
}

// partition checks that the intervals cover the domain of t exactly once.
// Wrapping intervals are split at the end of the periodic domain.
func partition(ranges []domain.RangePredicate, t domain.PropertyType) string {
	lo, hi, _ := t.Domain()

	var parts []domain.RangePredicate
	for _, r := range ranges {
		if r.Wraps() {
			parts = append(parts,
				domain.RangePredicate{Lower: r.Lower, Upper: hi},
				domain.RangePredicate{Lower: lo, Upper: r.Upper})
			continue
		}
		parts = append(parts, domain.RangePredicate{Lower: math.Max(r.Lower, lo), Upper: math.Min(r.Upper, hi)})
	}
	sort.SliceStable(parts, func(i, j int) bool {
		if parts[i].Lower == parts[j].Lower {
			return parts[i].Upper < parts[j].Upper
		}
		return parts[i].Lower < parts[j].Lower
	})

	cursor := lo
	for _, p := range parts {
		if p.Lower >= p.Upper {
			if p.Lower > p.Upper {
				return fmt.Sprintf("contain an empty interval [%v, %v[", p.Lower, p.Upper)
			}
			continue
		}
		switch {
		case p.Lower > cursor:
			return fmt.Sprintf("leave a gap [%v, %v[", cursor, p.Lower)
		case p.Lower < cursor:
			return fmt.Sprintf("overlap on [%v, %v[", p.Lower, math.Min(cursor, p.Upper))
		}
		cursor = p.Upper
	}
	if cursor < hi {
		return fmt.Sprintf("leave a gap [%v, %v[", cursor, hi)
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
