package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/pkg/domain"
)

// Encode renders a tree as a {_version, configuration, trees} document with
// v1 leaves. Parse(Encode(t)) yields a tree equivalent to t. Subtrees shared
// between outputs are written once per output.
func Encode(tree *domain.Tree) ([]byte, error) {
	if tree == nil {
		return nil, &domain.MalformedTreeError{Reason: "tree is nil"}
	}
	version := tree.Version
	if version == "" {
		version = DefaultVersion
	}

	trees := make(map[string]any, len(tree.Configuration.Output))
	for _, output := range tree.Configuration.Output {
		root, err := tree.Root(output)
		if err != nil {
			return nil, err
		}
		doc, err := encodeNode(root, output, "trees."+output, 0)
		if err != nil {
			return nil, err
		}
		trees[output] = doc
	}

	cfg, err := json.Marshal(tree.Configuration)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}

	return json.Marshal(struct {
		Version       string          `json:"_version"`
		Configuration json.RawMessage `json:"configuration"`
		Trees         map[string]any  `json:"trees"`
	}{version, cfg, trees})
}

func encodeNode(n domain.Node, output, path string, depth int) (map[string]any, error) {
	if depth > maxEncodeDepth {
		return nil, &domain.MalformedTreeError{Path: path, Reason: "tree is too deep or cyclic"}
	}
	switch node := n.(type) {
	case *domain.Leaf:
		p, ok := node.Predictions[output]
		if !ok {
			return nil, &domain.MalformedTreeError{Path: path, Reason: fmt.Sprintf("leaf has no prediction for %q", output)}
		}
		return encodeLeaf(p), nil
	case *domain.DecisionNode:
		children := make([]map[string]any, 0, len(node.Branches))
		for i, b := range node.Branches {
			childPath := fmt.Sprintf("%s.children[%d]", path, i)
			child, err := encodeNode(b.Child, output, childPath, depth+1)
			if err != nil {
				return nil, err
			}
			rule := b.Predicate.Rule(node.Property)
			child["decision_rule"] = dto.RuleDocument{Property: rule.Property, Operator: rule.Operator, Operand: rule.Operand}
			children = append(children, child)
		}
		return map[string]any{"children": children}, nil
	}
	return nil, &domain.MalformedTreeError{Path: path, Reason: fmt.Sprintf("unknown node %T", n)}
}

func encodeLeaf(p domain.Prediction) map[string]any {
	doc := map[string]any{"predicted_value": p.PredictedValue}
	if p.Confidence != nil {
		doc["confidence"] = *p.Confidence
	}
	if p.StandardDeviation != nil {
		doc["standard_deviation"] = *p.StandardDeviation
	}
	if p.NbSamples != nil {
		doc["nb_samples"] = *p.NbSamples
	}
	if len(p.Distribution) > 0 {
		doc["distribution"] = p.Distribution
	}
	return doc
}

// maxEncodeDepth bounds recursion on malformed, cyclic trees.
const maxEncodeDepth = 4096
