package arbor

import (
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
)

// OutputInfo summarizes the tree predicting one output.
type OutputInfo struct {
	Output     string   `json:"output"`
	Type       string   `json:"type"`
	Properties []string `json:"properties"`
	Depth      int      `json:"depth"`
	Leaves     int      `json:"leaves"`
}

// TreeInfo is the introspection summary of a parsed tree. Schema maps each
// context property to its type and encodes as {"speed": "continuous", ...}.
type TreeInfo struct {
	Version string        `json:"version"`
	Context []string      `json:"context"`
	Schema  schema.Schema `json:"schema"`
	Outputs []OutputInfo  `json:"outputs"`
}

// Inspect summarizes a parsed tree: for each output, the properties its
// tree tests, its depth and its leaf count.
func (e *Engine) Inspect(tree *domain.Tree) (TreeInfo, error) {
	return Inspect(tree)
}

// Inspect summarizes a parsed tree. See Engine.Inspect.
func Inspect(tree *domain.Tree) (TreeInfo, error) {
	if tree == nil {
		return TreeInfo{}, &domain.MalformedTreeError{Reason: "tree is nil"}
	}
	types, err := schema.FromConfiguration(tree.Configuration)
	if err != nil {
		return TreeInfo{}, &domain.MalformedTreeError{Path: "configuration.context", Reason: "unsupported property type", Err: err}
	}
	info := TreeInfo{
		Version: tree.Version,
		Context: tree.Configuration.Names(),
		Schema:  types,
		Outputs: make([]OutputInfo, 0, len(tree.Configuration.Output)),
	}
	for _, output := range tree.Configuration.Output {
		root, err := tree.Root(output)
		if err != nil {
			return TreeInfo{}, err
		}
		tested := make(map[string]bool)
		out := OutputInfo{Output: output, Type: string(tree.Configuration.Context[output].Type)}
		walk(root, 0, func(n domain.Node, depth int) {
			if depth > out.Depth {
				out.Depth = depth
			}
			switch node := n.(type) {
			case *domain.DecisionNode:
				tested[node.Property] = true
			case *domain.Leaf:
				out.Leaves++
			}
		})
		out.Properties = make([]string, 0, len(tested))
		for p := range tested {
			out.Properties = append(out.Properties, p)
		}
		sort.Strings(out.Properties)
		info.Outputs = append(info.Outputs, out)
	}
	return info, nil
}

// walk visits n and its descendants depth first. Parsed trees are acyclic.
func walk(n domain.Node, depth int, visit func(domain.Node, int)) {
	visit(n, depth)
	if node, ok := n.(*domain.DecisionNode); ok {
		for _, b := range node.Branches {
			walk(b.Child, depth+1, visit)
		}
	}
}
