package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// GraphOverlay marks the path a decision took through the tree.
type GraphOverlay struct {
	// Path holds, per output, the decision rules followed from the root.
	Path map[string][]domain.DecisionRule
}

// OverlayFromDecision builds an overlay from the rules of a single-tree decision.
func OverlayFromDecision(d *domain.Decision) *GraphOverlay {
	if d == nil {
		return nil
	}
	o := &GraphOverlay{Path: make(map[string][]domain.DecisionRule, len(d.Output))}
	for output, od := range d.Output {
		o.Path[output] = od.DecisionRules
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of every output tree.
// It applies semantic styling:
// - Output root: ((Circle))
// - Decision node: {Rhombus} labelled with the tested property
// - Leaf: [Rectangle] labelled with the prediction
// Edges carry the branch rule in words. When an overlay is given, the nodes
// on the decision path are styled as visited and the reached leaf as current.
func GenerateMermaid(tree *domain.Tree, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if tree == nil {
		return sb.String()
	}

	var visited, current []string
	for _, output := range tree.Configuration.Output {
		root, err := tree.Root(output)
		if err != nil {
			continue
		}
		w := &writer{
			sb:     &sb,
			cfg:    tree.Configuration,
			output: output,
			prefix: sanitizeMermaidID(output),
		}
		if overlay != nil {
			if path, ok := overlay.Path[output]; ok {
				w.path = path
				w.tracking = true
			}
		}

		rootID := w.prefix
		sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", rootID, escape(output)))
		child := w.node(root, 0, w.tracking)
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", rootID, child))

		visited = append(visited, w.visited...)
		if w.current != "" {
			visited = append(visited, rootID)
			current = append(current, w.current)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, id := range visited {
			sb.WriteString(fmt.Sprintf("    class %s visited;\n", id))
		}
		for _, id := range current {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", id))
		}
	}

	return sb.String()
}

// writer emits the nodes of one output tree.
type writer struct {
	sb       *strings.Builder
	cfg      domain.Configuration
	output   string
	prefix   string
	next     int
	path     []domain.DecisionRule
	tracking bool
	visited  []string
	current  string
}

// node writes n and its subtree and returns the Mermaid ID of n. onPath
// reports whether every branch from the root down to n follows the overlay.
func (w *writer) node(n domain.Node, depth int, onPath bool) string {
	id := w.prefix + "_" + strconv.Itoa(w.next)
	w.next++

	switch node := n.(type) {
	case *domain.Leaf:
		w.sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", id, escape(leafLabel(node.Predictions[w.output]))))
		if onPath && depth == len(w.path) {
			w.current = id
		}
	case *domain.DecisionNode:
		w.sb.WriteString(fmt.Sprintf("    %s{\"%s\"}\n", id, escape(node.Property)))
		if onPath {
			w.visited = append(w.visited, id)
		}
		t := w.cfg.Context[node.Property].Type
		for _, b := range node.Branches {
			rule := b.Predicate.Rule(node.Property)
			follows := onPath && depth < len(w.path) && sameRule(rule, w.path[depth])
			child := w.node(b.Child, depth+1, follows)
			w.sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", id, escape(domain.FormatRule(rule, t)), child))
		}
	}
	return id
}

func leafLabel(p domain.Prediction) string {
	label := fmt.Sprint(p.PredictedValue)
	if p.Confidence != nil {
		label += fmt.Sprintf(" (%.2f)", *p.Confidence)
	}
	return label
}

func sameRule(a, b domain.DecisionRule) bool {
	return a.Property == b.Property && a.Operator == b.Operator && fmt.Sprint(a.Operand) == fmt.Sprint(b.Operand)
}

// escape replaces double quotes, which end Mermaid labels.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
