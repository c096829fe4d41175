package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
)

func speedTree(t *testing.T) *domain.Tree {
	t.Helper()
	b := dsl.New().
		Context("speed", domain.TypeContinuous).
		Context("road-type", domain.TypeEnum).
		Output("road-type")
	b.Tree("road-type", dsl.Split("speed",
		dsl.Less(50, dsl.Leaf("city").Confidence(0.75)),
		dsl.AtLeast(50, dsl.Leaf(`"highway"`)),
	))
	tree, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return tree
}

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(speedTree(t), nil)

	contains := []string{
		"graph TD\n",
		`road_type(("road-type"))`,
		`road_type --> road_type_0`,
		`road_type_0{"speed"}`,
		`road_type_1["city (0.75)"]`,
		`road_type_0 -- "speed is less than 50" --> road_type_1`,
		`road_type_2["'highway'"]`,
		`road_type_0 -- "speed is at least 50" --> road_type_2`,
	}
	for _, want := range contains {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	if strings.Contains(got, "classDef") {
		t.Error("Expected no overlay styles without an overlay")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	tree := speedTree(t)
	decision := &domain.Decision{Output: map[string]domain.OutputDecision{
		"road-type": {DecisionRules: []domain.DecisionRule{{Property: "speed", Operator: domain.OpGreaterEqual, Operand: 50.0}}},
	}}

	got := graph.GenerateMermaid(tree, graph.OverlayFromDecision(decision))

	contains := []string{
		"class road_type visited;",
		"class road_type_0 visited;",
		"class road_type_2 current;",
	}
	for _, want := range contains {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	if strings.Contains(got, "class road_type_1") {
		t.Error("The branch not taken must not be styled")
	}
}

func TestGenerateMermaid_NilTree(t *testing.T) {
	if got := graph.GenerateMermaid(nil, nil); got != "graph TD\n" {
		t.Errorf("Expected an empty graph, got %q", got)
	}
}
