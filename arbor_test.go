package arbor_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
)

const lampTree = `{
  "_version": "1.1.0",
  "configuration": {
    "context": {
      "presence": {"type": "enum"},
      "tod": {"type": "time_of_day"},
      "color": {"type": "enum"}
    },
    "output": ["color"],
    "time_quantum": 3600
  },
  "trees": {"color": {"children": [
    {"decision_rule": {"property": "presence", "operator": "is", "operand": "home"}, "children": [
      {"decision_rule": {"property": "tod", "operator": "[in[", "operand": [7, 20]}, "predicted_value": "white"},
      {"decision_rule": {"property": "tod", "operator": "[in[", "operand": [20, 7]}, "predicted_value": "orange"}
    ]},
    {"decision_rule": {"property": "presence", "operator": "is", "operand": null}, "predicted_value": "off"}
  ]}}
}`

func TestFacade_Integration(t *testing.T) {
	// 0. Setup Temp Repo
	repoPath := t.TempDir()
	if err := os.WriteFile(filepath.Join(repoPath, "lamp.json"), []byte(lampTree), 0644); err != nil {
		t.Fatal(err)
	}

	// 1. Test Initialization
	engine, err := arbor.New(repoPath)
	if err != nil {
		t.Fatalf("Failed to initialize engine with path %s: %v", repoPath, err)
	}
	if engine.Name != filepath.Base(repoPath) {
		t.Errorf("Expected engine name %q, got %q", filepath.Base(repoPath), engine.Name)
	}

	ctx := context.Background()
	ids, err := engine.ListTrees(ctx)
	if err != nil {
		t.Fatalf("ListTrees failed: %v", err)
	}
	if strings.Join(ids, ",") != "lamp" {
		t.Errorf("Expected [lamp], got %v", ids)
	}

	// 2. Decide at 21:22 local time
	tm, err := domain.NewTime(1489998174, "+13:00")
	if err != nil {
		t.Fatal(err)
	}
	d, err := engine.DecideByID(ctx, "lamp", domain.Context{"presence": "home"}, &tm)
	if err != nil {
		t.Fatalf("DecideByID failed: %v", err)
	}
	if got := d.Value("color"); got != "orange" {
		t.Errorf("Expected 'orange', got %v", got)
	}
	if got := d.Context["tod"]; got != 21.0 {
		t.Errorf("Expected tod 21, got %v", got)
	}

	// 3. Missing presence follows the missing branch
	d, err = engine.DecideByID(ctx, "lamp", domain.Context{}, &tm)
	if err != nil {
		t.Fatalf("DecideByID failed: %v", err)
	}
	if got := d.Value("color"); got != "off" {
		t.Errorf("Expected 'off', got %v", got)
	}

	// 4. Unknown trees surface the loader error
	_, err = engine.DecideByID(ctx, "ghost", domain.Context{}, nil)
	if !errors.Is(err, domain.ErrTreeNotFound) {
		t.Errorf("Expected ErrTreeNotFound, got %v", err)
	}
}

func TestFacade_WithoutLoader(t *testing.T) {
	engine, err := arbor.New("")
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := engine.DecideByID(ctx, "lamp", nil, nil); !errors.Is(err, arbor.ErrNoLoader) {
		t.Errorf("Expected ErrNoLoader, got %v", err)
	}
	if _, err := engine.ListTrees(ctx); !errors.Is(err, arbor.ErrNoLoader) {
		t.Errorf("Expected ErrNoLoader, got %v", err)
	}
	if _, err := engine.Watch(ctx); err == nil {
		t.Error("Expected Watch to fail without a loader")
	}

	tree, err := engine.Parse([]byte(lampTree))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	d, err := engine.Decide(ctx, tree, domain.Context{"presence": "home", "tod": 8}, nil)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if got := d.Value("color"); got != "white" {
		t.Errorf("Expected 'white', got %v", got)
	}
}

func TestFacade_DecideGeneratorByID(t *testing.T) {
	loader := memory.NewLoader(map[string]string{
		"a": `{"configuration": {"context": {"t": {"type": "continuous"}}, "output": ["t"]}, "trees": {"t": {"predicted_value": 10}}}`,
		"b": `{"configuration": {"context": {"t": {"type": "continuous"}}, "output": ["t"]}, "trees": {"t": {"predicted_value": 20}}}`,
		"c": `{"configuration": {"context": {"t": {"type": "continuous"}}, "output": ["t"]}, "trees": {"t": {"predicted_value": 90}}}`,
	})
	engine, err := arbor.New("", arbor.WithLoader(loader))
	if err != nil {
		t.Fatal(err)
	}

	var cfg domain.Configuration
	cfg.Set("t", domain.Property{Type: domain.TypeContinuous})
	cfg.Output = []string{"t"}
	gen := domain.Generator{Filter: []string{"a", "b", "missing"}, Configuration: cfg}

	d, err := engine.DecideGeneratorByID(context.Background(), gen, domain.Context{}, nil)
	if err != nil {
		t.Fatalf("DecideGeneratorByID failed: %v", err)
	}
	if got := d.Value("t"); got != 15.0 {
		t.Errorf("Expected 15, got %v", got)
	}

	status := map[string]domain.AgentStatus{}
	for _, a := range d.Agents {
		status[a.AgentID] = a.Status
	}
	want := map[string]domain.AgentStatus{
		"a":       domain.AgentContributed,
		"b":       domain.AgentContributed,
		"c":       domain.AgentFiltered,
		"missing": domain.AgentFailed,
	}
	for id, s := range want {
		if status[id] != s {
			t.Errorf("agent %s: expected %s, got %s", id, s, status[id])
		}
	}
}

func TestFacade_BatchPreservesOrder(t *testing.T) {
	engine, err := arbor.New("", arbor.WithConcurrency(3))
	if err != nil {
		t.Fatal(err)
	}
	tree, err := engine.Parse([]byte(lampTree))
	if err != nil {
		t.Fatal(err)
	}

	rows := []arbor.Row{
		{Context: domain.Context{"presence": "home", "tod": 8}},
		{Context: domain.Context{"presence": "home", "tod": 22}},
		{Context: domain.Context{"presence": 3}},
		{Context: domain.Context{}},
	}
	results := engine.DecideBatch(context.Background(), engine.ForTree(tree), rows)

	want := []any{"white", "orange", nil, "off"}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("row %d: reported index %d", i, r.Index)
		}
		if want[i] == nil {
			if !errors.Is(r.Err, domain.ErrInvalidContext) {
				t.Errorf("row %d: expected ErrInvalidContext, got %v", i, r.Err)
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("row %d: unexpected error %v", i, r.Err)
			continue
		}
		if got := r.Decision.Value("color"); got != want[i] {
			t.Errorf("row %d: expected %v, got %v", i, want[i], got)
		}
	}
}

func TestFacade_MetricsAndCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	store := memory.NewStore()
	ctx := context.Background()
	if err := store.SaveTree(ctx, "lamp", []byte(lampTree)); err != nil {
		t.Fatal(err)
	}

	engine, err := arbor.New("", arbor.WithLoader(store), arbor.WithMetrics(metrics))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if _, err := engine.DecideByID(ctx, "lamp", domain.Context{}, nil); err != nil {
			t.Fatalf("DecideByID failed: %v", err)
		}
	}

	if err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP arbor_tree_cache_requests_total Parsed-tree cache lookups by result.
# TYPE arbor_tree_cache_requests_total counter
arbor_tree_cache_requests_total{result="hit"} 2
arbor_tree_cache_requests_total{result="miss"} 1
`), "arbor_tree_cache_requests_total"); err != nil {
		t.Error(err)
	}
	if err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP arbor_decisions_total Total output decisions by outcome.
# TYPE arbor_decisions_total counter
arbor_decisions_total{outcome="ok"} 3
`), "arbor_decisions_total"); err != nil {
		t.Error(err)
	}
}

func TestFacade_FollowInvalidatesCache(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := store.SaveTree(ctx, "lamp", []byte(lampTree)); err != nil {
		t.Fatal(err)
	}

	engine, err := arbor.New("", arbor.WithLoader(store))
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Follow(ctx); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	d, err := engine.DecideByID(ctx, "lamp", domain.Context{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Value("color"); got != "off" {
		t.Fatalf("Expected 'off', got %v", got)
	}

	updated := strings.Replace(lampTree, `"predicted_value": "off"`, `"predicted_value": "dim"`, 1)
	if err := store.SaveTree(ctx, "lamp", []byte(updated)); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		d, err := engine.DecideByID(ctx, "lamp", domain.Context{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if d.Value("color") == "dim" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cache was not invalidated after the tree changed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestInspect(t *testing.T) {
	engine, err := arbor.New("")
	if err != nil {
		t.Fatal(err)
	}
	tree, err := engine.Parse([]byte(lampTree))
	if err != nil {
		t.Fatal(err)
	}

	info, err := engine.Inspect(tree)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Version != "1.1.0" {
		t.Errorf("Expected version 1.1.0, got %q", info.Version)
	}
	if len(info.Outputs) != 1 {
		t.Fatalf("Expected 1 output, got %d", len(info.Outputs))
	}
	out := info.Outputs[0]
	if out.Output != "color" || out.Type != "enum" {
		t.Errorf("Unexpected output summary %+v", out)
	}
	if strings.Join(out.Properties, ",") != "presence,tod" {
		t.Errorf("Expected tested properties presence,tod, got %v", out.Properties)
	}
	if out.Depth != 2 || out.Leaves != 3 {
		t.Errorf("Expected depth 2 and 3 leaves, got depth %d and %d leaves", out.Depth, out.Leaves)
	}
	if got := info.Schema["tod"]; got == nil || got.Name() != "time_of_day" {
		t.Errorf("Expected tod to be time_of_day in the schema, got %v", got)
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"schema":{"color":"enum","presence":"enum","tod":"time_of_day"}`) {
		t.Errorf("Unexpected encoded schema in %s", data)
	}

	if _, err := arbor.Inspect(nil); !errors.Is(err, domain.ErrMalformedTree) {
		t.Errorf("Expected ErrMalformedTree for nil tree, got %v", err)
	}
}
