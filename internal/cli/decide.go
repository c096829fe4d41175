package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/runner"
)

// DecideOptions selects what a single decision runs against.
// Exactly one of TreeID and GeneratorPath is set.
type DecideOptions struct {
	TreeID        string
	GeneratorPath string
	Context       domain.Context
	Time          *domain.Time
	JSON          bool
	Rich          bool
}

// RunDecide evaluates one context and writes the decision to out.
func RunDecide(ctx context.Context, engine *arbor.Engine, opts DecideOptions, out io.Writer) error {
	decision, cfg, err := decideOnce(ctx, engine, opts)
	if err != nil {
		return err
	}
	return writeDecision(out, decision, cfg, opts)
}

func decideOnce(ctx context.Context, engine *arbor.Engine, opts DecideOptions) (*domain.Decision, domain.Configuration, error) {
	switch {
	case opts.TreeID != "" && opts.GeneratorPath != "":
		return nil, domain.Configuration{}, fmt.Errorf("a tree ID and --generator cannot be used together")
	case opts.GeneratorPath != "":
		gen, err := LoadGenerator(opts.GeneratorPath)
		if err != nil {
			return nil, domain.Configuration{}, err
		}
		d, err := engine.DecideGeneratorByID(ctx, gen, opts.Context, opts.Time)
		return d, gen.Configuration, err
	case opts.TreeID != "":
		tree, err := engine.Tree(ctx, opts.TreeID)
		if err != nil {
			return nil, domain.Configuration{}, err
		}
		d, err := engine.Decide(ctx, tree, opts.Context, opts.Time)
		return d, tree.Configuration, err
	}
	return nil, domain.Configuration{}, fmt.Errorf("a tree ID or --generator is required")
}

func writeDecision(out io.Writer, d *domain.Decision, cfg domain.Configuration, opts DecideOptions) error {
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	if opts.Rich {
		rendered, err := tui.NewRenderer()(tui.ExplanationMarkdown(d, cfg))
		if err == nil {
			_, err = fmt.Fprint(out, rendered)
			return err
		}
	}

	_, err := fmt.Fprintln(out, runner.Explain(runner.Result{Decision: d}, cfg))
	return err
}
