package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/runner"
)

// BatchOptions configures a streaming batch run.
type BatchOptions struct {
	TreeID        string
	GeneratorPath string
	JSON          bool
	Rich          bool
	ChunkSize     int
	RequestID     string
}

// RunBatch decides every NDJSON row read from in and writes one result per
// row to out, in input order. Failed rows are reported, not fatal.
func RunBatch(ctx context.Context, engine *arbor.Engine, opts BatchOptions, in io.Reader, out io.Writer, logger *slog.Logger) (runner.Summary, error) {
	decide, cfg, err := batchTarget(ctx, engine, opts)
	if err != nil {
		return runner.Summary{}, err
	}

	requestID := opts.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var handler runner.Handler
	if opts.JSON {
		handler = runner.NewJSONHandler(out)
	} else {
		var textOpts []runner.TextHandlerOption
		if opts.Rich {
			textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}
		handler = runner.NewTextHandler(out, cfg, textOpts...)
	}

	r := runner.NewRunner(runner.ForEngine(engine, decide),
		runner.WithLogger(logger),
		runner.WithHandler(handler),
		runner.WithChunkSize(opts.ChunkSize),
		runner.WithRequestID(requestID),
	)

	logger.Info("Batch started", "request_id", requestID, "tree", opts.TreeID, "generator", opts.GeneratorPath)
	summary, err := r.Run(ctx, in)
	logger.Info("Batch finished", "request_id", requestID, "rows", summary.Rows, "failed", summary.Failed, "err", err)
	return summary, handleExecutionError(err)
}

// batchTarget loads the tree or generator agents once for the whole run.
func batchTarget(ctx context.Context, engine *arbor.Engine, opts BatchOptions) (arbor.DecideFunc, domain.Configuration, error) {
	switch {
	case opts.TreeID != "" && opts.GeneratorPath != "":
		return nil, domain.Configuration{}, fmt.Errorf("a tree ID and --generator cannot be used together")
	case opts.GeneratorPath != "":
		gen, err := LoadGenerator(opts.GeneratorPath)
		if err != nil {
			return nil, domain.Configuration{}, err
		}
		agents, err := engine.Agents(ctx, gen)
		if err != nil {
			return nil, domain.Configuration{}, err
		}
		return engine.ForGenerator(gen, agents), gen.Configuration, nil
	case opts.TreeID != "":
		tree, err := engine.Tree(ctx, opts.TreeID)
		if err != nil {
			return nil, domain.Configuration{}, err
		}
		return engine.ForTree(tree), tree.Configuration, nil
	}
	return nil, domain.Configuration{}, fmt.Errorf("a tree ID or --generator is required")
}
