package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/arbor"
)

// reloadDelay lets the file system settle before a changed tree is re-read.
const reloadDelay = 100 * time.Millisecond

// RunWatch decides once, then decides again every time a tree the decision
// depends on changes, until ctx is done. Evaluation errors are printed and
// the watcher keeps waiting for a fix.
func RunWatch(ctx context.Context, engine *arbor.Engine, opts DecideOptions, out io.Writer, logger *slog.Logger) error {
	events, err := engine.Watch(ctx)
	if err != nil {
		return err
	}

	logger.Info("Starting Watcher", "tree", opts.TreeID, "generator", opts.GeneratorPath)
	decideAndReport(ctx, engine, opts, out)
	printSystemMessage(out, "Waiting for changes...")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher")
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			engine.Invalidate(id)
			if opts.TreeID != "" && id != opts.TreeID {
				logger.Debug("Ignoring change", "tree", id)
				continue
			}

			logger.Info("Change detected, deciding again", "tree", id)
			printSystemMessage(out, "Change detected in '%s'.", id)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(reloadDelay):
			}
			engine.Invalidate(id)
			decideAndReport(ctx, engine, opts, out)
		}
	}
}

func decideAndReport(ctx context.Context, engine *arbor.Engine, opts DecideOptions, out io.Writer) {
	d, cfg, err := decideOnce(ctx, engine, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if err := writeDecision(out, d, cfg, opts); err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
	}
}
