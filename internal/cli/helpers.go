package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/arbor/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// printSystemMessage prints a standardized system message to w.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			if e.IsLeaf {
				logger.Debug("Reach Leaf", "output", e.Output, "depth", e.Depth)
				return
			}
			logger.Debug("Enter Node", "output", e.Output, "property", e.Property, "depth", e.Depth)
		},
		OnDecision: func(ctx context.Context, e *domain.DecisionEvent) {
			if e.Err != nil {
				logger.Debug("Decision (Error)", "output", e.Output, "agent", e.AgentID, "err", e.Err)
				return
			}
			logger.Debug("Decision", "output", e.Output, "agent", e.AgentID, "depth", e.Depth)
		},
		OnGenerator: func(ctx context.Context, e *domain.GeneratorEvent) {
			logger.Debug("Generator Merged", "agents", e.Agents, "contributors", e.Contributors, "err", e.Err)
		},
	}
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

// handleExecutionError hides interruptions so that Ctrl+C exits cleanly.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}

// ParseContext decodes a JSON object of context values. Numbers stay
// json.Number so that integers keep their exact value.
func ParseContext(raw string) (domain.Context, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.Context{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var c domain.Context
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("error parsing --context JSON: %w", err)
	}
	if c == nil {
		c = domain.Context{}
	}
	return c, nil
}

// ParseTime builds the decision time from a Unix timestamp and a timezone.
// A zero timestamp means now; with no timezone either, the engine clock
// decides in UTC.
func ParseTime(timestamp int64, timezone string) (*domain.Time, error) {
	if timestamp == 0 && timezone == "" {
		return nil, nil
	}
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}
	var tz any
	if timezone != "" {
		tz = timezone
	}
	t, err := domain.NewTime(timestamp, tz)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadGenerator reads a generator definition from a JSON or YAML file.
// YAML documents do not keep the declaration order of context properties.
func LoadGenerator(path string) (domain.Generator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Generator{}, fmt.Errorf("failed to read generator: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return domain.Generator{}, fmt.Errorf("invalid generator %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return domain.Generator{}, fmt.Errorf("invalid generator %s: %w", path, err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var gen domain.Generator
	if err := dec.Decode(&gen); err != nil {
		return domain.Generator{}, fmt.Errorf("invalid generator %s: %w", path, err)
	}
	return gen, nil
}
