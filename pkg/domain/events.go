package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventDecision  EventType = "decision"
	EventGenerator EventType = "generator"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NodeEvent is emitted each time the evaluator enters a node.
type NodeEvent struct {
	EventBase
	Output   string `json:"output"`
	Depth    int    `json:"depth"`
	Property string `json:"property,omitempty"` // empty for leaves
	IsLeaf   bool   `json:"is_leaf"`
}

// DecisionEvent is emitted once per evaluated output, whether it succeeded or not.
type DecisionEvent struct {
	EventBase
	Output  string `json:"output"`
	AgentID string `json:"agent_id,omitempty"`
	Depth   int    `json:"depth"`
	Err     error  `json:"-"`
}

// GeneratorEvent is emitted after a generator decision has been merged.
type GeneratorEvent struct {
	EventBase
	Agents       int   `json:"agents"`
	Contributors int   `json:"contributors"`
	Err          error `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks never influence the result of a decision.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnDecision  func(context.Context, *DecisionEvent)
	OnGenerator func(context.Context, *GeneratorEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: chain(h.OnNodeEnter, other.OnNodeEnter),
		OnDecision:  chain(h.OnDecision, other.OnDecision),
		OnGenerator: chain(h.OnGenerator, other.OnGenerator),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
