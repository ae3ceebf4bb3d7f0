package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPhaseEnter EventType = "phase_enter"
	EventTick       EventType = "tick"
	EventEffect     EventType = "effect"
	EventComplete   EventType = "complete"
	EventCancel     EventType = "cancel"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// PhaseEvent is emitted by the ritual sequencer and the reveal orchestrator.
type PhaseEvent struct {
	EventBase
	Stage Stage  `json:"stage"`
	Phase string `json:"phase"`

	// Remaining is set on ritual ticks.
	Remaining int `json:"remaining,omitempty"`
	// Effect is set when an archetype effect starts.
	Effect string `json:"effect,omitempty"`
	// Offset is the logical time since the session's timeline started.
	Offset time.Duration `json:"offset"`
}

// LifecycleHooks defines callbacks for observability of the timed screens.
type LifecycleHooks struct {
	OnPhaseEnter func(context.Context, *PhaseEvent)
	OnTick       func(context.Context, *PhaseEvent)
	OnEffect     func(context.Context, *PhaseEvent)
	OnComplete   func(context.Context, *PhaseEvent)
	OnCancel     func(context.Context, *PhaseEvent)
}

// Emit dispatches e to the matching hook, if any.
func (h LifecycleHooks) Emit(ctx context.Context, e *PhaseEvent) {
	var fn func(context.Context, *PhaseEvent)
	switch e.Type {
	case EventPhaseEnter:
		fn = h.OnPhaseEnter
	case EventTick:
		fn = h.OnTick
	case EventEffect:
		fn = h.OnEffect
	case EventComplete:
		fn = h.OnComplete
	case EventCancel:
		fn = h.OnCancel
	}
	if fn != nil {
		fn(ctx, e)
	}
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	chain := func(a, b func(context.Context, *PhaseEvent)) func(context.Context, *PhaseEvent) {
		if a == nil {
			return b
		}
		if b == nil {
			return a
		}
		return func(ctx context.Context, e *PhaseEvent) {
			a(ctx, e)
			b(ctx, e)
		}
	}
	return LifecycleHooks{
		OnPhaseEnter: chain(h.OnPhaseEnter, other.OnPhaseEnter),
		OnTick:       chain(h.OnTick, other.OnTick),
		OnEffect:     chain(h.OnEffect, other.OnEffect),
		OnComplete:   chain(h.OnComplete, other.OnComplete),
		OnCancel:     chain(h.OnCancel, other.OnCancel),
	}
}
