package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/awaken/pkg/domain"
)

// LogHooks writes every lifecycle event at debug level, ticks excepted.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	attrs := func(e *domain.PhaseEvent) []any {
		return []any{"flow_id", e.SessionID, "stage", e.Stage, "phase", e.Phase, "offset", e.Offset}
	}
	return domain.LifecycleHooks{
		OnPhaseEnter: func(ctx context.Context, e *domain.PhaseEvent) {
			logger.DebugContext(ctx, "Enter Phase", attrs(e)...)
		},
		OnEffect: func(ctx context.Context, e *domain.PhaseEvent) {
			logger.DebugContext(ctx, "Reveal Mark", append(attrs(e), "mark", e.Effect)...)
		},
		OnComplete: func(ctx context.Context, e *domain.PhaseEvent) {
			logger.DebugContext(ctx, "Stage Complete", attrs(e)...)
		},
		OnCancel: func(ctx context.Context, e *domain.PhaseEvent) {
			logger.DebugContext(ctx, "Stage Cancelled", attrs(e)...)
		},
	}
}
