// Package ritual implements the countdown screen that precedes the reveal.
//
// A Sequencer walks Instruction -> Counting -> Complete on a ports.Timeline.
// Every scheduled action carries the generation it was armed under, so an
// action that survives a Cancel or Reset is a no-op.
package ritual

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/ports"
)

const (
	// DefaultCountdown is the number of one-second ticks in a ritual.
	DefaultCountdown = 10
	// TickInterval is the spacing between ticks.
	TickInterval = time.Second
	// SettleDelay separates Complete from the completion signal.
	SettleDelay = 2 * time.Second
)

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithHooks registers lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(s *Sequencer) { s.hooks = s.hooks.Merge(h) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = logger }
}

// WithNow overrides the wall clock used for StartedAt and event timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// OnComplete sets the callback that receives the parameters after the settle delay.
func OnComplete(fn func(domain.Params)) Option {
	return func(s *Sequencer) { s.onComplete = fn }
}

// Sequencer drives one ritual session. It is not safe for concurrent use.
type Sequencer struct {
	id         string
	timeline   ports.Timeline
	params     domain.Params
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time
	onComplete func(domain.Params)
	ctx        context.Context

	gen       int
	phase     domain.RitualPhase
	remaining int
	startedAt time.Time
	origin    time.Duration
	signalled bool
	closed    bool
}

// New creates a sequencer in the Instruction phase.
func New(id string, timeline ports.Timeline, params domain.Params, opts ...Option) (*Sequencer, error) {
	if !params.Archetype.Valid() {
		return nil, fmt.Errorf("ritual %s: %w", id, domain.ErrMissingArchetype)
	}
	s := &Sequencer{
		id:        id,
		timeline:  timeline,
		params:    params,
		logger:    logging.NewNop(),
		now:       time.Now,
		ctx:       context.Background(),
		phase:     domain.RitualInstruction,
		remaining: DefaultCountdown,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Begin starts the countdown. It is only valid from Instruction.
func (s *Sequencer) Begin(ctx context.Context) error {
	if s.closed || s.phase != domain.RitualInstruction {
		return fmt.Errorf("ritual %s: begin from %s: %w", s.id, s.phase, domain.ErrInvalidTransition)
	}
	s.ctx = context.WithoutCancel(ctx)
	s.phase = domain.RitualCounting
	s.remaining = DefaultCountdown
	s.startedAt = s.now()
	s.origin = s.timeline.Now()
	s.signalled = false

	s.emit(domain.EventPhaseEnter, nil)
	s.logger.Debug("ritual started", "session", s.id, "countdown", s.remaining)
	s.arm(s.gen)
	return nil
}

// Cancel tears the session down. No tick or completion fires afterwards.
func (s *Sequencer) Cancel() {
	if s.closed {
		return
	}
	s.stop()
	s.closed = true
}

// Reset cancels any pending work and returns to a fresh Instruction phase.
func (s *Sequencer) Reset() {
	s.stop()
	s.closed = false
	s.phase = domain.RitualInstruction
	s.remaining = DefaultCountdown
	s.startedAt = time.Time{}
	s.signalled = false
}

// Snapshot returns the presentation view of the session.
func (s *Sequencer) Snapshot() domain.RitualSession {
	return domain.RitualSession{
		ID:        s.id,
		Phase:     s.phase,
		Remaining: s.remaining,
		StartedAt: s.startedAt,
	}
}

// Params returns the values that will be handed forward on completion.
func (s *Sequencer) Params() domain.Params { return s.params }

// Signalled reports whether the completion callback has fired.
func (s *Sequencer) Signalled() bool { return s.signalled }

func (s *Sequencer) owner(gen int) string {
	return fmt.Sprintf("ritual:%s#%d", s.id, gen)
}

func (s *Sequencer) stop() {
	removed := s.timeline.Cancel(s.owner(s.gen))
	pending := s.phase == domain.RitualCounting || (s.phase == domain.RitualComplete && !s.signalled)
	if pending {
		s.emit(domain.EventCancel, nil)
	}
	if removed > 0 {
		s.logger.Debug("ritual cancelled", "session", s.id, "removed", removed)
	}
	s.gen++
}

func (s *Sequencer) arm(gen int) {
	s.timeline.After(s.owner(gen), TickInterval, func() { s.tick(gen) })
}

func (s *Sequencer) tick(gen int) {
	if gen != s.gen || s.closed || s.phase != domain.RitualCounting {
		s.logger.Warn("stale ritual tick dropped", "session", s.id, "gen", gen)
		return
	}
	if s.remaining > 0 {
		s.remaining--
	}
	s.emit(domain.EventTick, func(e *domain.PhaseEvent) { e.Remaining = s.remaining })

	if s.remaining > 0 {
		s.arm(gen)
		return
	}

	s.phase = domain.RitualComplete
	s.emit(domain.EventPhaseEnter, nil)
	s.timeline.After(s.owner(gen), SettleDelay, func() { s.complete(gen) })
}

func (s *Sequencer) complete(gen int) {
	if gen != s.gen || s.closed || s.signalled {
		s.logger.Warn("stale ritual completion dropped", "session", s.id, "gen", gen)
		return
	}
	s.signalled = true
	s.emit(domain.EventComplete, nil)
	s.logger.Debug("ritual complete", "session", s.id, "archetype", s.params.Archetype)
	if s.onComplete != nil {
		s.onComplete(s.params)
	}
}

func (s *Sequencer) emit(t domain.EventType, fill func(*domain.PhaseEvent)) {
	e := &domain.PhaseEvent{
		EventBase: domain.EventBase{Timestamp: s.now(), Type: t, SessionID: s.id},
		Stage:     domain.StageRitual,
		Phase:     string(s.phase),
		Remaining: s.remaining,
		Offset:    s.timeline.Now() - s.origin,
	}
	if fill != nil {
		fill(e)
	}
	s.hooks.Emit(s.ctx, e)
}
