// Package divination implements the timed water reveal.
//
// An Orchestrator walks Setup -> Animating -> Revealed. Begin lays a base
// timeline (vessel fade, fill) and the archetype effect onto a ports.Timeline;
// the outcome text becomes readable only once Revealed has fired.
package divination

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/ports"
)

// Offsets relative to Begin.
const (
	VesselFade   = 500 * time.Millisecond
	FillStart    = 500 * time.Millisecond
	FillDuration = 1500 * time.Millisecond
	FillLevel    = 0.6
	EffectStart  = 2 * time.Second
	RevealAt     = 5 * time.Second
)

// Mark names a point on the reveal timeline.
type Mark struct {
	Offset time.Duration
	Name   string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHooks registers lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(o *Orchestrator) { o.hooks = o.hooks.Merge(h) }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithNow overrides the wall clock used for event timestamps.
func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// OnRevealed sets the callback invoked once per run when Revealed fires.
func OnRevealed(fn func(domain.Params, string)) Option {
	return func(o *Orchestrator) { o.onRevealed = fn }
}

// Orchestrator drives one divination session. It is not safe for concurrent use.
type Orchestrator struct {
	id         string
	timeline   ports.Timeline
	profiles   ports.ProfileSource
	params     domain.Params
	effect     Effect
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time
	onRevealed func(domain.Params, string)
	ctx        context.Context

	gen    int
	phase  domain.DivinationPhase
	origin time.Duration
	mark   string
	closed bool
}

// New creates an orchestrator in the Setup phase.
func New(id string, timeline ports.Timeline, profiles ports.ProfileSource, params domain.Params, opts ...Option) (*Orchestrator, error) {
	if !params.Archetype.Valid() {
		return nil, fmt.Errorf("divination %s: %w", id, domain.ErrMissingArchetype)
	}
	effect, err := EffectFor(params.Archetype)
	if err != nil {
		return nil, err
	}
	o := &Orchestrator{
		id:       id,
		timeline: timeline,
		profiles: profiles,
		params:   params,
		effect:   effect,
		logger:   logging.NewNop(),
		now:      time.Now,
		ctx:      context.Background(),
		phase:    domain.DivinationSetup,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Marks lists the named points of the timeline for the current archetype.
func (o *Orchestrator) Marks() []Mark {
	marks := []Mark{{0, "vessel"}, {FillStart, "fill"}, {EffectStart, o.effect.Name}}
	at := EffectStart
	for i, s := range o.effect.Steps {
		if i > 0 {
			marks = append(marks, Mark{at, fmt.Sprintf("%s:%d", o.effect.Name, i)})
		}
		at += s.Duration
	}
	return marks
}

// Begin starts the animation. It is only valid from Setup.
func (o *Orchestrator) Begin(ctx context.Context) error {
	if o.closed || o.phase != domain.DivinationSetup {
		return fmt.Errorf("divination %s: begin from %s: %w", o.id, o.phase, domain.ErrInvalidTransition)
	}
	o.ctx = context.WithoutCancel(ctx)
	o.phase = domain.DivinationAnimating
	o.origin = o.timeline.Now()
	o.emit(domain.EventPhaseEnter, "")

	gen := o.gen
	owner := o.owner(gen)
	for _, m := range o.Marks() {
		name := m.Name
		o.timeline.After(owner, m.Offset, func() { o.reach(gen, name) })
	}
	o.timeline.After(owner, RevealAt, func() { o.reveal(gen) })

	o.logger.Debug("divination started", "session", o.id, "archetype", o.params.Archetype, "effect", o.effect.Name)
	return nil
}

// Reset cancels the current run and returns to Setup.
func (o *Orchestrator) Reset() {
	o.stop()
	o.closed = false
	o.phase = domain.DivinationSetup
	o.mark = ""
}

// Cancel tears the session down. Nothing fires afterwards.
func (o *Orchestrator) Cancel() {
	if o.closed {
		return
	}
	o.stop()
	o.closed = true
}

// Elapsed is the logical time since Begin, clamped to RevealAt.
func (o *Orchestrator) Elapsed() time.Duration {
	switch o.phase {
	case domain.DivinationSetup:
		return 0
	case domain.DivinationRevealed:
		return RevealAt
	}
	d := o.timeline.Now() - o.origin
	if d > RevealAt {
		d = RevealAt
	}
	return d
}

// Snapshot returns the presentation view of the session.
func (o *Orchestrator) Snapshot() domain.DivinationSession {
	return domain.DivinationSession{
		ID:        o.id,
		Phase:     o.phase,
		Archetype: o.params.Archetype,
		Elapsed:   o.Elapsed(),
	}
}

// Visuals samples the channel values at the current logical time.
func (o *Orchestrator) Visuals() Visuals {
	return Sample(o.params.Archetype, o.Elapsed())
}

// Mark returns the name of the last timeline point reached.
func (o *Orchestrator) Mark() string { return o.mark }

// Effect returns the archetype effect this session plays.
func (o *Orchestrator) Effect() Effect { return o.effect }

// Outcome returns the divination text. It is hidden until Revealed.
func (o *Orchestrator) Outcome() (string, error) {
	if o.phase != domain.DivinationRevealed {
		return "", fmt.Errorf("divination %s: %w", o.id, domain.ErrNotRevealed)
	}
	return o.profiles.DivinationOutcome(o.params.Archetype), nil
}

// Continue returns the parameters to hand forward. It is only available once Revealed.
func (o *Orchestrator) Continue() (domain.Params, error) {
	if o.phase != domain.DivinationRevealed {
		return domain.Params{}, fmt.Errorf("divination %s: continue: %w", o.id, domain.ErrNotRevealed)
	}
	return o.params, nil
}

func (o *Orchestrator) owner(gen int) string {
	return fmt.Sprintf("divination:%s#%d", o.id, gen)
}

func (o *Orchestrator) stop() {
	o.timeline.Cancel(o.owner(o.gen))
	if o.phase == domain.DivinationAnimating {
		o.emit(domain.EventCancel, "")
	}
	o.gen++
}

func (o *Orchestrator) live(gen int) bool {
	return gen == o.gen && !o.closed && o.phase == domain.DivinationAnimating
}

func (o *Orchestrator) reach(gen int, name string) {
	if !o.live(gen) {
		return
	}
	o.mark = name
	o.emit(domain.EventEffect, name)
}

func (o *Orchestrator) reveal(gen int) {
	if !o.live(gen) {
		o.logger.Warn("stale reveal dropped", "session", o.id, "gen", gen)
		return
	}
	o.phase = domain.DivinationRevealed
	o.mark = "revealed"
	o.emit(domain.EventPhaseEnter, "")
	o.emit(domain.EventComplete, "")

	outcome := o.profiles.DivinationOutcome(o.params.Archetype)
	o.logger.Debug("divination revealed", "session", o.id, "archetype", o.params.Archetype)
	if o.onRevealed != nil {
		o.onRevealed(o.params, outcome)
	}
}

func (o *Orchestrator) emit(t domain.EventType, effect string) {
	o.hooks.Emit(o.ctx, &domain.PhaseEvent{
		EventBase: domain.EventBase{Timestamp: o.now(), Type: t, SessionID: o.id},
		Stage:     domain.StageDivination,
		Phase:     string(o.phase),
		Effect:    effect,
		Offset:    o.timeline.Now() - o.origin,
	})
}
