package divination

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/awaken/pkg/clock"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type revealLog struct {
	reveals []string
	effects []domain.PhaseEvent
}

func newOrchestrator(t *testing.T, a domain.Archetype) (*Orchestrator, *clock.Scheduler, *revealLog) {
	t.Helper()
	sched := clock.New()
	log := &revealLog{}
	o, err := New("d1", sched, profile.MustNew(), domain.Params{Code: "XXXX", Archetype: a},
		OnRevealed(func(_ domain.Params, outcome string) { log.reveals = append(log.reveals, outcome) }),
		WithHooks(domain.LifecycleHooks{
			OnEffect: func(_ context.Context, e *domain.PhaseEvent) { log.effects = append(log.effects, *e) },
		}),
	)
	require.NoError(t, err)
	return o, sched, log
}

func TestEffects_OnePerArchetypeAndBounded(t *testing.T) {
	names := map[string]bool{}
	for _, a := range domain.Archetypes() {
		e, err := EffectFor(a)
		require.NoError(t, err, a)
		assert.NotEmpty(t, e.Steps, a)
		assert.LessOrEqual(t, e.Duration(), RevealAt-EffectStart, a)
		assert.False(t, names[e.Name], "duplicate effect name %s", e.Name)
		names[e.Name] = true
	}
	assert.Len(t, Effects(), 6)

	_, err := EffectFor(domain.Archetype("Healer"))
	assert.ErrorIs(t, err, domain.ErrUnknownArchetype)
}

func TestNew_RequiresArchetype(t *testing.T) {
	_, err := New("d1", clock.New(), profile.MustNew(), domain.Params{Code: "INTJ"})
	assert.ErrorIs(t, err, domain.ErrMissingArchetype)
}

func TestOrchestrator_RevealNeverBeforeFiveSeconds(t *testing.T) {
	repo := profile.MustNew()
	for _, a := range domain.Archetypes() {
		t.Run(string(a), func(t *testing.T) {
			o, sched, log := newOrchestrator(t, a)
			require.NoError(t, o.Begin(context.Background()))

			sched.Advance(RevealAt - time.Nanosecond)
			assert.Equal(t, domain.DivinationAnimating, o.Snapshot().Phase)
			_, err := o.Outcome()
			assert.ErrorIs(t, err, domain.ErrNotRevealed)
			_, err = o.Continue()
			assert.ErrorIs(t, err, domain.ErrNotRevealed)
			assert.Empty(t, log.reveals)

			sched.Advance(time.Nanosecond)
			assert.Equal(t, domain.DivinationRevealed, o.Snapshot().Phase)
			outcome, err := o.Outcome()
			require.NoError(t, err)
			assert.Equal(t, repo.DivinationOutcome(a), outcome)

			sched.Advance(time.Hour)
			assert.Equal(t, []string{outcome}, log.reveals)
			assert.Zero(t, sched.Len())
		})
	}
}

func TestOrchestrator_EffectStartsAtTwoSeconds(t *testing.T) {
	o, sched, log := newOrchestrator(t, domain.Manipulator)
	require.NoError(t, o.Begin(context.Background()))

	sched.Advance(EffectStart - time.Millisecond)
	assert.Equal(t, "fill", o.Mark())

	sched.Advance(time.Millisecond)
	assert.Equal(t, "leaf-sweep", o.Mark())

	var at time.Duration = -1
	for _, e := range log.effects {
		if e.Effect == "leaf-sweep" {
			at = e.Offset
		}
	}
	assert.Equal(t, EffectStart, at)
}

func TestOrchestrator_ResetCancelsPriorRun(t *testing.T) {
	o, sched, log := newOrchestrator(t, domain.Conjurer)
	require.NoError(t, o.Begin(context.Background()))
	sched.Advance(3 * time.Second)

	o.Reset()
	assert.Equal(t, domain.DivinationSetup, o.Snapshot().Phase)
	assert.Zero(t, sched.Len())

	require.NoError(t, o.Begin(context.Background()))
	sched.Advance(2500 * time.Millisecond)
	assert.Equal(t, domain.DivinationAnimating, o.Snapshot().Phase, "old run would have revealed here")
	assert.Empty(t, log.reveals)

	sched.Advance(2500 * time.Millisecond)
	assert.Equal(t, domain.DivinationRevealed, o.Snapshot().Phase)
	sched.Advance(time.Hour)
	assert.Len(t, log.reveals, 1)
}

func TestOrchestrator_CancelSilencesEverything(t *testing.T) {
	o, sched, log := newOrchestrator(t, domain.Emitter)
	require.NoError(t, o.Begin(context.Background()))
	sched.Advance(time.Second)
	effects := len(log.effects)

	o.Cancel()
	sched.Advance(time.Hour)
	assert.Empty(t, log.reveals)
	assert.Len(t, log.effects, effects)
	assert.ErrorIs(t, o.Begin(context.Background()), domain.ErrInvalidTransition)
}

func TestOrchestrator_BeginTwiceIsInvalid(t *testing.T) {
	o, _, _ := newOrchestrator(t, domain.Enhancer)
	require.NoError(t, o.Begin(context.Background()))
	assert.ErrorIs(t, o.Begin(context.Background()), domain.ErrInvalidTransition)
}

func TestOrchestrator_ContinueHandsParamsForward(t *testing.T) {
	o, sched, _ := newOrchestrator(t, domain.Transmuter)
	require.NoError(t, o.Begin(context.Background()))
	sched.Advance(RevealAt)

	p, err := o.Continue()
	require.NoError(t, err)
	assert.Equal(t, domain.Params{Code: "XXXX", Archetype: domain.Transmuter}, p)
}

func TestOrchestrator_ElapsedClamps(t *testing.T) {
	o, sched, _ := newOrchestrator(t, domain.Enhancer)
	assert.Zero(t, o.Elapsed())

	sched.Advance(10 * time.Second)
	require.NoError(t, o.Begin(context.Background()))
	sched.Advance(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, o.Snapshot().Elapsed)

	sched.Advance(time.Minute)
	assert.Equal(t, RevealAt, o.Snapshot().Elapsed)
}

func TestOrchestrator_MarksIncludeEffectSteps(t *testing.T) {
	o, _, _ := newOrchestrator(t, domain.Specialist)
	assert.Equal(t, []Mark{
		{0, "vessel"},
		{FillStart, "fill"},
		{EffectStart, "double-flash"},
		{2500 * time.Millisecond, "double-flash:1"},
		{3000 * time.Millisecond, "double-flash:2"},
		{3300 * time.Millisecond, "double-flash:3"},
	}, o.Marks())
}
