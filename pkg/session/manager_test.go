package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/awaken/pkg/adapters/memory"
	"github.com/aretw0/awaken/pkg/classify"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/ports"
	"github.com/aretw0/awaken/pkg/profile"
	"github.com/aretw0/awaken/pkg/quiz"
	"github.com/aretw0/awaken/pkg/session"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []domain.PhaseEvent
}

func (l *eventLog) hooks() domain.LifecycleHooks {
	rec := func(_ context.Context, e *domain.PhaseEvent) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.events = append(l.events, *e)
	}
	return domain.LifecycleHooks{OnPhaseEnter: rec, OnTick: rec, OnEffect: rec, OnComplete: rec, OnCancel: rec}
}

func (l *eventLog) count(stage domain.Stage, t domain.EventType) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Stage == stage && e.Type == t {
			n++
		}
	}
	return n
}

func newManager(t *testing.T, store ports.FlowStore, opts ...session.Option) (*session.Manager, *eventLog) {
	t.Helper()
	profiles := profile.MustNew()
	controller := flow.New(classify.MustNew(), profiles)
	log := &eventLog{}
	seq := 0
	base := []session.Option{
		session.WithHooks(log.hooks()),
		session.WithNow(func() time.Time { return epoch }),
		session.WithIDGenerator(func() string { seq++; return fmt.Sprintf("gen-%d", seq) }),
	}
	return session.NewManager(store, controller, profiles, append(base, opts...)...), log
}

func TestManager_FullWalk(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m, log := newManager(t, store)

	rec, err := m.Open(ctx, "f1", "INTJ")
	require.NoError(t, err)
	assert.Equal(t, domain.StageRitual, rec.Stage)
	assert.Equal(t, domain.Params{Code: "INTJ", Archetype: domain.Specialist}, rec.Params)
	require.NotNil(t, rec.Ritual)
	assert.Equal(t, domain.RitualInstruction, rec.Ritual.Phase)

	_, err = m.BeginRitual(ctx, "f1")
	require.NoError(t, err)

	m.Advance(12 * time.Second)
	rec, err = m.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageDivination, rec.Stage)
	assert.Equal(t, domain.RitualComplete, rec.Ritual.Phase)
	require.NotNil(t, rec.Divination)
	assert.Equal(t, domain.DivinationSetup, rec.Divination.Phase)

	_, err = m.BeginDivination(ctx, "f1")
	require.NoError(t, err)
	m.Advance(5 * time.Second)

	stored, err := store.Load(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "A completely different change occurs", stored.Outcome)
	assert.Equal(t, domain.DivinationRevealed, stored.Divination.Phase)

	view, err := m.Continue(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.Specialist, view.Archetype)
	assert.Equal(t, "INTJ", view.Code)
	assert.Equal(t, "Hunter", view.DisplayName)

	again, err := m.Reveal(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, view, again)

	assert.Equal(t, 10, log.count(domain.StageRitual, domain.EventTick))
	assert.Equal(t, 1, log.count(domain.StageRitual, domain.EventComplete))
	assert.Equal(t, 1, log.count(domain.StageDivination, domain.EventComplete))
	assert.False(t, m.Pending())
}

func TestManager_TickSnapshotsArePersisted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m, _ := newManager(t, store)

	_, err := m.Open(ctx, "f1", "ESFJ")
	require.NoError(t, err)
	_, err = m.BeginRitual(ctx, "f1")
	require.NoError(t, err)
	m.Advance(3 * time.Second)

	live, err := m.Get(ctx, "f1")
	require.NoError(t, err)
	stored, err := store.Load(ctx, "f1")
	require.NoError(t, err)

	if diff := cmp.Diff(live, stored); diff != "" {
		t.Errorf("stored record differs from live (-live +stored):\n%s", diff)
	}
	assert.Equal(t, 7, stored.Ritual.Remaining)
}

func TestManager_ReopenCancelsPreviousTimeline(t *testing.T) {
	ctx := context.Background()
	m, log := newManager(t, memory.NewStore())

	_, err := m.Open(ctx, "f1", "ENTP")
	require.NoError(t, err)
	_, err = m.BeginRitual(ctx, "f1")
	require.NoError(t, err)
	m.Advance(3 * time.Second)

	rec, err := m.Open(ctx, "f1", "ISFJ")
	require.NoError(t, err)
	assert.Equal(t, domain.Conjurer, rec.Params.Archetype)
	assert.Equal(t, 1, log.count(domain.StageRitual, domain.EventCancel))

	m.Advance(time.Minute)
	rec, err = m.Get(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageRitual, rec.Stage, "old ritual must not complete into the new flow")
	assert.Equal(t, domain.RitualInstruction, rec.Ritual.Phase)
	assert.Equal(t, 3, log.count(domain.StageRitual, domain.EventTick))
	assert.Equal(t, 1, m.Live())
}

func TestManager_CloseStopsTimers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m, log := newManager(t, store)

	_, err := m.Open(ctx, "f1", "INFJ")
	require.NoError(t, err)
	_, err = m.BeginRitual(ctx, "f1")
	require.NoError(t, err)
	m.Advance(2 * time.Second)

	require.NoError(t, m.Close(ctx, "f1"))
	m.Advance(time.Hour)

	assert.Equal(t, 2, log.count(domain.StageRitual, domain.EventTick))
	assert.Zero(t, log.count(domain.StageRitual, domain.EventComplete))

	_, err = m.Get(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(ctx, "f1"), domain.ErrSessionNotFound)
}

func TestManager_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, memory.NewStore())

	_, err := m.BeginRitual(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = m.Open(ctx, "f1", "ESTP")
	require.NoError(t, err)

	_, err = m.BeginDivination(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = m.Continue(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = m.Reveal(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = m.Visuals("f1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = m.BeginRitual(ctx, "f1")
	require.NoError(t, err)
	_, err = m.BeginRitual(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	m.Advance(12 * time.Second)
	_, err = m.BeginDivination(ctx, "f1")
	require.NoError(t, err)
	m.Advance(4 * time.Second)
	_, err = m.Continue(ctx, "f1")
	assert.ErrorIs(t, err, domain.ErrNotRevealed)
}

func TestManager_ResetDivinationRevealsOnce(t *testing.T) {
	ctx := context.Background()
	m, log := newManager(t, memory.NewStore())

	_, err := m.Open(ctx, "f1", "ESTJ")
	require.NoError(t, err)
	_, err = m.BeginRitual(ctx, "f1")
	require.NoError(t, err)
	m.Advance(12 * time.Second)

	_, err = m.BeginDivination(ctx, "f1")
	require.NoError(t, err)
	m.Advance(4 * time.Second)

	rec, err := m.ResetDivination(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.DivinationSetup, rec.Divination.Phase)

	_, err = m.BeginDivination(ctx, "f1")
	require.NoError(t, err)
	m.Advance(2 * time.Second)

	v, err := m.Visuals("f1")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v.Fill, 1e-9)

	m.Advance(time.Minute)
	assert.Equal(t, 1, log.count(domain.StageDivination, domain.EventComplete))
}

func TestManager_SubmitQuiz(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, memory.NewStore())

	rec, err := m.SubmitQuiz(ctx, "", quiz.Encode("infp"))
	require.NoError(t, err)
	assert.Equal(t, "gen-1", rec.ID)
	assert.Equal(t, domain.Transmuter, rec.Params.Archetype)

	rec, err = m.SubmitQuiz(ctx, "f2", []byte(`{"type":"MBTI_RESULT","result":12}`))
	require.NoError(t, err)
	assert.Equal(t, domain.Enhancer, rec.Params.Archetype)
	assert.Empty(t, rec.Params.Code)

	_, err = m.SubmitQuiz(ctx, "f3", []byte(`{"type":"READY"}`))
	assert.ErrorIs(t, err, quiz.ErrIgnored)

	_, err = m.SubmitQuiz(ctx, "f3", []byte(`<html>`))
	var chErr *quiz.ChannelError
	assert.True(t, errors.As(err, &chErr))
	assert.Equal(t, 2, m.Live())
}

type countingLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.locks++
	l.mu.Unlock()
	return func(context.Context) error {
		l.mu.Lock()
		l.unlocks++
		l.mu.Unlock()
		return nil
	}, nil
}

func TestManager_WritesAreFenced(t *testing.T) {
	ctx := context.Background()
	locker := &countingLocker{}
	m, _ := newManager(t, memory.NewStore(), session.WithLocker(locker))

	_, err := m.Open(ctx, "f1", "ISTP")
	require.NoError(t, err)
	_, err = m.BeginRitual(ctx, "f1")
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx, "f1"))

	assert.Equal(t, 3, locker.locks)
	assert.Equal(t, locker.locks, locker.unlocks)
}

func TestManager_Shutdown(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m, _ := newManager(t, store)

	for _, id := range []string{"a", "b"} {
		_, err := m.Open(ctx, id, "ENFJ")
		require.NoError(t, err)
		_, err = m.BeginRitual(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, m.Shutdown(ctx))
	assert.Zero(t, m.Live())
	assert.False(t, m.Pending())

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, memory.NewStore())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("f%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Open(ctx, id, "ENTJ")
			assert.NoError(t, err)
			_, err = m.BeginRitual(ctx, id)
			assert.NoError(t, err)
			for j := 0; j < 20; j++ {
				_, err := m.Get(ctx, id)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			m.Advance(100 * time.Millisecond)
		}
	}()
	wg.Wait()

	m.Advance(time.Minute)
	for i := 0; i < 8; i++ {
		rec, err := m.Get(ctx, fmt.Sprintf("f%d", i))
		require.NoError(t, err)
		assert.Equal(t, domain.StageDivination, rec.Stage)
	}
}
