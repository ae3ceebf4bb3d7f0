package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/clock"
	"github.com/aretw0/awaken/pkg/divination"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/ports"
	"github.com/aretw0/awaken/pkg/quiz"
	"github.com/aretw0/awaken/pkg/ritual"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a record write may hold the distributed lock.
const DefaultLockTTL = 5 * time.Second

// liveFlow is the in-process state behind one FlowRecord.
// At most one of ritual and divination is non-nil.
type liveFlow struct {
	record     *domain.FlowRecord
	ritual     *ritual.Sequencer
	divination *divination.Orchestrator
}

// Manager orchestrates flows, ensuring timelines never outlive their flow.
type Manager struct {
	mu sync.Mutex

	clock    *clock.Scheduler
	store    ports.FlowStore
	flows    *flow.Controller
	profiles ports.ProfileSource

	locker  ports.DistributedLocker
	lockTTL time.Duration
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	live  map[string]*liveFlow
	dirty map[string]bool
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker fences record writes with a distributed lock.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks registers lifecycle callbacks for every flow.
// Hooks run while the manager lock is held and must not call back into it.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = m.hooks.Merge(h)
	}
}

// WithNow overrides the wall clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator overrides how IDs are minted for flows opened without one.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a Manager persisting to store.
func NewManager(store ports.FlowStore, controller *flow.Controller, profiles ports.ProfileSource, opts ...Option) *Manager {
	m := &Manager{
		clock:    clock.New(),
		store:    store,
		flows:    controller,
		profiles: profiles,
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
		live:     make(map[string]*liveFlow),
		dirty:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SubmitQuiz decodes a questionnaire message and opens a flow with its result.
// Channel failures and ignored messages are returned unchanged.
func (m *Manager) SubmitQuiz(ctx context.Context, flowID string, payload []byte) (*domain.FlowRecord, error) {
	msg, err := quiz.Decode(payload)
	if err != nil {
		return nil, err
	}
	if msg.Malformed {
		m.logger.Warn("quiz result missing or not a string", "flow_id", flowID)
	}
	return m.Open(ctx, flowID, msg.Result)
}

// Open classifies code and starts a flow on the ritual screen.
// An existing live flow with the same ID is torn down first.
func (m *Manager) Open(ctx context.Context, flowID, code string) (*domain.FlowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flowID == "" {
		flowID = m.newID()
	}
	if prev, ok := m.live[flowID]; ok {
		m.teardown(prev)
		m.logger.Debug("flow replaced", "flow_id", flowID)
	}

	h := m.flows.Start(code)
	now := m.now()
	lf := &liveFlow{record: &domain.FlowRecord{
		ID:        flowID,
		Stage:     h.To,
		Params:    h.Params,
		CreatedAt: now,
		UpdatedAt: now,
	}}

	seq, err := ritual.New(flowID, m.clock, h.Params,
		ritual.WithHooks(m.sessionHooks()),
		ritual.WithLogger(m.logger),
		ritual.WithNow(m.now),
		ritual.OnComplete(func(p domain.Params) { m.ritualComplete(lf, p) }),
	)
	if err != nil {
		return nil, err
	}
	lf.ritual = seq
	m.live[flowID] = lf

	if err := m.persist(ctx, lf); err != nil {
		return nil, err
	}
	m.logger.Info("flow opened", "flow_id", flowID, "archetype", h.Params.Archetype)
	return lf.record.Snapshot(), nil
}

// BeginRitual starts the countdown of flowID.
func (m *Manager) BeginRitual(ctx context.Context, flowID string) (*domain.FlowRecord, error) {
	return m.mutate(ctx, flowID, func(lf *liveFlow) error {
		if lf.ritual == nil {
			return fmt.Errorf("flow %s on %s: %w", flowID, lf.record.Stage, domain.ErrInvalidTransition)
		}
		return lf.ritual.Begin(ctx)
	})
}

// BeginDivination starts the reveal animation of flowID.
func (m *Manager) BeginDivination(ctx context.Context, flowID string) (*domain.FlowRecord, error) {
	return m.mutate(ctx, flowID, func(lf *liveFlow) error {
		if lf.divination == nil {
			return fmt.Errorf("flow %s on %s: %w", flowID, lf.record.Stage, domain.ErrInvalidTransition)
		}
		return lf.divination.Begin(ctx)
	})
}

// ResetDivination cancels the running reveal of flowID and returns it to Setup.
func (m *Manager) ResetDivination(ctx context.Context, flowID string) (*domain.FlowRecord, error) {
	return m.mutate(ctx, flowID, func(lf *liveFlow) error {
		if lf.divination == nil {
			return fmt.Errorf("flow %s on %s: %w", flowID, lf.record.Stage, domain.ErrInvalidTransition)
		}
		lf.divination.Reset()
		lf.record.Outcome = ""
		return nil
	})
}

// Continue hands a revealed divination forward to the profile reveal.
func (m *Manager) Continue(ctx context.Context, flowID string) (flow.RevealView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lf, err := m.lookup(flowID)
	if err != nil {
		return flow.RevealView{}, err
	}
	if lf.record.Stage == domain.StageReveal {
		return m.flows.Reveal(lf.record.Params)
	}
	if lf.divination == nil {
		return flow.RevealView{}, fmt.Errorf("flow %s on %s: %w", flowID, lf.record.Stage, domain.ErrInvalidTransition)
	}

	p, err := lf.divination.Continue()
	if err != nil {
		return flow.RevealView{}, err
	}
	h, err := m.flows.Advance(domain.StageDivination, p.Code, p.Archetype)
	if err != nil {
		return flow.RevealView{}, err
	}

	m.sync(lf)
	lf.divination.Cancel()
	lf.divination = nil
	lf.record.Stage = h.To
	if err := m.persist(ctx, lf); err != nil {
		return flow.RevealView{}, err
	}
	return m.flows.Reveal(h.Params)
}

// Reveal returns the final screen of a flow that reached it.
// Records written by other replicas are served from the store.
func (m *Manager) Reveal(ctx context.Context, flowID string) (flow.RevealView, error) {
	rec, err := m.Get(ctx, flowID)
	if err != nil {
		return flow.RevealView{}, err
	}
	if rec.Stage != domain.StageReveal {
		return flow.RevealView{}, fmt.Errorf("flow %s on %s: %w", flowID, rec.Stage, domain.ErrInvalidTransition)
	}
	return m.flows.Reveal(rec.Params)
}

// Close tears down flowID and removes its record.
func (m *Manager) Close(ctx context.Context, flowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lf, ok := m.live[flowID]; ok {
		m.teardown(lf)
		delete(m.live, flowID)
		delete(m.dirty, flowID)
	} else if _, err := m.store.Load(ctx, flowID); err != nil {
		return err
	}

	return m.fenced(ctx, flowID, func(ctx context.Context) error {
		return m.store.Delete(ctx, flowID)
	})
}

// Get returns a snapshot of flowID.
func (m *Manager) Get(ctx context.Context, flowID string) (*domain.FlowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lf, ok := m.live[flowID]; ok {
		m.sync(lf)
		return lf.record.Snapshot(), nil
	}
	return m.store.Load(ctx, flowID)
}

// Visuals samples the reveal animation of flowID.
func (m *Manager) Visuals(flowID string) (divination.Visuals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lf, err := m.lookup(flowID)
	if err != nil {
		return divination.Visuals{}, err
	}
	if lf.divination == nil {
		return divination.Visuals{}, fmt.Errorf("flow %s on %s: %w", flowID, lf.record.Stage, domain.ErrInvalidTransition)
	}
	return lf.divination.Visuals(), nil
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Live reports how many flows this process is driving.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Advance moves the virtual clock by d and persists every flow it touched.
// It satisfies clock.Advancer so a clock.Pump can drive the manager.
func (m *Manager) Advance(d time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	ran := m.clock.Advance(d)
	m.flush()
	return ran
}

// Drain runs every pending action up to limit of logical time.
func (m *Manager) Drain(limit time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.clock.Drain(limit)
	m.flush()
	return d
}

// Pending reports whether any timeline entry is scheduled.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Len() > 0
}

// Shutdown tears down every live flow, keeping their last records.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for id, lf := range m.live {
		m.sync(lf)
		m.teardown(lf)
		if err := m.save(ctx, lf); err != nil {
			errs = append(errs, err)
		}
		delete(m.live, id)
	}
	m.dirty = make(map[string]bool)
	return errors.Join(errs...)
}

// mutate runs fn on a live flow and persists it.
func (m *Manager) mutate(ctx context.Context, flowID string, fn func(*liveFlow) error) (*domain.FlowRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lf, err := m.lookup(flowID)
	if err != nil {
		return nil, err
	}
	if err := fn(lf); err != nil {
		return nil, err
	}
	if err := m.persist(ctx, lf); err != nil {
		return nil, err
	}
	return lf.record.Snapshot(), nil
}

func (m *Manager) lookup(flowID string) (*liveFlow, error) {
	lf, ok := m.live[flowID]
	if !ok {
		return nil, fmt.Errorf("flow %s: %w", flowID, domain.ErrSessionNotFound)
	}
	return lf, nil
}

// ritualComplete runs inside Advance.
func (m *Manager) ritualComplete(lf *liveFlow, p domain.Params) {
	id := lf.record.ID
	if m.live[id] != lf {
		m.logger.Warn("completion for replaced flow dropped", "flow_id", id)
		return
	}
	h, err := m.flows.Advance(domain.StageRitual, p.Code, p.Archetype)
	if err != nil {
		m.logger.Error("ritual handoff failed", "flow_id", id, "err", err)
		return
	}

	m.sync(lf)
	lf.ritual = nil

	orch, err := divination.New(id, m.clock, m.profiles, h.Params,
		divination.WithHooks(m.sessionHooks()),
		divination.WithLogger(m.logger),
		divination.WithNow(m.now),
		divination.OnRevealed(func(_ domain.Params, outcome string) { m.revealed(lf, outcome) }),
	)
	if err != nil {
		m.logger.Error("divination setup failed", "flow_id", id, "err", err)
		return
	}
	lf.divination = orch
	lf.record.Stage = h.To
	m.dirty[id] = true
}

// revealed runs inside Advance.
func (m *Manager) revealed(lf *liveFlow, outcome string) {
	id := lf.record.ID
	if m.live[id] != lf {
		return
	}
	lf.record.Outcome = outcome
	m.dirty[id] = true
}

func (m *Manager) sessionHooks() domain.LifecycleHooks {
	mark := func(_ context.Context, e *domain.PhaseEvent) { m.dirty[e.SessionID] = true }
	own := domain.LifecycleHooks{
		OnPhaseEnter: mark,
		OnTick:       mark,
		OnComplete:   mark,
		OnCancel:     mark,
	}
	return own.Merge(m.hooks)
}

func (m *Manager) teardown(lf *liveFlow) {
	if lf.ritual != nil {
		lf.ritual.Cancel()
	}
	if lf.divination != nil {
		lf.divination.Cancel()
	}
}

func (m *Manager) sync(lf *liveFlow) {
	if lf.ritual != nil {
		s := lf.ritual.Snapshot()
		lf.record.Ritual = &s
	}
	if lf.divination != nil {
		s := lf.divination.Snapshot()
		lf.record.Divination = &s
	}
	lf.record.UpdatedAt = m.now()
}

func (m *Manager) persist(ctx context.Context, lf *liveFlow) error {
	m.sync(lf)
	delete(m.dirty, lf.record.ID)
	return m.save(ctx, lf)
}

func (m *Manager) save(ctx context.Context, lf *liveFlow) error {
	id := lf.record.ID
	return m.fenced(ctx, id, func(ctx context.Context) error {
		if err := m.store.Save(ctx, id, lf.record); err != nil {
			return fmt.Errorf("failed to persist flow %s: %w", id, err)
		}
		return nil
	})
}

// flush persists flows touched by timeline actions.
func (m *Manager) flush() {
	ctx := context.Background()
	for id := range m.dirty {
		lf, ok := m.live[id]
		if !ok {
			delete(m.dirty, id)
			continue
		}
		if err := m.persist(ctx, lf); err != nil {
			m.logger.Warn("flow snapshot not persisted", "flow_id", id, "err", err)
		}
	}
}

func (m *Manager) fenced(ctx context.Context, flowID string, fn func(context.Context) error) error {
	if m.locker == nil {
		return fn(ctx)
	}
	unlock, err := m.locker.Lock(ctx, flowID, m.lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire distributed lock: %w", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
				"flow_id", flowID,
				"err", err,
			)
		}
	}()
	return fn(ctx)
}
