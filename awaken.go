package awaken

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/adapters/memory"
	"github.com/aretw0/awaken/pkg/classify"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/identity"
	"github.com/aretw0/awaken/pkg/ports"
	"github.com/aretw0/awaken/pkg/profile"
	"github.com/aretw0/awaken/pkg/session"
)

// walkLimit bounds the logical time Walk may drain per timed screen.
const walkLimit = time.Minute

// Engine is the high-level entry point for the Awaken library.
// It wires the classifier, the profile table and the session manager.
type Engine struct {
	classifier *classify.Engine
	profiles   *profile.Repository
	controller *flow.Controller
	manager    *session.Manager

	store     ports.FlowStore
	locker    ports.DistributedLocker
	identity  identity.Provider
	hooks     domain.LifecycleHooks
	cacheSize int
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks for every flow.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithStore persists flow records in store instead of memory.
func WithStore(store ports.FlowStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker fences record writes across processes sharing a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithProfiles replaces the embedded profile table.
func WithProfiles(profiles *profile.Repository) Option {
	return func(e *Engine) {
		e.profiles = profiles
	}
}

// WithIdentity sets the provider consulted for display names.
func WithIdentity(p identity.Provider) Option {
	return func(e *Engine) {
		e.identity = p
	}
}

// WithCacheSize bounds the classification cache (0 disables it).
func WithCacheSize(size int) Option {
	return func(e *Engine) {
		e.cacheSize = size
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine. Without options it uses the embedded profiles,
// an in-memory store and anonymous identity.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		identity:  identity.Anonymous{},
		cacheSize: 64,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	e.classifier, err = classify.New(classify.WithCacheSize(e.cacheSize), classify.WithLogger(e.logger))
	if err != nil {
		return nil, fmt.Errorf("error initializing classifier: %w", err)
	}
	if e.profiles == nil {
		if e.profiles, err = profile.New(); err != nil {
			return nil, err
		}
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	e.controller = flow.New(e.classifier, e.profiles, flow.WithIdentity(e.identity), flow.WithLogger(e.logger))

	managerOpts := []session.Option{session.WithLogger(e.logger), session.WithHooks(e.hooks)}
	if e.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(e.locker))
	}
	e.manager = session.NewManager(e.store, e.controller, e.profiles, managerOpts...)
	return e, nil
}

// Classify maps a raw personality code to an archetype. It never fails.
func (e *Engine) Classify(code string) domain.Archetype {
	return e.classifier.Classify(code)
}

// Explain classifies code and reports the rule that matched.
func (e *Engine) Explain(code string) classify.Result {
	return e.classifier.Explain(code)
}

// Profile returns the static content of a.
func (e *Engine) Profile(a domain.Archetype) domain.Profile {
	return e.profiles.ProfileFor(a)
}

// Reveal builds the final screen from navigation parameters.
func (e *Engine) Reveal(p domain.Params) (flow.RevealView, error) {
	return e.controller.Reveal(p)
}

// Sessions exposes the session manager for step-by-step driving.
// Timed screens only move when the manager's clock is advanced.
func (e *Engine) Sessions() *session.Manager {
	return e.manager
}

// Walk runs a whole flow for code on the virtual clock without waiting for
// wall time: ritual, divination, then the reveal.
func (e *Engine) Walk(ctx context.Context, flowID, code string) (flow.RevealView, error) {
	rec, err := e.manager.Open(ctx, flowID, code)
	if err != nil {
		return flow.RevealView{}, err
	}
	if _, err := e.manager.BeginRitual(ctx, rec.ID); err != nil {
		return flow.RevealView{}, err
	}
	e.manager.Drain(walkLimit)

	if _, err := e.manager.BeginDivination(ctx, rec.ID); err != nil {
		return flow.RevealView{}, err
	}
	e.manager.Drain(walkLimit)

	return e.manager.Continue(ctx, rec.ID)
}

// Close stops every live flow, keeping their last records.
func (e *Engine) Close(ctx context.Context) error {
	return e.manager.Shutdown(ctx)
}
