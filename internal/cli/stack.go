package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/awaken/internal/config"
	"github.com/aretw0/awaken/pkg/adapters/file"
	"github.com/aretw0/awaken/pkg/adapters/memory"
	"github.com/aretw0/awaken/pkg/adapters/redis"
	"github.com/aretw0/awaken/pkg/classify"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/identity"
	"github.com/aretw0/awaken/pkg/persistence/middleware"
	"github.com/aretw0/awaken/pkg/ports"
	"github.com/aretw0/awaken/pkg/profile"
	"github.com/aretw0/awaken/pkg/session"
)

// Stack is the wired core shared by every command.
type Stack struct {
	Config     config.Config
	Logger     *slog.Logger
	Classifier *classify.Engine
	Profiles   *profile.Repository
	Identity   identity.Provider
	Controller *flow.Controller
	Store      ports.FlowStore
	Manager    *session.Manager

	closers []func() error
}

// BuildStack wires the classifier, profiles, store and session manager from cfg.
// hooks receive every phase event of every flow.
func BuildStack(ctx context.Context, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks) (*Stack, error) {
	s := &Stack{Config: cfg, Logger: logger}

	engine, err := classify.New(
		classify.WithCacheSize(cfg.Classifier.CacheSize),
		classify.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing classifier: %w", err)
	}
	s.Classifier = engine

	if cfg.Profiles.Dir != "" {
		s.Profiles, err = profile.LoadDir(ctx, cfg.Profiles.Dir)
	} else {
		s.Profiles, err = profile.New()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading profiles: %w", err)
	}

	s.Identity, err = identity.Select(cfg.Identity)
	if err != nil {
		return nil, err
	}
	s.Controller = flow.New(engine, s.Profiles, flow.WithIdentity(s.Identity), flow.WithLogger(logger))

	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithHooks(hooks),
	}

	store, locker, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}
	s.Store = store
	s.closers = append(s.closers, closeStore)

	s.Manager = session.NewManager(s.Store, s.Controller, s.Profiles, managerOpts...)
	return s, nil
}

// OpenStore opens the flow store named by cfg.Store.Driver, sealed when an
// encryption key is configured. The locker is nil unless the redis driver
// has locking enabled.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.FlowStore, ports.DistributedLocker, func() error, error) {
	var (
		store     ports.FlowStore
		locker    ports.DistributedLocker
		closeFunc = func() error { return nil }
	)

	switch strings.ToLower(cfg.Store.Driver) {
	case config.DriverRedis:
		rc := cfg.Store.Redis
		rs := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithPrefix(rc.Prefix), redis.WithTTL(rc.TTL))
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, nil, fmt.Errorf("error connecting to redis at %s: %w", rc.Addr, err)
		}
		if rc.Lock {
			locker = redis.NewLocker(rs.Client(), rc.Prefix+"lock:")
		}
		store, closeFunc = rs, rs.Close
		logger.Debug("Store Ready", "driver", config.DriverRedis, "addr", rc.Addr, "lock", rc.Lock)
	case config.DriverFile:
		store = file.New(cfg.Store.Dir)
		logger.Debug("Store Ready", "driver", config.DriverFile, "dir", cfg.Store.Dir)
	default:
		store = memory.NewStore()
		logger.Debug("Store Ready", "driver", config.DriverMemory)
	}

	active, fallback, err := cfg.Store.Keys()
	if err != nil {
		_ = closeFunc()
		return nil, nil, nil, err
	}
	if active != nil {
		sealer, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			_ = closeFunc()
			return nil, nil, nil, err
		}
		store = middleware.Chain(store, sealer)
		logger.Debug("Store Sealed", "fallback_keys", len(fallback))
	}
	return store, locker, closeFunc, nil
}

// Close stops every live flow and releases the store.
func (s *Stack) Close(ctx context.Context) error {
	errs := []error{s.Manager.Shutdown(ctx)}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}
