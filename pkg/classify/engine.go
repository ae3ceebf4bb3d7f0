// Package classify maps personality codes to archetypes.
package classify

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// FallbackRule is the rule name reported when input fails the axis pattern.
const FallbackRule = "fallback"

const defaultCacheSize = 64

// Result explains one classification.
type Result struct {
	Input     string                 `json:"input"`
	Code      domain.PersonalityCode `json:"code,omitempty"`
	Archetype domain.Archetype       `json:"archetype"`
	Rule      string                 `json:"rule"`
	Fallback  bool                   `json:"fallback"`
}

// Engine is a stateless classifier built from an ordered rule table.
// Results for valid codes are memoized; the cache is the only mutable part and
// is safe for concurrent use.
type Engine struct {
	rules     []Rule
	fallback  domain.Archetype
	cacheSize int
	cache     *lru.Cache[domain.PersonalityCode, Result]
	logger    *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		e.rules = append([]Rule(nil), rules...)
	}
}

// WithFallback sets the archetype used for invalid input.
func WithFallback(a domain.Archetype) Option {
	return func(e *Engine) {
		e.fallback = a
	}
}

// WithCacheSize sets the memo size. Zero or less disables memoization.
func WithCacheSize(size int) Option {
	return func(e *Engine) {
		e.cacheSize = size
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New builds an Engine and verifies the rule table covers all 16 valid codes.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		rules:     DefaultRules(),
		fallback:  domain.Archetypes()[0],
		cacheSize: defaultCacheSize,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if !e.fallback.Valid() {
		return nil, fmt.Errorf("classify: fallback: %w", domain.ErrUnknownArchetype)
	}
	if err := validateRules(e.rules); err != nil {
		return nil, err
	}

	if e.cacheSize > 0 {
		cache, err := lru.New[domain.PersonalityCode, Result](e.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("classify: cache: %w", err)
		}
		e.cache = cache
	}
	return e, nil
}

// MustNew is New for static wiring; it panics on an invalid table.
func MustNew(opts ...Option) *Engine {
	e, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Classify returns the archetype for raw. It never fails: input that does not
// normalize to the axis pattern resolves to the fallback archetype.
func (e *Engine) Classify(raw string) domain.Archetype {
	return e.Explain(raw).Archetype
}

// Explain classifies raw and reports which rule decided.
func (e *Engine) Explain(raw string) Result {
	code, err := domain.NormalizeCode(raw)
	if err != nil {
		e.logger.Debug("classify: invalid code, using fallback", "input", raw, "fallback", e.fallback)
		return Result{Input: raw, Archetype: e.fallback, Rule: FallbackRule, Fallback: true}
	}

	if e.cache != nil {
		if res, ok := e.cache.Get(code); ok {
			res.Input = raw
			return res
		}
	}

	res := Result{Input: raw, Code: code}
	if i := firstMatch(e.rules, code); i >= 0 {
		res.Archetype = e.rules[i].Archetype
		res.Rule = e.rules[i].Name
	} else {
		// Unreachable with a validated table.
		res.Archetype = e.fallback
		res.Rule = FallbackRule
		res.Fallback = true
	}

	if e.cache != nil {
		e.cache.Add(code, res)
	}
	return res
}

// Rules returns a copy of the rule table in evaluation order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}
