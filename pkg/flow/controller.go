// Package flow threads the personality code and archetype across the
// quiz, ritual, divination and reveal screens. It decides nothing.
package flow

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/identity"
	"github.com/aretw0/awaken/pkg/ports"
)

// Query keys of the navigation contract.
const (
	ParamCode      = "code"
	ParamArchetype = "archetype"
)

var next = map[domain.Stage]domain.Stage{
	domain.StageQuiz:       domain.StageRitual,
	domain.StageRitual:     domain.StageDivination,
	domain.StageDivination: domain.StageReveal,
}

// Handoff carries the parameters from one stage to the next.
type Handoff struct {
	From   domain.Stage  `json:"from"`
	To     domain.Stage  `json:"to"`
	Params domain.Params `json:"params"`
}

// RevealView is the read-only content of the final screen.
type RevealView struct {
	Archetype         domain.Archetype `json:"archetype"`
	Profile           domain.Profile   `json:"profile"`
	DivinationOutcome string           `json:"divination_outcome"`
	Code              string           `json:"code"`
	DisplayName       string           `json:"display_name"`
	ShareText         string           `json:"share_text"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithIdentity sets the provider consulted for the display name.
func WithIdentity(p identity.Provider) Option {
	return func(c *Controller) { c.identity = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// Controller is stateless and safe to share.
type Controller struct {
	classifier ports.Classifier
	profiles   ports.ProfileSource
	identity   identity.Provider
	logger     *slog.Logger
}

// New creates a controller.
func New(classifier ports.Classifier, profiles ports.ProfileSource, opts ...Option) *Controller {
	c := &Controller{
		classifier: classifier,
		profiles:   profiles,
		identity:   identity.Anonymous{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start classifies the quiz result and hands off to the ritual.
// The raw code is carried forward as received.
func (c *Controller) Start(code string) Handoff {
	a := c.classifier.Classify(code)
	c.logger.Debug("quiz result classified", "archetype", a)
	return Handoff{
		From:   domain.StageQuiz,
		To:     domain.StageRitual,
		Params: domain.Params{Code: code, Archetype: a},
	}
}

// Advance hands the parameters from one stage to the next, unchanged.
func (c *Controller) Advance(from domain.Stage, code string, archetype domain.Archetype) (Handoff, error) {
	if !archetype.Valid() {
		return Handoff{}, fmt.Errorf("flow: advance from %s: %w", from, domain.ErrMissingArchetype)
	}
	to, ok := next[from]
	if !ok {
		return Handoff{}, fmt.Errorf("flow: no stage after %s: %w", from, domain.ErrInvalidTransition)
	}
	return Handoff{
		From:   from,
		To:     to,
		Params: domain.Params{Code: code, Archetype: archetype},
	}, nil
}

// Reveal builds the final screen for p.
func (c *Controller) Reveal(p domain.Params) (RevealView, error) {
	if !p.Archetype.Valid() {
		return RevealView{}, fmt.Errorf("flow: reveal: %w", domain.ErrMissingArchetype)
	}
	return RevealView{
		Archetype:         p.Archetype,
		Profile:           c.profiles.ProfileFor(p.Archetype),
		DivinationOutcome: c.profiles.DivinationOutcome(p.Archetype),
		Code:              p.Code,
		DisplayName:       identity.DisplayName(c.identity),
		ShareText:         ShareText(p.Archetype),
	}, nil
}

// ShareText is the message attached to an exported result.
func ShareText(a domain.Archetype) string {
	return fmt.Sprintf("I discovered my Nen type! I'm a %s type. Find out yours!", a)
}

// Query encodes p as navigation parameters.
func Query(p domain.Params) url.Values {
	v := url.Values{}
	v.Set(ParamCode, p.Code)
	v.Set(ParamArchetype, string(p.Archetype))
	return v
}

// ParamsFromQuery decodes navigation parameters. The archetype is required.
func ParamsFromQuery(v url.Values) (domain.Params, error) {
	name := v.Get(ParamArchetype)
	if name == "" {
		return domain.Params{}, fmt.Errorf("flow: %w", domain.ErrMissingArchetype)
	}
	a, err := domain.ParseArchetype(name)
	if err != nil {
		return domain.Params{}, fmt.Errorf("flow: %w", err)
	}
	return domain.Params{Code: v.Get(ParamCode), Archetype: a}, nil
}
