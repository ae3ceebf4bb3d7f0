package domain

import "errors"

// ErrInvalidCode is returned when a personality code does not normalize to the four-axis pattern.
var ErrInvalidCode = errors.New("invalid personality code")

// ErrUnknownArchetype is returned when a name does not match any declared archetype.
var ErrUnknownArchetype = errors.New("unknown archetype")

// ErrMissingArchetype is returned when a handoff carries no archetype.
// It signals a programming defect, not a user-facing condition.
var ErrMissingArchetype = errors.New("missing archetype")

// ErrInvalidTransition is returned when an action is not allowed in the current phase.
var ErrInvalidTransition = errors.New("invalid phase transition")

// ErrNotRevealed is returned when the outcome is requested before the Revealed phase.
var ErrNotRevealed = errors.New("outcome not revealed yet")

// ErrSessionNotFound is returned when a flow ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")
