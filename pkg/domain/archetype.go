package domain

import (
	"fmt"
	"strings"
)

// Archetype is one of the six fixed classification outcomes.
type Archetype string

const (
	Enhancer    Archetype = "Enhancer"
	Transmuter  Archetype = "Transmuter"
	Conjurer    Archetype = "Conjurer"
	Specialist  Archetype = "Specialist"
	Manipulator Archetype = "Manipulator"
	Emitter     Archetype = "Emitter"
)

var archetypes = [...]Archetype{Enhancer, Transmuter, Conjurer, Specialist, Manipulator, Emitter}

// Archetypes returns every archetype in declaration order.
// The order is used for fallback and display, never for ranking.
func Archetypes() []Archetype {
	out := make([]Archetype, len(archetypes))
	copy(out, archetypes[:])
	return out
}

// Valid reports whether a is one of the declared archetypes.
func (a Archetype) Valid() bool {
	for _, known := range archetypes {
		if a == known {
			return true
		}
	}
	return false
}

func (a Archetype) String() string {
	return string(a)
}

// ParseArchetype resolves a name case-insensitively.
func ParseArchetype(name string) (Archetype, error) {
	name = strings.TrimSpace(name)
	for _, known := range archetypes {
		if strings.EqualFold(name, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownArchetype, name)
}
