package ports

import (
	"context"

	"github.com/aretw0/awaken/pkg/domain"
)

// Classifier maps a raw personality code to exactly one archetype. It never fails.
type Classifier interface {
	Classify(raw string) domain.Archetype
}

// ProfileSource is read-only access to the static archetype profiles.
type ProfileSource interface {
	ProfileFor(a domain.Archetype) domain.Profile
	Archetypes() []domain.Archetype
	DivinationOutcome(a domain.Archetype) string
}

// Exporter turns a rendered reveal surface into a shareable artifact.
// It returns a locator for the artifact (a path or URI).
type Exporter interface {
	Export(ctx context.Context, name string, surface []byte) (string, error)
}
