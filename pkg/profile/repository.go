// Package profile holds the static, read-only archetype profiles.
package profile

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/aretw0/awaken/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfiles []byte

type document struct {
	Profiles []domain.Profile `yaml:"profiles"`
}

// Repository is a total, immutable table of profiles keyed by archetype.
// It is safe to share across goroutines.
type Repository struct {
	profiles map[domain.Archetype]domain.Profile
}

// New builds the repository from the embedded table.
func New() (*Repository, error) {
	return Parse(defaultProfiles)
}

// MustNew is New for process start-up; an incomplete table is fatal.
func MustNew() *Repository {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Parse builds a repository from a YAML document with a top-level "profiles" list.
func Parse(data []byte) (*Repository, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("profile: parse: %w", err)
	}
	return FromProfiles(doc.Profiles)
}

// FromProfiles validates that every declared archetype has exactly one complete profile.
func FromProfiles(list []domain.Profile) (*Repository, error) {
	r := &Repository{profiles: make(map[domain.Archetype]domain.Profile, len(list))}

	var errs []error
	for _, p := range list {
		if !p.Archetype.Valid() {
			errs = append(errs, fmt.Errorf("profile %q: %w", p.Archetype, domain.ErrUnknownArchetype))
			continue
		}
		if _, dup := r.profiles[p.Archetype]; dup {
			errs = append(errs, fmt.Errorf("profile %s: defined twice", p.Archetype))
			continue
		}
		if p.Description == "" || p.DivinationOutcome == "" || len(p.Traits) == 0 {
			errs = append(errs, fmt.Errorf("profile %s: description, traits and divination outcome are required", p.Archetype))
			continue
		}
		r.profiles[p.Archetype] = p.Clone()
	}
	for _, a := range domain.Archetypes() {
		if _, ok := r.profiles[a]; !ok {
			errs = append(errs, fmt.Errorf("profile %s: missing", a))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("profile: incomplete table: %w", err)
	}
	return r, nil
}

// ProfileFor returns a copy of the profile for a.
// Asking for an undeclared archetype is a programming defect and panics.
func (r *Repository) ProfileFor(a domain.Archetype) domain.Profile {
	p, ok := r.profiles[a]
	if !ok {
		panic(fmt.Sprintf("profile: no entry for archetype %q", a))
	}
	return p.Clone()
}

// Archetypes returns every archetype in declaration order.
func (r *Repository) Archetypes() []domain.Archetype {
	return domain.Archetypes()
}

// DivinationOutcome returns the water divination text for a.
func (r *Repository) DivinationOutcome(a domain.Archetype) string {
	return r.ProfileFor(a).DivinationOutcome
}

// All returns every profile in declaration order.
func (r *Repository) All() []domain.Profile {
	out := make([]domain.Profile, 0, len(r.profiles))
	for _, a := range domain.Archetypes() {
		out = append(out, r.ProfileFor(a))
	}
	return out
}
