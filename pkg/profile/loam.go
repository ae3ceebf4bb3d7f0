package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/awaken/pkg/domain"
)

// Metadata is the frontmatter of a profile document.
// The markdown body, when present, replaces the description.
type Metadata struct {
	Archetype         string   `json:"archetype" mapstructure:"archetype"`
	Traits            []string `json:"traits" mapstructure:"traits"`
	Exemplars         []string `json:"exemplars" mapstructure:"exemplars"`
	SuggestedAbility  string   `json:"suggested_ability" mapstructure:"suggested_ability"`
	DivinationOutcome string   `json:"divination_outcome" mapstructure:"divination_outcome"`
	Element           string   `json:"element" mapstructure:"element"`
	Color             string   `json:"color" mapstructure:"color"`
}

// LoadDir opens dir as a read-only Loam repository and overlays its
// documents on the embedded table. Fields absent from a document keep
// their embedded values, so a directory may override a single archetype.
func LoadDir(ctx context.Context, dir string) (*Repository, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("profile: resolve %s: %w", dir, err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("profile: init loam: %w", err)
	}
	return Overlay(ctx, loam.NewTypedRepository[Metadata](repo))
}

// Overlay merges every document of repo into the embedded table.
func Overlay(ctx context.Context, repo *loam.TypedRepository[Metadata]) (*Repository, error) {
	base, err := New()
	if err != nil {
		return nil, err
	}

	docs, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("profile: loam list failed: %w", err)
	}

	merged := make(map[domain.Archetype]domain.Profile, len(base.profiles))
	for a, p := range base.profiles {
		merged[a] = p
	}

	seen := make(map[domain.Archetype]string)
	for _, entry := range docs {
		// List carries metadata only; the body comes from Get.
		doc, err := repo.Get(ctx, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("profile: loam get failed for %s: %w", entry.ID, err)
		}
		name := doc.Data.Archetype
		if name == "" {
			name = trimExtension(doc.ID)
		}
		a, err := domain.ParseArchetype(name)
		if err != nil {
			return nil, fmt.Errorf("profile: document %s: %w", doc.ID, err)
		}
		if prev, ok := seen[a]; ok {
			return nil, fmt.Errorf("profile: archetype %s defined in both %s and %s", a, prev, doc.ID)
		}
		seen[a] = doc.ID
		merged[a] = apply(merged[a], doc.Data, doc.Content)
	}

	list := make([]domain.Profile, 0, len(merged))
	for _, a := range domain.Archetypes() {
		list = append(list, merged[a])
	}
	return FromProfiles(list)
}

func apply(p domain.Profile, meta Metadata, body string) domain.Profile {
	if s := strings.TrimSpace(body); s != "" {
		p.Description = s
	}
	if len(meta.Traits) > 0 {
		p.Traits = append([]string(nil), meta.Traits...)
	}
	if len(meta.Exemplars) > 0 {
		p.Exemplars = append([]string(nil), meta.Exemplars...)
	}
	if meta.SuggestedAbility != "" {
		p.SuggestedAbility = meta.SuggestedAbility
	}
	if meta.DivinationOutcome != "" {
		p.DivinationOutcome = meta.DivinationOutcome
	}
	if meta.Element != "" {
		p.Element = meta.Element
	}
	if meta.Color != "" {
		p.Color = meta.Color
	}
	return p
}

func trimExtension(id string) string {
	base := filepath.Base(filepath.ToSlash(id))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
