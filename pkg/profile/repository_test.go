package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/awaken/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CoversEveryArchetype(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	for _, a := range domain.Archetypes() {
		p := r.ProfileFor(a)
		assert.Equal(t, a, p.Archetype)
		assert.NotEmpty(t, p.Description, a)
		assert.NotEmpty(t, p.Traits, a)
		assert.NotEmpty(t, p.DivinationOutcome, a)
	}
	assert.Len(t, r.All(), 6)
}

func TestDivinationOutcomes(t *testing.T) {
	r := MustNew()
	want := map[domain.Archetype]string{
		domain.Enhancer:    "The water overflows from the glass",
		domain.Transmuter:  "The taste of the water changes",
		domain.Conjurer:    "Impurities appear in the water",
		domain.Specialist:  "A completely different change occurs",
		domain.Manipulator: "A leaf on the water moves",
		domain.Emitter:     "The color of the water changes",
	}
	for a, text := range want {
		assert.Equal(t, text, r.DivinationOutcome(a))
	}
}

func TestProfileFor_ReturnsCopy(t *testing.T) {
	r := MustNew()

	first := r.ProfileFor(domain.Conjurer)
	first.Traits[0] = "mutated"
	first.Description = "mutated"

	second := r.ProfileFor(domain.Conjurer)
	assert.NotEqual(t, "mutated", second.Traits[0])
	assert.NotEqual(t, "mutated", second.Description)
}

func TestProfileFor_UnknownPanics(t *testing.T) {
	r := MustNew()
	assert.Panics(t, func() { r.ProfileFor(domain.Archetype("Healer")) })
}

func TestFromProfiles_Incomplete(t *testing.T) {
	r := MustNew()
	all := r.All()

	_, err := FromProfiles(all[:5])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Emitter")

	dup := append(all, all[0])
	_, err = FromProfiles(dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defined twice")

	bad := r.All()
	bad[2].DivinationOutcome = ""
	_, err = FromProfiles(bad)
	require.Error(t, err)
}

func TestParse_RejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("profiles: {"))
	assert.Error(t, err)
}

func TestLoadDir_OverlaysDocuments(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"emitter.md": `---
traits:
  - Loud
---
Emitters throw their aura.`,
		"notes.md": `---
archetype: specialist
element: shadow
---
`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	r, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)

	emitter := r.ProfileFor(domain.Emitter)
	assert.Equal(t, "Emitters throw their aura.", emitter.Description)
	assert.Equal(t, []string{"Loud"}, emitter.Traits)
	assert.Equal(t, "The color of the water changes", emitter.DivinationOutcome)

	specialist := r.ProfileFor(domain.Specialist)
	assert.Equal(t, "shadow", specialist.Element)
	assert.NotEmpty(t, specialist.Description)

	assert.Equal(t, MustNew().ProfileFor(domain.Enhancer), r.ProfileFor(domain.Enhancer))
}

func TestLoadDir_UnknownArchetype(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "healer.md"), []byte("---\ntraits: [kind]\n---\nHeals.\n"), 0644))

	_, err := LoadDir(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownArchetype)
}
