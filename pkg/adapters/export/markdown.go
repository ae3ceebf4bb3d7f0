package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
)

// Markdown writes cards as markdown documents under Dir.
type Markdown struct {
	Dir string
	Now func() time.Time
}

// NewMarkdown creates an exporter rooted at dir.
func NewMarkdown(dir string) *Markdown {
	return &Markdown{Dir: dir, Now: time.Now}
}

// Export saves surface as <slug(name)>.md and returns its path.
func (m *Markdown) Export(ctx context.Context, name string, surface []byte) (string, error) {
	slug := Slug(name)
	if slug == "" {
		return "", fmt.Errorf("export: empty name %q", name)
	}
	abs, err := filepath.Abs(m.Dir)
	if err != nil {
		return "", fmt.Errorf("export: resolve %s: %w", m.Dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}

	repo, err := loam.Init(abs, loam.WithVersioning(false), loam.WithForceTemp(false))
	if err != nil {
		return "", fmt.Errorf("export: init repository: %w", err)
	}

	id := slug + ".md"
	err = repo.Save(ctx, core.Document{
		ID:      id,
		Content: string(surface),
		Metadata: core.Metadata{
			"title":       name,
			"exported_at": m.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("export: save %s: %w", id, err)
	}
	return filepath.Join(abs, id), nil
}

// Slug lowercases name and collapses every run of other characters to '-'.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
