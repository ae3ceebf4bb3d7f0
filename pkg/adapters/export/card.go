// Package export renders the reveal screen as a shareable markdown card
// and writes it through a loam repository.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/aretw0/awaken/pkg/flow"
)

// Card renders view as markdown.
func Card(view flow.RevealView) []byte {
	var b bytes.Buffer
	p := view.Profile

	fmt.Fprintf(&b, "# %s\n\n", view.Archetype)
	if view.DisplayName != "" {
		fmt.Fprintf(&b, "**%s**", view.DisplayName)
		if view.Code != "" {
			fmt.Fprintf(&b, " · %s", view.Code)
		}
		b.WriteString("\n\n")
	}
	if p.Element != "" {
		fmt.Fprintf(&b, "Element: %s\n\n", p.Element)
	}
	if view.DivinationOutcome != "" {
		fmt.Fprintf(&b, "> %s\n\n", view.DivinationOutcome)
	}
	b.WriteString(strings.TrimSpace(p.Description))
	b.WriteString("\n\n")

	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		for _, it := range items {
			fmt.Fprintf(&b, "- %s\n", it)
		}
		b.WriteString("\n")
	}
	list("Traits", p.Traits)
	list("Known Users", p.Exemplars)

	if p.SuggestedAbility != "" {
		fmt.Fprintf(&b, "## Suggested Ability\n\n%s\n\n", p.SuggestedAbility)
	}
	if view.ShareText != "" {
		fmt.Fprintf(&b, "---\n\n%s\n", view.ShareText)
	}
	return b.Bytes()
}
