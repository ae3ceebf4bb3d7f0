package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/awaken/internal/presentation/tui"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/profile"
	"github.com/spf13/cobra"
)

var archetypesCmd = &cobra.Command{
	Use:   "archetypes [name]",
	Short: "Show the six Nen types, or one of them in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles, err := loadProfiles(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			for _, p := range profiles.All() {
				fmt.Fprintf(out, "%-12s %-8s %s\n", p.Archetype, p.Element, p.DivinationOutcome)
			}
			return nil
		}

		a, err := domain.ParseArchetype(args[0])
		if err != nil {
			return err
		}
		p := profiles.ProfileFor(a)
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n%s\n\n## Traits\n\n", p.Archetype, p.Description)
		for _, t := range p.Traits {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		fmt.Fprintf(&b, "\n## Known Users\n\n")
		for _, e := range p.Exemplars {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		fmt.Fprintf(&b, "\n**Suggested Ability:** %s\n", p.SuggestedAbility)

		render := tui.NewRenderer(tui.DefaultWordWrap)
		rendered, _ := render(b.String())
		fmt.Fprint(out, rendered)
		return nil
	},
}

func loadProfiles(ctx context.Context) (*profile.Repository, error) {
	if cfg.Profiles.Dir != "" {
		return profile.LoadDir(ctx, cfg.Profiles.Dir)
	}
	return profile.New()
}

func init() {
	rootCmd.AddCommand(archetypesCmd)
}
