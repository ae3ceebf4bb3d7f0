package runner

import (
	"fmt"
	"strings"

	"github.com/aretw0/awaken/pkg/divination"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/ritual"
)

const quizPrompt = `Enter your four-letter personality code (for example INTJ or esfp).

You can also paste the questionnaire's result message as JSON.`

const ritualInstructions = `Prepare to focus your life energy and awaken your Nen.

1. Find a quiet space and sit comfortably
2. Close your eyes and breathe deeply
3. Focus your mind on your inner energy
4. Visualize your aura flowing around you
5. Maintain concentration for %d seconds

Press Enter to begin the ritual.`

const divinationInstructions = `Place your hands around the glass and focus your aura into the water.

This ancient technique will reveal your Nen type through the water's reaction to your aura.
Each type produces a unique change in the water.

Press Enter to begin the divination.`

func welcomeScreen() Screen {
	return Screen{
		Stage:      domain.StageQuiz,
		Title:      "Welcome, Hunter",
		Body:       "What should we call you? Leave it empty to stay anonymous.",
		NeedsInput: true,
	}
}

func quizScreen() Screen {
	return Screen{Stage: domain.StageQuiz, Title: "Nen Quiz", Body: quizPrompt, NeedsInput: true}
}

func ritualScreen() Screen {
	return Screen{
		Stage:      domain.StageRitual,
		Phase:      string(domain.RitualInstruction),
		Title:      "Aura Awakening Ritual",
		Body:       fmt.Sprintf(ritualInstructions, ritual.DefaultCountdown),
		Remaining:  ritual.DefaultCountdown,
		NeedsInput: true,
	}
}

func divinationScreen() Screen {
	return Screen{
		Stage:      domain.StageDivination,
		Phase:      string(domain.DivinationSetup),
		Title:      "Water Divination",
		Body:       divinationInstructions,
		NeedsInput: true,
	}
}

// eventScreen turns a phase event into a frame. ok is false for events
// that have nothing to show.
func eventScreen(e domain.PhaseEvent) (s Screen, ok bool) {
	s = Screen{Stage: e.Stage, Phase: e.Phase}
	switch {
	case e.Stage == domain.StageRitual && e.Type == domain.EventPhaseEnter && e.Phase == string(domain.RitualCounting):
		s.Remaining = e.Remaining
		s.Body = "Focus your aura... Breathe deeply and concentrate."
	case e.Stage == domain.StageRitual && e.Type == domain.EventTick:
		s.Remaining = e.Remaining
		s.Body = countdown(e.Remaining)
	case e.Stage == domain.StageRitual && e.Type == domain.EventComplete:
		s.Title = "Aura Awakened!"
		s.Body = "Proceeding to water divination..."
	case e.Stage == domain.StageDivination && e.Type == domain.EventEffect:
		s.Mark = e.Effect
		s.Body = "Focus your aura..."
	case e.Stage == domain.StageDivination && e.Type == domain.EventComplete:
		s.Body = "The water has answered."
	default:
		return Screen{}, false
	}
	return s, true
}

func countdown(n int) string {
	if n <= 0 {
		return "0"
	}
	return fmt.Sprintf("%d %s", n, strings.Repeat("•", n))
}

// Gauge renders channel values as short bars for text output.
func Gauge(v divination.Visuals) string {
	bar := func(name string, x, scale float64) string {
		width := int(10 * x / scale)
		if width < 0 {
			width = 0
		}
		if width > 12 {
			width = 12
		}
		return fmt.Sprintf("%-9s %s %.2f", name, strings.Repeat("█", width), x)
	}
	return strings.Join([]string{
		bar("glass", v.Glass, 1),
		bar("water", v.Fill, 1),
		bar("tint", v.Tint, 1),
		bar("particles", v.Particles, 1),
		bar("leaf", v.Leaf, 360),
	}, "\n")
}
