package runner

import (
	"context"

	"github.com/aretw0/awaken/pkg/divination"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
)

// Screen is one frame presented to the user.
type Screen struct {
	Stage domain.Stage `json:"stage"`
	Phase string       `json:"phase,omitempty"`
	Title string       `json:"title,omitempty"`
	// Body is markdown; text handlers may render it.
	Body string `json:"body,omitempty"`

	Remaining int                 `json:"remaining,omitempty"`
	Mark      string              `json:"mark,omitempty"`
	Visuals   *divination.Visuals `json:"visuals,omitempty"`
	Reveal    *flow.RevealView    `json:"reveal,omitempty"`

	// NeedsInput is set when the runner reads a line after this screen.
	NeedsInput bool `json:"needs_input,omitempty"`
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents a screen.
	Output(ctx context.Context, s Screen) error

	// Input reads a response from the user.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (errors, recovery choices)
	// distinct from screen content.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms markdown before it is written (e.g. glamour).
type ContentRenderer func(string) (string, error)
