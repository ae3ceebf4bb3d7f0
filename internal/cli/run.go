package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/aretw0/awaken/internal/config"
	"github.com/aretw0/awaken/pkg/identity"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	Config   config.Config
	Code     string
	Name     string
	FlowID   string
	TUI      bool
	Headless bool
	JSON     bool
	Debug    bool
	// Speed overrides Config.Clock.Speed when positive.
	Speed float64
	// ExportDir receives the reveal card as markdown when set.
	ExportDir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Execute handles the 'run' command logic, dispatching to the TUI or the line runner.
func Execute(ctx context.Context, opts RunOptions) error {
	if opts.TUI && (opts.Headless || opts.JSON) {
		return errors.New("--tui cannot be combined with --headless or --json")
	}
	if opts.Headless && opts.Code == "" {
		return errors.New("--headless needs --code")
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Speed > 0 {
		opts.Config.Clock.Speed = opts.Speed
	}
	if opts.Name != "" {
		opts.Config.Identity = identity.Config{Strategy: identity.StrategyStatic, DisplayName: opts.Name}
	}

	if opts.TUI {
		return RunTUI(ctx, opts)
	}
	return RunSession(ctx, opts)
}
