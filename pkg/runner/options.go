package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/awaken/pkg/identity"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithHeadless advances the virtual clock without waiting and skips every
// "press enter" prompt. The quiz code must then come from WithCode.
func WithHeadless(headless bool) Option {
	return func(r *Runner) {
		r.Headless = headless
	}
}

// WithSpeed scales wall time when not headless. Values <= 0 mean 1.
func WithSpeed(speed float64) Option {
	return func(r *Runner) {
		r.Speed = speed
	}
}

// WithInterval sets how often the wall-clock pump advances the timeline.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.Interval = d
	}
}

// WithCode skips the quiz prompt.
func WithCode(code string) Option {
	return func(r *Runner) {
		r.Code = code
	}
}

// WithFlowID sets the flow ID. Empty lets the manager mint one.
func WithFlowID(id string) Option {
	return func(r *Runner) {
		r.FlowID = id
	}
}

// WithIdentity asks for a display name when p is a signed-out identity.Session.
func WithIdentity(p identity.Provider) Option {
	return func(r *Runner) {
		r.Identity = p
	}
}
