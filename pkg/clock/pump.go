package clock

import (
	"context"
	"time"
)

// Advancer is anything that can be driven by elapsed time.
type Advancer interface {
	Advance(d time.Duration) int
}

// AdvanceFunc adapts a function to Advancer.
type AdvanceFunc func(d time.Duration) int

func (f AdvanceFunc) Advance(d time.Duration) int { return f(d) }

// Pump feeds wall-clock deltas into an Advancer.
type Pump struct {
	target   Advancer
	interval time.Duration
	speed    float64
	now      func() time.Time
}

// PumpOption configures a Pump.
type PumpOption func(*Pump)

// WithSpeed scales elapsed wall time (2 runs the ritual twice as fast).
func WithSpeed(speed float64) PumpOption {
	return func(p *Pump) {
		if speed > 0 {
			p.speed = speed
		}
	}
}

// WithNow overrides the wall clock.
func WithNow(now func() time.Time) PumpOption {
	return func(p *Pump) {
		p.now = now
	}
}

// NewPump creates a pump that samples the wall clock every interval.
func NewPump(target Advancer, interval time.Duration, opts ...PumpOption) *Pump {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	p := &Pump{
		target:   target,
		interval: interval,
		speed:    1,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run advances the target until ctx is done. It always returns ctx.Err().
func (p *Pump) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last := p.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := p.now()
			elapsed := now.Sub(last)
			last = now
			if elapsed <= 0 {
				continue
			}
			p.target.Advance(time.Duration(float64(elapsed) * p.speed))
		}
	}
}
