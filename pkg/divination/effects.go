package divination

import (
	"fmt"
	"time"

	"github.com/aretw0/awaken/pkg/domain"
)

// Channel is a visual parameter animated by the reveal.
type Channel string

const (
	ChannelGlass     Channel = "glass"     // vessel opacity, 0..1
	ChannelFill      Channel = "fill"      // water level, 0..1.2
	ChannelTint      Channel = "tint"      // water colour shift, 0..1
	ChannelParticles Channel = "particles" // impurity density, 0..1.2
	ChannelLeaf      Channel = "leaf"      // leaf rotation in degrees
)

// SpringSettle is the nominal duration of a spring step.
const SpringSettle = 500 * time.Millisecond

// Step moves one channel linearly to Target over Duration.
type Step struct {
	Channel  Channel
	Target   float64
	Duration time.Duration
	Spring   bool
}

// Effect is the archetype-specific part of the reveal.
type Effect struct {
	Name  string
	Steps []Step
}

// Duration is the total length of the effect.
func (e Effect) Duration() time.Duration {
	var d time.Duration
	for _, s := range e.Steps {
		d += s.Duration
	}
	return d
}

func spring(ch Channel, target float64) Step {
	return Step{Channel: ch, Target: target, Duration: SpringSettle, Spring: true}
}

func linear(ch Channel, target float64, ms int) Step {
	return Step{Channel: ch, Target: target, Duration: time.Duration(ms) * time.Millisecond}
}

var effects = map[domain.Archetype]Effect{
	domain.Enhancer: {Name: "overflow", Steps: []Step{
		linear(ChannelFill, 1.2, 1000),
		spring(ChannelFill, 1.0),
	}},
	domain.Transmuter: {Name: "taste-shift", Steps: []Step{
		linear(ChannelTint, 0.8, 1000),
		linear(ChannelTint, 0.3, 500),
		linear(ChannelTint, 1, 500),
	}},
	domain.Conjurer: {Name: "impurities", Steps: []Step{
		linear(ChannelParticles, 1, 800),
		spring(ChannelParticles, 1.2),
	}},
	domain.Specialist: {Name: "double-flash", Steps: []Step{
		linear(ChannelGlass, 0.3, 500),
		linear(ChannelGlass, 1, 500),
		linear(ChannelGlass, 0.7, 300),
		linear(ChannelGlass, 1, 300),
	}},
	domain.Manipulator: {Name: "leaf-sweep", Steps: []Step{
		linear(ChannelLeaf, 180, 1000),
		linear(ChannelLeaf, 360, 1000),
		spring(ChannelLeaf, 270),
	}},
	domain.Emitter: {Name: "color-cycle", Steps: []Step{
		linear(ChannelTint, 1, 800),
		linear(ChannelTint, 0.5, 400),
		linear(ChannelTint, 1, 400),
	}},
}

// EffectFor looks up the effect of a.
func EffectFor(a domain.Archetype) (Effect, error) {
	e, ok := effects[a]
	if !ok {
		return Effect{}, fmt.Errorf("divination: no effect for %q: %w", a, domain.ErrUnknownArchetype)
	}
	return e, nil
}

// Effects returns the table in archetype declaration order.
func Effects() []Effect {
	out := make([]Effect, 0, len(effects))
	for _, a := range domain.Archetypes() {
		out = append(out, effects[a])
	}
	return out
}
