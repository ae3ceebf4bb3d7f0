package divination

import (
	"time"

	"github.com/aretw0/awaken/pkg/domain"
)

// Visuals is the state of every channel at one instant.
type Visuals struct {
	Glass     float64 `json:"glass"`
	Fill      float64 `json:"fill"`
	Tint      float64 `json:"tint"`
	Particles float64 `json:"particles"`
	Leaf      float64 `json:"leaf"`
}

func (v *Visuals) ref(ch Channel) *float64 {
	switch ch {
	case ChannelGlass:
		return &v.Glass
	case ChannelFill:
		return &v.Fill
	case ChannelTint:
		return &v.Tint
	case ChannelParticles:
		return &v.Particles
	default:
		return &v.Leaf
	}
}

// track is a step anchored at an absolute offset from t0.
type track struct {
	at   time.Duration
	step Step
}

func baseTracks() []track {
	return []track{
		{at: 0, step: Step{Channel: ChannelGlass, Target: 1, Duration: VesselFade}},
		{at: FillStart, step: Step{Channel: ChannelFill, Target: FillLevel, Duration: FillDuration}},
	}
}

func tracksFor(effect Effect) []track {
	tracks := baseTracks()
	at := EffectStart
	for _, s := range effect.Steps {
		tracks = append(tracks, track{at: at, step: s})
		at += s.Duration
	}
	return tracks
}

// Sample computes the visual state of a's reveal at elapsed time since t0.
// Steps are applied in order; each interpolates from the value its channel
// held when it started.
func Sample(a domain.Archetype, elapsed time.Duration) Visuals {
	var v Visuals
	effect, err := EffectFor(a)
	if err != nil {
		return v
	}
	if elapsed > RevealAt {
		elapsed = RevealAt
	}
	for _, tr := range tracksFor(effect) {
		if elapsed < tr.at {
			continue
		}
		p := v.ref(tr.step.Channel)
		from := *p
		if tr.step.Duration <= 0 || elapsed >= tr.at+tr.step.Duration {
			*p = tr.step.Target
			continue
		}
		frac := float64(elapsed-tr.at) / float64(tr.step.Duration)
		*p = from + (tr.step.Target-from)*frac
	}
	return v
}
