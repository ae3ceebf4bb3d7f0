package domain

import "time"

// RitualPhase is the phase of the countdown ritual.
type RitualPhase string

const (
	RitualInstruction RitualPhase = "instruction" // Waiting for the user to begin
	RitualCounting    RitualPhase = "counting"    // One-second ticks are armed
	RitualComplete    RitualPhase = "complete"    // Terminal; completion pending or signalled
)

// DivinationPhase is the phase of the reveal animation.
type DivinationPhase string

const (
	DivinationSetup     DivinationPhase = "setup"
	DivinationAnimating DivinationPhase = "animating"
	DivinationRevealed  DivinationPhase = "revealed"
)

// Stage names the screen a flow is currently on.
type Stage string

const (
	StageQuiz       Stage = "quiz"
	StageRitual     Stage = "ritual"
	StageDivination Stage = "divination"
	StageReveal     Stage = "reveal"
)

// Params are the two opaque values threaded across every stage boundary.
type Params struct {
	Code      string    `json:"code"`
	Archetype Archetype `json:"archetype"`
}

// RitualSession is a snapshot of the countdown screen.
type RitualSession struct {
	ID        string      `json:"id"`
	Phase     RitualPhase `json:"phase"`
	Remaining int         `json:"remaining"`
	StartedAt time.Time   `json:"started_at"`
}

// DivinationSession is a snapshot of the reveal screen.
type DivinationSession struct {
	ID        string          `json:"id"`
	Phase     DivinationPhase `json:"phase"`
	Archetype Archetype       `json:"archetype"`
	Elapsed   time.Duration   `json:"elapsed"`
}

// FlowRecord is the serializable snapshot of one user's flow.
// Stores keep it for adapters; live timers are never persisted.
type FlowRecord struct {
	ID         string             `json:"id"`
	Stage      Stage              `json:"stage"`
	Params     Params             `json:"params"`
	Ritual     *RitualSession     `json:"ritual,omitempty"`
	Divination *DivinationSession `json:"divination,omitempty"`

	// Outcome is only set once the divination has been revealed.
	Outcome string `json:"outcome,omitempty"`

	// Sealed holds the whole record encrypted when a store seals records at rest.
	// A sealed envelope keeps only ID, Stage and the timestamps in clear.
	Sealed string `json:"sealed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a copy that does not share session pointers with r.
func (r *FlowRecord) Snapshot() *FlowRecord {
	out := *r
	if r.Ritual != nil {
		ritual := *r.Ritual
		out.Ritual = &ritual
	}
	if r.Divination != nil {
		div := *r.Divination
		out.Divination = &div
	}
	return &out
}
