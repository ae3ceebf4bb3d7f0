// Package clock provides the virtual clock that drives every timed screen.
//
// A single Scheduler holds (offset, action) entries for all sessions. Nothing
// happens until a driver calls Advance: tests advance it by hand, production code
// feeds it wall-clock deltas through a Pump.
package clock

import (
	"sort"
	"time"
)

type entry struct {
	owner string
	at    time.Duration
	seq   uint64
	fn    func()
}

// Scheduler is a logical clock with an ordered list of pending actions.
// It implements ports.Timeline. It is not safe for concurrent use.
type Scheduler struct {
	now     time.Duration
	seq     uint64
	entries []*entry
}

// New creates a scheduler whose clock starts at zero.
func New() *Scheduler {
	return &Scheduler{}
}

// Now returns the current logical time.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// After registers fn to run when the clock reaches Now()+d.
// Negative delays are clamped to zero.
func (s *Scheduler) After(owner string, d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	s.seq++
	e := &entry{owner: owner, at: s.now + d, seq: s.seq, fn: fn}

	// Keep entries sorted by (at, seq) so Advance can pop from the front.
	i := sort.Search(len(s.entries), func(i int) bool {
		other := s.entries[i]
		return other.at > e.at || (other.at == e.at && other.seq > e.seq)
	})
	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

// Cancel removes every pending entry of owner.
func (s *Scheduler) Cancel(owner string) int {
	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.owner == owner {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept
	return removed
}

// Pending returns the number of entries scheduled for owner.
func (s *Scheduler) Pending(owner string) int {
	n := 0
	for _, e := range s.entries {
		if e.owner == owner {
			n++
		}
	}
	return n
}

// Len returns the total number of pending entries.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

// Advance moves the clock forward by d, running every entry that falls due,
// in (time, registration) order. The clock is set to each entry's due time
// before its action runs, so actions that schedule follow-ups relative to Now
// stay aligned to the logical timeline. Follow-ups that fall due inside the
// window run in the same call. Returns the number of actions run.
func (s *Scheduler) Advance(d time.Duration) int {
	if d < 0 {
		d = 0
	}
	target := s.now + d
	ran := 0
	for len(s.entries) > 0 && s.entries[0].at <= target {
		e := s.entries[0]
		s.entries[0] = nil
		s.entries = s.entries[1:]
		s.now = e.at
		e.fn()
		ran++
	}
	s.now = target
	return ran
}

// Drain advances until no entry is pending or the limit is reached,
// jumping straight to each due time. It returns the logical time consumed.
func (s *Scheduler) Drain(limit time.Duration) time.Duration {
	start := s.now
	for len(s.entries) > 0 {
		next := s.entries[0].at
		if next-start > limit {
			break
		}
		s.Advance(next - s.now)
	}
	return s.now - start
}
