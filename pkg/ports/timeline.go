package ports

import "time"

// Timeline schedules actions on a logical clock.
// Implementations are single-threaded: callers must serialize access.
type Timeline interface {
	// Now returns the current logical time.
	Now() time.Duration

	// After registers fn to run once the clock has advanced by d from Now.
	// Entries registered under the same owner can be cancelled together.
	After(owner string, d time.Duration, fn func())

	// Cancel removes every pending entry of owner and returns how many were removed.
	Cancel(owner string) int

	// Pending returns the number of entries still scheduled for owner.
	Pending(owner string) int
}
