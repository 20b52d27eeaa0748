// Package system provides a real clock implementation.
package system

import "time"

// Clock implements tracker.Clock using time.Now. Timestamps are always UTC so
// last_seen values compare consistently across runs.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
