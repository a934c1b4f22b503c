// Package clock abstracts the current time so window and deadline math is
// testable without touching the system clock.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the real clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. Tests use it to pin window
// boundaries.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T }

// NewFixed returns a Fixed clock at the given instant.
func NewFixed(t time.Time) Fixed { return Fixed{T: t} }
