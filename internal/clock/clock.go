// Package clock abstracts time for deterministic tests.
package clock

import "time"

// Clock supplies the current time. Aggregation jobs take a Clock so
// tests can pin "today".
type Clock interface {
	Now() time.Time
}

// SystemClock returns wall-clock time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Fixed is a Clock pinned to a single instant.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }
