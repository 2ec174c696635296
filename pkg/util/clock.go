package util

import "time"

// Clock abstracts wall-clock reads so freshness windows and timestamps
// can be controlled in tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
