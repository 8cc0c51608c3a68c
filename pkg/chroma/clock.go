package chroma

import "time"

// Clock abstracts time so the tick loop and tests share one source.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock reports a settable instant. Test helper.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time          { return c.T }
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }
