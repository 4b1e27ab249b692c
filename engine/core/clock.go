package core

import "time"

// Clock measures frame time for the main loop. A zero Clock is stopped.
type Clock struct {
	start time.Time
	last  time.Time
	now   func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Start resets the clock. The first Tick after Start measures from here.
func (c *Clock) Start() {
	c.start = c.now()
	c.last = c.start
}

// Tick returns the seconds since the previous Tick, or since Start.
// Returns zero on a stopped clock.
func (c *Clock) Tick() float64 {
	if c.start.IsZero() {
		return 0
	}
	t := c.now()
	delta := t.Sub(c.last)
	c.last = t
	return delta.Seconds()
}

// Elapsed returns the seconds from Start to the last Tick.
func (c *Clock) Elapsed() float64 {
	if c.start.IsZero() {
		return 0
	}
	return c.last.Sub(c.start).Seconds()
}

func (c *Clock) Stop() {
	c.start = time.Time{}
	c.last = time.Time{}
}
