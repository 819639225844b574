package sequencer

import "time"

// Clock reports the current time in milliseconds. Only differences matter.
type Clock interface {
	NowMs() float64
}

// WallClock measures time since it was created
type WallClock struct {
	start time.Time
}

// NewWallClock starts a wall clock at zero
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

func (c *WallClock) NowMs() float64 {
	return float64(time.Since(c.start)) / float64(time.Millisecond)
}

// ManualClock is advanced by hand. Used by tests and the dump tool.
type ManualClock struct {
	Ms float64
}

func (c *ManualClock) NowMs() float64 {
	return c.Ms
}

// Advance moves the clock forward
func (c *ManualClock) Advance(ms float64) {
	c.Ms += ms
}
