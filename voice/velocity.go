package voice

import "time"

// VelocitySensor fakes keybed velocity for on/off computer keys. Two presses
// of different notes close together read as a harder strike: the gap is
// mapped linearly from MaxVelocity (at FastGap or less) down to MinVelocity
// (at SlowGap). Presses with no recent neighbour get DefaultVelocity.
type VelocitySensor struct {
	FastGap         time.Duration
	SlowGap         time.Duration
	MinVelocity     int
	MaxVelocity     int
	DefaultVelocity int

	lastNote int
	lastAt   time.Time
	seen     bool
}

// NewVelocitySensor returns a sensor with the given band
func NewVelocitySensor(fast, slow time.Duration, minVel, maxVel, defaultVel int) *VelocitySensor {
	if slow < fast {
		fast, slow = slow, fast
	}
	if minVel > maxVel {
		minVel, maxVel = maxVel, minVel
	}
	return &VelocitySensor{
		FastGap:         fast,
		SlowGap:         slow,
		MinVelocity:     clampVelocity(minVel),
		MaxVelocity:     clampVelocity(maxVel),
		DefaultVelocity: clampVelocity(defaultVel),
	}
}

// Press records a key-down and returns the velocity to play it at
func (s *VelocitySensor) Press(note int, at time.Time) int {
	vel := s.DefaultVelocity
	if s.seen && note != s.lastNote {
		if gap := at.Sub(s.lastAt); gap >= 0 && gap < s.SlowGap {
			vel = s.ramp(gap)
		}
	}
	s.lastNote = note
	s.lastAt = at
	s.seen = true
	return vel
}

func (s *VelocitySensor) ramp(gap time.Duration) int {
	if gap <= s.FastGap {
		return s.MaxVelocity
	}
	span := float64(s.SlowGap - s.FastGap)
	frac := float64(gap-s.FastGap) / span
	v := float64(s.MaxVelocity) - frac*float64(s.MaxVelocity-s.MinVelocity)
	return clampVelocity(int(v + 0.5))
}

func clampVelocity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return v
}
