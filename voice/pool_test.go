package voice

import (
	"errors"
	"math"
	"testing"
	"time"
)

type fakeSound string

func (s fakeSound) Name() string { return string(s) }

type fakeChannel struct {
	busy    bool
	volume  float64
	playing Sound
	fadeMs  float64
	stops   int
}

func (c *fakeChannel) SetVolume(g float64) { c.volume = g }
func (c *fakeChannel) Play(s Sound)        { c.playing = s; c.busy = true; c.fadeMs = 0 }
func (c *fakeChannel) Stop()               { c.busy = false; c.stops++ }
func (c *fakeChannel) FadeOut(ms float64)  { c.fadeMs = ms }
func (c *fakeChannel) Busy() bool          { return c.busy }

// finish simulates the sample (or a fade) running out
func (c *fakeChannel) finish() { c.busy = false }

type fakeMixer struct {
	channels []*fakeChannel
}

func newFakeMixer(n int) *fakeMixer {
	m := &fakeMixer{}
	for i := 0; i < n; i++ {
		m.channels = append(m.channels, &fakeChannel{})
	}
	return m
}

func (m *fakeMixer) FindChannel() Channel {
	for _, c := range m.channels {
		if !c.busy {
			return c
		}
	}
	return nil
}

func (m *fakeMixer) NumChannels() int { return len(m.channels) }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestLimiterFactor(t *testing.T) {
	tests := []struct {
		threshold, live int
		want            float64
	}{
		{16, 0, 1},
		{16, 16, 1},
		{16, 64, 0.5},
		{16, 17, math.Sqrt(16.0 / 17.0)},
		{4, 400, 0.1},
	}
	for _, tt := range tests {
		if got := LimiterFactor(tt.threshold, tt.live); !approx(got, tt.want) {
			t.Errorf("LimiterFactor(%d, %d) = %v, want %v", tt.threshold, tt.live, got, tt.want)
		}
	}
}

func TestFinalGain(t *testing.T) {
	if got := FinalGain(0.6, 16, 64, 127); !approx(got, 0.3) {
		t.Errorf("FinalGain = %v, want 0.3", got)
	}
	if got := FinalGain(0.6, 16, 0, 200); got != 0.6 {
		t.Errorf("over-range velocity not clamped: %v", got)
	}
	if got := FinalGain(0.6, 16, 0, -5); got != 0 {
		t.Errorf("negative velocity not clamped: %v", got)
	}
}

// The limiter sees the polyphony before the new voice is added
func TestTriggerAppliesLimiter(t *testing.T) {
	m := newFakeMixer(128)
	p := NewPool(m, Options{Threshold: 16, BaseVolume: 0.6})
	for i := 0; i < 64; i++ {
		if _, err := p.Trigger(fakeSound("n"), 127); err != nil {
			t.Fatal(err)
		}
	}
	v, err := p.Trigger(fakeSound("n"), 127)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(v.Gain, 0.3) {
		t.Errorf("gain = %v, want 0.3", v.Gain)
	}
	if ch := m.channels[64]; !approx(ch.volume, 0.3) || ch.playing != Sound(fakeSound("n")) {
		t.Errorf("channel volume=%v playing=%v", ch.volume, ch.playing)
	}
}

func TestTriggerPrunesFinishedVoices(t *testing.T) {
	m := newFakeMixer(4)
	p := NewPool(m, DefaultOptions())
	a, _ := p.Trigger(fakeSound("a"), 100)
	p.Trigger(fakeSound("b"), 100)
	m.channels[0].finish()

	p.Trigger(fakeSound("c"), 100)
	if p.Live() != 2 {
		t.Errorf("live = %d, want 2", p.Live())
	}
	if !a.Done() {
		t.Error("finished voice not marked done")
	}
}

func TestVoiceExhaustion(t *testing.T) {
	m := newFakeMixer(8)
	p := NewPool(m, DefaultOptions())
	for i := 0; i < 20; i++ {
		v, err := p.Trigger(fakeSound("x"), 90)
		if i < 8 {
			if err != nil || v == nil {
				t.Fatalf("trigger %d failed: %v", i, err)
			}
		} else if !errors.Is(err, ErrVoiceExhausted) || v != nil {
			t.Fatalf("trigger %d = %v, %v; want exhausted", i, v, err)
		}
		if p.Live() > p.Capacity() {
			t.Fatalf("live %d exceeds capacity %d", p.Live(), p.Capacity())
		}
	}
	if p.Dropped() != 12 {
		t.Errorf("dropped = %d", p.Dropped())
	}
}

func TestReleaseImmediateAndFade(t *testing.T) {
	m := newFakeMixer(2)
	p := NewPool(m, DefaultOptions())
	a, _ := p.Trigger(fakeSound("a"), 100)
	b, _ := p.Trigger(fakeSound("b"), 100)

	p.Release(a, Release{Immediate: true})
	if m.channels[0].busy || !a.Done() {
		t.Error("immediate release did not stop")
	}
	p.Release(b, Release{FadeMs: 300})
	if m.channels[1].fadeMs != 300 || !b.Released() {
		t.Errorf("fade = %v", m.channels[1].fadeMs)
	}

	// repeats and nil are no-ops
	p.Release(a, Release{Immediate: true})
	p.Release(nil, Release{})
	if m.channels[0].stops != 1 {
		t.Errorf("stops = %d", m.channels[0].stops)
	}
}

func TestPedalHoldsAndReleases(t *testing.T) {
	m := newFakeMixer(4)
	p := NewPool(m, DefaultOptions())

	a, _ := p.Trigger(fakeSound("A"), 100)
	p.SetPedal(true, 400)
	p.NoteOff(a, 0)

	if !p.IsHeld(a) || a.Released() || !m.channels[0].busy {
		t.Fatal("voice should ring on while the pedal is down")
	}
	if m.channels[0].fadeMs != 0 {
		t.Error("held voice started fading")
	}

	p.SetPedal(false, 400)
	if p.Held() != 0 {
		t.Errorf("held = %d after pedal up", p.Held())
	}
	if !a.Released() || m.channels[0].fadeMs != 400 {
		t.Errorf("pedal up did not fade: fade=%v", m.channels[0].fadeMs)
	}

	// idempotent
	p.SetPedal(false, 400)
	p.SetPedal(false, 400)
}

func TestNoteOffWithoutPedalFades(t *testing.T) {
	m := newFakeMixer(1)
	p := NewPool(m, DefaultOptions())
	a, _ := p.Trigger(fakeSound("A"), 100)
	p.NoteOff(a, 0)
	if m.channels[0].fadeMs != DefaultOptions().DefaultFadeMs {
		t.Errorf("fade = %v", m.channels[0].fadeMs)
	}
}

func TestSustainReleaseSingleVoice(t *testing.T) {
	m := newFakeMixer(2)
	p := NewPool(m, DefaultOptions())
	a, _ := p.Trigger(fakeSound("A"), 100)
	b, _ := p.Trigger(fakeSound("B"), 100)
	p.SustainHold(a)
	p.SustainHold(b)
	p.SustainRelease(a, 100)
	if p.IsHeld(a) || !p.IsHeld(b) || !a.Released() {
		t.Errorf("held a=%v b=%v", p.IsHeld(a), p.IsHeld(b))
	}
}

func TestPruneReleasesAtScheduledEnd(t *testing.T) {
	m := newFakeMixer(2)
	opts := DefaultOptions()
	opts.ReleaseAtEnd = true
	p := NewPool(m, opts)

	v, _ := p.TriggerUntil(fakeSound("A"), 100, 500)
	p.Prune(499)
	if v.Released() {
		t.Fatal("released before end")
	}
	p.Prune(500)
	if !v.Released() || m.channels[0].fadeMs != opts.EndFadeMs {
		t.Errorf("not released at end, fade=%v", m.channels[0].fadeMs)
	}

	// with the pedal down the voice is held instead
	p.SetPedal(true, 300)
	w, _ := p.TriggerUntil(fakeSound("B"), 100, 600)
	p.Prune(700)
	if w.Released() || !p.IsHeld(w) {
		t.Error("pedal should hold a voice past its end")
	}
}

func TestStopAll(t *testing.T) {
	m := newFakeMixer(3)
	p := NewPool(m, DefaultOptions())
	for i := 0; i < 3; i++ {
		p.Trigger(fakeSound("x"), 100)
	}
	p.StopAll()
	p.Prune(0)
	if p.Live() != 0 {
		t.Errorf("live = %d", p.Live())
	}
}

func TestVelocitySensor(t *testing.T) {
	s := NewVelocitySensor(20*time.Millisecond, 120*time.Millisecond, 40, 127, 100)
	t0 := time.Unix(0, 0)

	if v := s.Press(60, t0); v != 100 {
		t.Errorf("first press = %d", v)
	}
	if v := s.Press(64, t0.Add(10*time.Millisecond)); v != 127 {
		t.Errorf("fast press = %d", v)
	}
	// halfway between 20ms and 120ms
	if v := s.Press(67, t0.Add(80*time.Millisecond)); v != 84 {
		t.Errorf("mid press = %d, want 84", v)
	}
	// same note again is not a chord
	if v := s.Press(67, t0.Add(85*time.Millisecond)); v != 100 {
		t.Errorf("repeat press = %d", v)
	}
	if v := s.Press(72, t0.Add(time.Second)); v != 100 {
		t.Errorf("slow press = %d", v)
	}
}
