package audio

import (
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/seifzellaban/arpeggio/debug"
	"github.com/seifzellaban/arpeggio/voice"
)

// Mixer is a fixed set of speaker channels. Each channel plays at most one
// sample at a time; the speaker goroutine mixes them.
type Mixer struct {
	sampleRate beep.SampleRate
	channels   []*Channel
	play       func(s beep.Streamer)
	lock       func()
	unlock     func()
}

// NewMixer initialises the speaker and returns a mixer with n channels
func NewMixer(sampleRate beep.SampleRate, bufferDur time.Duration, n int) (*Mixer, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(bufferDur)); err != nil {
		return nil, err
	}
	debug.Log("audio", "speaker ready: %d Hz, %d channels", sampleRate, n)
	return newMixer(sampleRate, n, func(s beep.Streamer) { speaker.Play(s) }, speaker.Lock, speaker.Unlock), nil
}

func newMixer(sampleRate beep.SampleRate, n int, play func(beep.Streamer), lock, unlock func()) *Mixer {
	m := &Mixer{
		sampleRate: sampleRate,
		play:       play,
		lock:       lock,
		unlock:     unlock,
	}
	for i := 0; i < n; i++ {
		m.channels = append(m.channels, &Channel{id: i, mixer: m, gain: 1})
	}
	return m
}

// SampleRate is the output rate samples must match
func (m *Mixer) SampleRate() beep.SampleRate {
	return m.sampleRate
}

// FindChannel returns the first idle channel, or nil
func (m *Mixer) FindChannel() voice.Channel {
	for _, c := range m.channels {
		if !c.busy.Load() {
			return c
		}
	}
	return nil
}

// NumChannels returns the channel count
func (m *Mixer) NumChannels() int {
	return len(m.channels)
}

// Close silences every channel
func (m *Mixer) Close() {
	for _, c := range m.channels {
		c.Stop()
	}
}

// Channel is one voice slot on the speaker
type Channel struct {
	id    int
	mixer *Mixer
	gain  float64
	busy  atomic.Bool

	// guarded by the speaker lock
	current *noteStreamer
}

// SetVolume sets the gain for the next Play
func (c *Channel) SetVolume(gain float64) {
	c.gain = gain
}

// Play starts a sample. Anything already on the channel is cut.
func (c *Channel) Play(s voice.Sound) {
	sample, ok := s.(*Sample)
	if !ok || sample.buf == nil {
		return
	}
	ns := &noteStreamer{
		src:  sample.buf.Streamer(0, sample.buf.Len()),
		gain: c.gain,
	}
	ns.onDone = func() {
		// a newer note may own the channel already
		if c.current == ns {
			c.busy.Store(false)
		}
	}

	c.mixer.lock()
	if c.current != nil {
		c.current.stopped = true
	}
	c.current = ns
	c.busy.Store(true)
	c.mixer.unlock()

	c.mixer.play(ns)
}

// Stop cuts the channel immediately
func (c *Channel) Stop() {
	c.mixer.lock()
	if c.current != nil {
		c.current.stopped = true
		c.current = nil
	}
	c.busy.Store(false)
	c.mixer.unlock()
}

// FadeOut ramps the channel to silence over ms, then frees it
func (c *Channel) FadeOut(ms float64) {
	n := c.mixer.sampleRate.N(time.Duration(ms * float64(time.Millisecond)))
	c.mixer.lock()
	if c.current != nil {
		c.current.fade(n)
	}
	c.mixer.unlock()
}

// Busy reports whether a sample is still sounding
func (c *Channel) Busy() bool {
	return c.busy.Load()
}

// noteStreamer scales a sample by a gain and an optional linear fade
type noteStreamer struct {
	src       beep.Streamer
	gain      float64
	fadeTotal int
	fadeLeft  int
	stopped   bool
	finished  bool
	onDone    func()
}

func (n *noteStreamer) fade(samples int) {
	if samples <= 0 {
		n.stopped = true
		return
	}
	if n.fadeTotal > 0 {
		return // already fading
	}
	n.fadeTotal = samples
	n.fadeLeft = samples
}

func (n *noteStreamer) Stream(samples [][2]float64) (int, bool) {
	if n.stopped || n.finished {
		n.finish()
		return 0, false
	}
	got, ok := n.src.Stream(samples)
	for i := 0; i < got; i++ {
		g := n.gain
		if n.fadeTotal > 0 {
			if n.fadeLeft <= 0 {
				n.finish()
				return i, i > 0
			}
			g *= float64(n.fadeLeft) / float64(n.fadeTotal)
			n.fadeLeft--
		}
		samples[i][0] *= g
		samples[i][1] *= g
	}
	if !ok || got == 0 {
		n.finish()
		return got, got > 0
	}
	return got, true
}

func (n *noteStreamer) Err() error {
	return n.src.Err()
}

func (n *noteStreamer) finish() {
	if n.finished {
		return
	}
	n.finished = true
	if n.onDone != nil {
		n.onDone()
	}
}
