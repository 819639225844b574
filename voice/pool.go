package voice

import (
	"errors"
	"math"

	"github.com/seifzellaban/arpeggio/debug"
)

// ErrVoiceExhausted is returned by Trigger when every channel is busy.
// The note is dropped; it is never fatal.
var ErrVoiceExhausted = errors.New("no free channel")

// Sound is something a Channel can play
type Sound interface {
	Name() string
}

// Channel is one output channel of the audio backend. All methods must be
// non-blocking.
type Channel interface {
	SetVolume(gain float64)
	Play(s Sound)
	Stop()
	FadeOut(ms float64)
	Busy() bool
}

// Mixer hands out free channels
type Mixer interface {
	// FindChannel returns an idle channel, or nil when all are busy
	FindChannel() Channel
	NumChannels() int
}

// Voice is a sounding note bound to one channel
type Voice struct {
	channel        Channel
	sound          Sound
	Gain           float64
	ScheduledEndMs float64
	HasEnd         bool

	released bool
	done     bool
}

// Sound returns what the voice is playing
func (v *Voice) Sound() Sound {
	return v.sound
}

// Done reports whether the voice has finished or been stopped
func (v *Voice) Done() bool {
	return v.done
}

// Released reports whether a stop or fade was requested
func (v *Voice) Released() bool {
	return v.released
}

// Release says how a voice should stop
type Release struct {
	Immediate bool
	FadeMs    float64
}

// Options configure a Pool
type Options struct {
	Threshold  int     // polyphony above which the limiter engages
	BaseVolume float64 // gain of a full-velocity note with the limiter off
	// ReleaseAtEnd fades voices once their scheduled end passes
	ReleaseAtEnd  bool
	EndFadeMs     float64
	DefaultFadeMs float64
}

// DefaultOptions are the values the instrument ships with
func DefaultOptions() Options {
	return Options{
		Threshold:     16,
		BaseVolume:    0.6,
		EndFadeMs:     150,
		DefaultFadeMs: 250,
	}
}

// Pool owns the live voices and the sustain pedal state
type Pool struct {
	mixer Mixer
	opts  Options

	live      []*Voice
	held      map[*Voice]struct{}
	pedalDown bool
	dropped   int
}

// NewPool creates a voice pool on top of a mixer
func NewPool(mixer Mixer, opts Options) *Pool {
	if opts.Threshold < 1 {
		opts.Threshold = 1
	}
	return &Pool{
		mixer: mixer,
		opts:  opts,
		held:  make(map[*Voice]struct{}),
	}
}

// LimiterFactor is 1 up to the threshold, then sqrt(threshold/live)
func LimiterFactor(threshold, live int) float64 {
	if live <= threshold || live <= 0 {
		return 1.0
	}
	return math.Sqrt(float64(threshold) / float64(live))
}

// FinalGain combines base volume, limiter and velocity, clamped to [0, base]
func FinalGain(base float64, threshold, live, velocity int) float64 {
	g := base * LimiterFactor(threshold, live) * float64(velocity) / 127.0
	return math.Max(0, math.Min(base, g))
}

// Prune forgets voices whose channel went idle. With ReleaseAtEnd set, voices
// past their scheduled end are faded (or held while the pedal is down).
func (p *Pool) Prune(nowMs float64) {
	kept := p.live[:0]
	for _, v := range p.live {
		if !v.channel.Busy() {
			v.done = true
			delete(p.held, v)
			continue
		}
		if p.opts.ReleaseAtEnd && v.HasEnd && !v.released && nowMs >= v.ScheduledEndMs {
			if _, held := p.held[v]; !held {
				p.NoteOff(v, p.opts.EndFadeMs)
			}
		}
		kept = append(kept, v)
	}
	// clear the tail so dropped voices can be collected
	for i := len(kept); i < len(p.live); i++ {
		p.live[i] = nil
	}
	p.live = kept
}

// Trigger starts a sound at the given velocity. The live set is pruned first
// so the limiter sees the real polyphony.
func (p *Pool) Trigger(sound Sound, velocity int) (*Voice, error) {
	p.Prune(math.Inf(-1))

	gain := FinalGain(p.opts.BaseVolume, p.opts.Threshold, len(p.live), velocity)

	ch := p.mixer.FindChannel()
	if ch == nil {
		p.dropped++
		debug.Warn("voice", "no free channels, note %s dropped (live=%d dropped=%d)", sound.Name(), len(p.live), p.dropped)
		return nil, ErrVoiceExhausted
	}

	ch.SetVolume(gain)
	ch.Play(sound)

	v := &Voice{channel: ch, sound: sound, Gain: gain}
	p.live = append(p.live, v)
	debug.LogEvery(64, "voice", "trigger %s gain=%.3f live=%d", sound.Name(), gain, len(p.live))
	return v, nil
}

// TriggerUntil is Trigger for a note with a known end time
func (p *Pool) TriggerUntil(sound Sound, velocity int, endMs float64) (*Voice, error) {
	v, err := p.Trigger(sound, velocity)
	if err != nil {
		return nil, err
	}
	v.ScheduledEndMs = endMs
	v.HasEnd = true
	return v, nil
}

// Release stops or fades a voice and drops it from the held set. Releasing a
// nil, finished or already released voice does nothing.
func (p *Pool) Release(v *Voice, r Release) {
	if v == nil || v.done || v.released {
		return
	}
	delete(p.held, v)
	v.released = true
	if r.Immediate || r.FadeMs <= 0 {
		v.channel.Stop()
		v.done = true
		return
	}
	v.channel.FadeOut(r.FadeMs)
}

// NoteOff is a key release: while the pedal is down the voice keeps ringing
// and joins the held set, otherwise it fades out.
func (p *Pool) NoteOff(v *Voice, fadeMs float64) {
	if v == nil || v.done || v.released {
		return
	}
	if p.pedalDown {
		p.SustainHold(v)
		return
	}
	if fadeMs <= 0 {
		fadeMs = p.opts.DefaultFadeMs
	}
	p.Release(v, Release{FadeMs: fadeMs})
}

// SustainHold keeps a voice ringing until the pedal comes up
func (p *Pool) SustainHold(v *Voice) {
	if v == nil || v.done || v.released {
		return
	}
	p.held[v] = struct{}{}
}

// SustainRelease lets a single held voice go with a fade
func (p *Pool) SustainRelease(v *Voice, fadeMs float64) {
	if _, ok := p.held[v]; !ok {
		return
	}
	p.Release(v, Release{FadeMs: fadeMs})
}

// SetPedal moves the sustain pedal. Going up fades every held voice and
// empties the held set. Repeating the current state does nothing.
func (p *Pool) SetPedal(down bool, fadeMs float64) {
	if down == p.pedalDown {
		return
	}
	p.pedalDown = down
	if down {
		return
	}
	n := len(p.held)
	for v := range p.held {
		p.Release(v, Release{FadeMs: fadeMs})
	}
	clear(p.held)
	if n > 0 {
		debug.Log("voice", "pedal up, fading %d held voices", n)
	}
}

// PedalDown reports the pedal state
func (p *Pool) PedalDown() bool {
	return p.pedalDown
}

// IsHeld reports whether a voice is sustained by the pedal
func (p *Pool) IsHeld(v *Voice) bool {
	_, ok := p.held[v]
	return ok
}

// StopAll stops every live voice immediately
func (p *Pool) StopAll() {
	for _, v := range p.live {
		p.Release(v, Release{Immediate: true})
	}
	clear(p.held)
}

// Live returns the number of voices in the live set
func (p *Pool) Live() int {
	return len(p.live)
}

// Held returns the number of pedal-held voices
func (p *Pool) Held() int {
	return len(p.held)
}

// Dropped returns how many notes found no free channel
func (p *Pool) Dropped() int {
	return p.dropped
}

// Capacity is the number of channels behind the pool
func (p *Pool) Capacity() int {
	return p.mixer.NumChannels()
}
