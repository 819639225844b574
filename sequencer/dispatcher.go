package sequencer

import (
	"github.com/seifzellaban/arpeggio/debug"
	"github.com/seifzellaban/arpeggio/timeline"
	"github.com/seifzellaban/arpeggio/voice"
)

// Trigger sounds one timeline event. It returns the voice it started, or nil
// when the note was dropped.
type Trigger interface {
	TriggerEvent(ev timeline.NoteEvent) *voice.Voice
}

// TriggerFunc adapts a function to Trigger
type TriggerFunc func(ev timeline.NoteEvent) *voice.Voice

func (f TriggerFunc) TriggerEvent(ev timeline.NoteEvent) *voice.Voice {
	return f(ev)
}

// Dispatcher walks a timeline against a clock. It owns the cursor and the
// voices it started; live input never goes through it.
type Dispatcher struct {
	pool    *voice.Pool
	trigger Trigger

	// StopFadeMs is the fade applied to playback voices on Stop
	StopFadeMs float64

	tl        *timeline.Timeline
	cursor    int
	playStart float64
	active    bool
	voices    []*voice.Voice

	onComplete func()
}

// NewDispatcher creates an idle dispatcher
func NewDispatcher(pool *voice.Pool, trigger Trigger) *Dispatcher {
	return &Dispatcher{
		pool:       pool,
		trigger:    trigger,
		StopFadeMs: 300,
	}
}

// OnComplete sets a callback run once each time playback reaches the end
func (d *Dispatcher) OnComplete(fn func()) {
	d.onComplete = fn
}

// Start begins playback of tl. Events become due leadInMs after nowMs.
// A running playback is stopped first.
func (d *Dispatcher) Start(tl *timeline.Timeline, nowMs, leadInMs float64) {
	if d.active {
		d.Stop()
	}
	d.tl = tl
	d.cursor = 0
	d.playStart = nowMs + leadInMs
	d.active = true
	debug.Log("play", "start: %d events, lead-in %.0fms", tl.Len(), leadInMs)
}

// Tick dispatches every event due at nowMs, in timeline order, and returns
// how many were dispatched. A slow frame dispatches all overdue events at once.
func (d *Dispatcher) Tick(nowMs float64) int {
	if !d.active {
		return 0
	}
	d.forgetFinished()

	elapsed := nowMs - d.playStart
	n := 0
	for d.cursor < d.tl.Len() {
		ev := d.tl.At(d.cursor)
		if ev.StartMs > elapsed {
			break
		}
		if v := d.trigger.TriggerEvent(ev); v != nil {
			d.voices = append(d.voices, v)
		}
		d.cursor++
		n++
	}

	if d.cursor >= d.tl.Len() {
		d.active = false
		debug.Log("play", "finished after %d events", d.cursor)
		if d.onComplete != nil {
			d.onComplete()
		}
	}
	return n
}

// Stop deactivates playback and fades every voice playback started. Safe to
// call at any time, any number of times.
func (d *Dispatcher) Stop() {
	if d.active {
		debug.Log("play", "stopped at %d/%d", d.cursor, d.tl.Len())
	}
	d.active = false
	for _, v := range d.voices {
		d.pool.Release(v, voice.Release{FadeMs: d.StopFadeMs})
	}
	d.voices = d.voices[:0]
}

// forgetFinished drops voices the pool has already retired
func (d *Dispatcher) forgetFinished() {
	kept := d.voices[:0]
	for _, v := range d.voices {
		if !v.Done() {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(d.voices); i++ {
		d.voices[i] = nil
	}
	d.voices = kept
}

// IsActive reports whether events remain to be dispatched
func (d *Dispatcher) IsActive() bool {
	return d.active
}

// Progress returns the cursor and the timeline length
func (d *Dispatcher) Progress() (cursor, total int) {
	return d.cursor, d.tl.Len()
}

// PlayTimeMs converts a clock time to timeline time. It is negative during
// the lead-in.
func (d *Dispatcher) PlayTimeMs(nowMs float64) float64 {
	return nowMs - d.playStart
}

// Voices returns how many playback voices are being tracked
func (d *Dispatcher) Voices() int {
	return len(d.voices)
}
