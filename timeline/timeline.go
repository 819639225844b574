package timeline

import (
	"sort"

	"github.com/seifzellaban/arpeggio/debug"
	"github.com/seifzellaban/arpeggio/piano"
)

// Mode selects how note messages become events
type Mode int

const (
	// FireOnly emits one start-only event per note-on
	FireOnly Mode = iota
	// Duration pairs note-on with the following note-off of the same pitch
	Duration
)

func (m Mode) String() string {
	if m == Duration {
		return "duration"
	}
	return "fire"
}

// ParseMode maps a config string to a Mode; unknown strings are FireOnly
func ParseMode(s string) Mode {
	if s == "duration" {
		return Duration
	}
	return FireOnly
}

// NoteEvent is one note of a performance. EndMs is only meaningful when
// HasEnd is set (Duration mode).
type NoteEvent struct {
	StartMs  float64
	EndMs    float64
	HasEnd   bool
	Key      piano.Key
	Pitch    uint8
	Velocity uint8
}

// Timeline is an immutable, start-ordered list of note events
type Timeline struct {
	events   []NoteEvent
	mode     Mode
	skipped  int
	unclosed int
}

// Len returns the number of events
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.events)
}

// At returns event i
func (t *Timeline) At(i int) NoteEvent {
	return t.events[i]
}

// Events returns the events. Callers must not modify the slice.
func (t *Timeline) Events() []NoteEvent {
	if t == nil {
		return nil
	}
	return t.events
}

// Mode returns the mode the timeline was built with
func (t *Timeline) Mode() Mode {
	if t == nil {
		return FireOnly
	}
	return t.mode
}

// Skipped counts notes whose pitch is outside the keyboard
func (t *Timeline) Skipped() int {
	if t == nil {
		return 0
	}
	return t.skipped
}

// Unclosed counts duration-mode notes that never got a note-off
func (t *Timeline) Unclosed() int {
	if t == nil {
		return 0
	}
	return t.unclosed
}

// DurationMs returns the latest start or end time in the timeline
func (t *Timeline) DurationMs() float64 {
	var d float64
	for _, ev := range t.Events() {
		end := ev.StartMs
		if ev.HasEnd {
			end = ev.EndMs
		}
		if end > d {
			d = end
		}
	}
	return d
}

// Kind classifies an input message
type Kind int

const (
	Other Kind = iota
	NoteOn
	NoteOff
)

// Message is one source message: time since the previous message, plus the
// note data. This is the shape any MIDI reader has to produce.
type Message struct {
	DeltaSec float64
	Kind     Kind
	Pitch    uint8
	Velocity uint8
}

type pending struct {
	startSec float64
	velocity uint8
	seq      int
}

type ordered struct {
	ev  NoteEvent
	seq int
}

// Build turns messages (in file order) into a timeline.
//
// In Duration mode a second note-on for a pitch that is already sounding
// replaces the pending start: the earlier note is lost. This matches how the
// performances were recorded and is covered by a regression test.
func Build(msgs []Message, mode Mode) *Timeline {
	t := &Timeline{mode: mode}
	var out []ordered
	active := make(map[uint8]pending)
	elapsed := 0.0

	emit := func(pitch uint8, startSec, endSec float64, hasEnd bool, velocity uint8, seq int) {
		key, ok := piano.KeyForPitch(int(pitch))
		if !ok {
			t.skipped++
			return
		}
		ev := NoteEvent{
			StartMs:  startSec * 1000,
			HasEnd:   hasEnd,
			Key:      key,
			Pitch:    pitch,
			Velocity: velocity,
		}
		if hasEnd {
			ev.EndMs = endSec * 1000
		}
		out = append(out, ordered{ev: ev, seq: seq})
	}

	for i, m := range msgs {
		elapsed += m.DeltaSec

		on := m.Kind == NoteOn && m.Velocity > 0
		off := m.Kind == NoteOff || (m.Kind == NoteOn && m.Velocity == 0)

		switch {
		case on && mode == FireOnly:
			emit(m.Pitch, elapsed, 0, false, m.Velocity, i)
		case on:
			active[m.Pitch] = pending{startSec: elapsed, velocity: m.Velocity, seq: i}
		case off && mode == Duration:
			p, ok := active[m.Pitch]
			if !ok {
				continue
			}
			delete(active, m.Pitch)
			emit(m.Pitch, p.startSec, elapsed, true, p.velocity, p.seq)
		}
	}
	t.unclosed = len(active)

	// Ties keep the order the note-ons appeared in the file
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].ev.StartMs != out[b].ev.StartMs {
			return out[a].ev.StartMs < out[b].ev.StartMs
		}
		return out[a].seq < out[b].seq
	})

	t.events = make([]NoteEvent, len(out))
	for i, o := range out {
		t.events[i] = o.ev
	}

	if t.skipped > 0 || t.unclosed > 0 {
		debug.Log("timeline", "built %d events (%s), skipped=%d unclosed=%d", len(t.events), mode, t.skipped, t.unclosed)
	}
	return t
}
