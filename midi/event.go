package midi

import gomidi "gitlab.com/gomidi/midi/v2"

// EventType is the kind of a live input event
type EventType uint8

// MIDI message types
const (
	NoteOn  EventType = 0x90
	NoteOff EventType = 0x80
	CC      EventType = 0xB0
)

// CCSustain is the damper pedal controller
const CCSustain = 64

// Event is one message from a keyboard. For CC, Note is the controller
// number and Velocity its value.
type Event struct {
	Type     EventType
	Channel  uint8
	Note     uint8
	Velocity uint8
}

// Sustain reports whether the event is a pedal move, and its direction
func (e Event) Sustain() (down, ok bool) {
	if e.Type != CC || e.Note != CCSustain {
		return false, false
	}
	return e.Velocity >= 64, true
}

// Decode converts a raw message into an Event. Note-on with velocity 0 is a
// note-off. Messages other than notes and control changes are dropped.
func Decode(msg gomidi.Message) (Event, bool) {
	var channel, note, velocity uint8
	switch {
	case msg.GetNoteStart(&channel, &note, &velocity):
		return Event{Type: NoteOn, Channel: channel, Note: note, Velocity: velocity}, true
	case msg.GetNoteEnd(&channel, &note):
		return Event{Type: NoteOff, Channel: channel, Note: note}, true
	case msg.GetControlChange(&channel, &note, &velocity):
		return Event{Type: CC, Channel: channel, Note: note, Velocity: velocity}, true
	}
	return Event{}, false
}
