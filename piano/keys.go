package piano

import "fmt"

// PitchClass says whether a key is a white or a black key
type PitchClass int

const (
	White PitchClass = iota
	Black
)

func (c PitchClass) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// Keyboard range: A0 (21) to C8 (108)
const (
	LowestPitch  = 21
	HighestPitch = 108

	NumWhite = 52
	NumBlack = 36
)

// NoteName is a sharp-spelled note like "C#4"
type NoteName string

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Flat spellings, used for black key sample files ("Bb0.wav")
var flatNames = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

// Key identifies one physical key by class and 0-based index within that class
type Key struct {
	Class PitchClass
	Index int
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%d]", k.Class, k.Index)
}

// Valid reports whether the index exists in the 52/36 layout
func (k Key) Valid() bool {
	switch k.Class {
	case White:
		return k.Index >= 0 && k.Index < NumWhite
	case Black:
		return k.Index >= 0 && k.Index < NumBlack
	}
	return false
}

// Name returns the sharp-spelled label ("A#0"), or "" for an invalid key
func (k Key) Name() NoteName {
	if !k.Valid() {
		return ""
	}
	if k.Class == Black {
		return blackNames[k.Index]
	}
	return whiteNames[k.Index]
}

// SampleName returns the file stem of the key's sample ("Bb0" for A#0)
func (k Key) SampleName() string {
	p, ok := k.Pitch()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s%d", flatNames[p%12], p/12-1)
}

// Pitch returns the MIDI pitch of the key
func (k Key) Pitch() (int, bool) {
	if !k.Valid() {
		return 0, false
	}
	if k.Class == Black {
		return blackPitches[k.Index], true
	}
	return whitePitches[k.Index], true
}

// Lookup tables, built once from the pitch range
var (
	whiteNames   []NoteName
	blackNames   []NoteName
	whitePitches []int
	blackPitches []int
	byName       map[NoteName]Key
)

func init() {
	byName = make(map[NoteName]Key, NumWhite+NumBlack)
	for p := LowestPitch; p <= HighestPitch; p++ {
		name, _ := ToNoteName(p)
		if isBlack(p) {
			byName[name] = Key{Class: Black, Index: len(blackNames)}
			blackNames = append(blackNames, name)
			blackPitches = append(blackPitches, p)
		} else {
			byName[name] = Key{Class: White, Index: len(whiteNames)}
			whiteNames = append(whiteNames, name)
			whitePitches = append(whitePitches, p)
		}
	}
}

func isBlack(pitch int) bool {
	switch pitch % 12 {
	case 1, 3, 6, 8, 10:
		return true
	}
	return false
}

// ToNoteName converts a MIDI pitch to "<letter><octave>", octave = pitch/12 - 1.
// Returns false outside [0,127].
func ToNoteName(pitch int) (NoteName, bool) {
	if pitch < 0 || pitch > 127 {
		return "", false
	}
	return NoteName(fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12-1)), true
}

// Classify looks a note name up in the rendered keyboard. Names outside the
// 88 keys return false and the caller skips the note.
func Classify(name NoteName) (Key, bool) {
	k, ok := byName[name]
	return k, ok
}

// KeyForPitch is ToNoteName followed by Classify
func KeyForPitch(pitch int) (Key, bool) {
	name, ok := ToNoteName(pitch)
	if !ok {
		return Key{}, false
	}
	return Classify(name)
}

// WhiteNames returns the 52 white key labels, lowest first
func WhiteNames() []NoteName {
	return append([]NoteName(nil), whiteNames...)
}

// BlackNames returns the 36 black key labels, lowest first
func BlackNames() []NoteName {
	return append([]NoteName(nil), blackNames...)
}

// AllKeys returns every key, whites first
func AllKeys() []Key {
	keys := make([]Key, 0, NumWhite+NumBlack)
	for i := 0; i < NumWhite; i++ {
		keys = append(keys, Key{Class: White, Index: i})
	}
	for i := 0; i < NumBlack; i++ {
		keys = append(keys, Key{Class: Black, Index: i})
	}
	return keys
}
