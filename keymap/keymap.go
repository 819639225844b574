package keymap

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seifzellaban/arpeggio/piano"
)

// Hand is the half of the computer keyboard a key belongs to
type Hand int

const (
	Left Hand = iota
	Right
)

func (h Hand) String() string {
	if h == Right {
		return "right"
	}
	return "left"
}

// Octave limits for either hand
const (
	MinOctave = 0
	MaxOctave = 8
)

// Map assigns computer keys to semitones above C of the hand's octave
type Map struct {
	Left        map[string]int `yaml:"left"`
	Right       map[string]int `yaml:"right"`
	LeftOctave  int            `yaml:"leftOctave"`
	RightOctave int            `yaml:"rightOctave"`
}

// Default is the two-row layout: ZSXDCVGBHNJM for the left hand and
// R5T6YU8I9O0P for the right
func Default() *Map {
	m := &Map{
		Left:        make(map[string]int),
		Right:       make(map[string]int),
		LeftOctave:  4,
		RightOctave: 5,
	}
	for i, k := range "ZSXDCVGBHNJM" {
		m.Left[string(k)] = i
	}
	for i, k := range "R5T6YU8I9O0P" {
		m.Right[string(k)] = i
	}
	return m
}

// Load reads a YAML keymap. A missing file gives the default map; hands the
// file leaves out keep their default keys.
func Load(path string) (*Map, error) {
	m := Default()
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("error loading keymap %s: %w", path, err)
	}
	var file Map
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error unmarshaling keymap %s: %w", path, err)
	}
	if len(file.Left) > 0 {
		m.Left = normalize(file.Left)
	}
	if len(file.Right) > 0 {
		m.Right = normalize(file.Right)
	}
	if file.LeftOctave != 0 {
		m.LeftOctave = clampOctave(file.LeftOctave)
	}
	if file.RightOctave != 0 {
		m.RightOctave = clampOctave(file.RightOctave)
	}
	return m, nil
}

// Save writes the map as YAML
func (m *Map) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func normalize(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[strings.ToUpper(k)] = v
	}
	return out
}

func clampOctave(o int) int {
	return max(MinOctave, min(MaxOctave, o))
}

// Lookup finds which hand a key belongs to and its semitone offset
func (m *Map) Lookup(key string) (Hand, int, bool) {
	key = strings.ToUpper(key)
	if off, ok := m.Left[key]; ok {
		return Left, off, true
	}
	if off, ok := m.Right[key]; ok {
		return Right, off, true
	}
	return Left, 0, false
}

// Resolve maps a computer key to a piano key given both hands' octaves.
// Keys that are unmapped or land outside the keyboard return false.
func (m *Map) Resolve(key string, leftOct, rightOct int) (piano.Key, bool) {
	hand, off, ok := m.Lookup(key)
	if !ok {
		return piano.Key{}, false
	}
	oct := leftOct
	if hand == Right {
		oct = rightOct
	}
	return piano.KeyForPitch((oct+1)*12 + off)
}

// Octaves is the current octave of each hand
type Octaves struct {
	Left  int
	Right int
}

// Octaves returns the starting octaves of the map
func (m *Map) Octaves() Octaves {
	return Octaves{Left: m.LeftOctave, Right: m.RightOctave}
}

// Shift moves one hand by delta octaves, staying within range
func (o *Octaves) Shift(h Hand, delta int) {
	if h == Right {
		o.Right = clampOctave(o.Right + delta)
		return
	}
	o.Left = clampOctave(o.Left + delta)
}

// Of returns a hand's octave
func (o Octaves) Of(h Hand) int {
	if h == Right {
		return o.Right
	}
	return o.Left
}

// Span returns the lowest and highest pitch a hand can reach
func (m *Map) Span(h Hand, octave int) (lo, hi int) {
	keys := m.Left
	if h == Right {
		keys = m.Right
	}
	lo, hi = 128, -1
	for _, off := range keys {
		p := (octave+1)*12 + off
		lo = min(lo, p)
		hi = max(hi, p)
	}
	return lo, hi
}

// RepeatFilter drops terminal auto-repeat. A key arriving again within
// Window of its previous arrival is a repeat; a held key keeps extending
// the window, so it sounds once.
type RepeatFilter struct {
	Window time.Duration
	last   map[string]time.Time
}

// NewRepeatFilter returns a filter with the given window
func NewRepeatFilter(window time.Duration) *RepeatFilter {
	return &RepeatFilter{Window: window, last: make(map[string]time.Time)}
}

// Accept reports whether the key press is a fresh strike
func (f *RepeatFilter) Accept(key string, at time.Time) bool {
	key = strings.ToUpper(key)
	prev, seen := f.last[key]
	f.last[key] = at
	return !seen || at.Sub(prev) > f.Window
}
