package sequencer

import (
	"errors"

	"github.com/seifzellaban/arpeggio/debug"
	"github.com/seifzellaban/arpeggio/piano"
	"github.com/seifzellaban/arpeggio/preview"
	"github.com/seifzellaban/arpeggio/timeline"
	"github.com/seifzellaban/arpeggio/voice"
)

var (
	// ErrNoSound means the bank has no sample for the key. The key still lights.
	ErrNoSound = errors.New("no sample for key")
	// ErrNothingLoaded is returned by Play before a file has been loaded
	ErrNothingLoaded = errors.New("no performance loaded")
)

// SoundBank maps keys to playable sounds
type SoundBank interface {
	Sound(k piano.Key) (voice.Sound, bool)
}

// Options tune a Manager
type Options struct {
	Mode     timeline.Mode
	Voice    voice.Options
	Geometry preview.Geometry

	HighlightFrames int     // how long a struck key stays lit
	StopFadeMs      float64 // playback voices on Stop
	ReleaseFadeMs   float64 // live key release
	PedalFadeMs     float64 // held voices on pedal up
}

// DefaultOptions are the stock instrument settings
func DefaultOptions() Options {
	return Options{
		Mode:            timeline.FireOnly,
		Voice:           voice.DefaultOptions(),
		Geometry:        preview.DefaultGeometry(),
		HighlightFrames: 30,
		StopFadeMs:      300,
		ReleaseFadeMs:   250,
		PedalFadeMs:     400,
	}
}

// Manager is one playing session: the loaded timeline, its dispatcher and
// preview, the voice pool and the lit keys. Every method must be called from
// the loop that calls Tick.
type Manager struct {
	clock  Clock
	sounds SoundBank
	opts   Options

	pool       *voice.Pool
	dispatcher *Dispatcher
	projector  *preview.Projector
	highlights *Highlights

	tl      *timeline.Timeline
	path    string
	started bool

	// live voices by key, from keyboard and mouse input
	live map[piano.Key]*voice.Voice
}

// NewManager creates a session on top of a mixer
func NewManager(mixer voice.Mixer, sounds SoundBank, clock Clock, opts Options) *Manager {
	if opts.HighlightFrames <= 0 {
		opts.HighlightFrames = DefaultOptions().HighlightFrames
	}
	m := &Manager{
		clock:      clock,
		sounds:     sounds,
		opts:       opts,
		pool:       voice.NewPool(mixer, opts.Voice),
		projector:  preview.NewProjector(opts.Geometry),
		highlights: NewHighlights(),
		live:       make(map[piano.Key]*voice.Voice),
	}
	m.dispatcher = NewDispatcher(m.pool, TriggerFunc(m.triggerEvent))
	m.dispatcher.StopFadeMs = opts.StopFadeMs
	return m
}

// OnComplete sets a callback run when playback reaches the end of the file
func (m *Manager) OnComplete(fn func()) {
	m.dispatcher.OnComplete(fn)
}

// Load parses a MIDI file and makes it the current performance, returning
// the number of events. On error nothing changes: the previous performance
// stays loaded and keeps playing.
func (m *Manager) Load(path string) (int, error) {
	tl, err := timeline.Load(path, m.opts.Mode)
	if err != nil {
		debug.Warn("session", "load %s: %v", path, err)
		return 0, err
	}
	m.SetTimeline(tl)
	m.path = path
	return tl.Len(), nil
}

// SetTimeline stops playback and replaces the performance
func (m *Manager) SetTimeline(tl *timeline.Timeline) {
	m.Stop()
	m.tl = tl
	m.path = ""
	m.projector.SetTimeline(tl)
	debug.Log("session", "timeline: %d events (%s), %d skipped, %d unclosed",
		tl.Len(), tl.Mode(), tl.Skipped(), tl.Unclosed())
}

// Play starts the loaded performance after a lead-in
func (m *Manager) Play(leadInMs float64) error {
	if m.tl == nil {
		return ErrNothingLoaded
	}
	m.dispatcher.Start(m.tl, m.clock.NowMs(), leadInMs)
	m.started = true
	return nil
}

// LoadAndPlay loads path and starts it
func (m *Manager) LoadAndPlay(path string, leadInMs float64) (int, error) {
	n, err := m.Load(path)
	if err != nil {
		return 0, err
	}
	return n, m.Play(leadInMs)
}

// Stop ends playback and fades playback voices. Live voices keep sounding.
func (m *Manager) Stop() {
	m.dispatcher.Stop()
	m.started = false
}

// IsActive reports whether playback is dispatching
func (m *Manager) IsActive() bool {
	return m.dispatcher.IsActive()
}

// Progress returns dispatched and total events
func (m *Manager) Progress() (cursor, total int) {
	if m.tl == nil {
		return 0, 0
	}
	return m.dispatcher.Progress()
}

// PlayTimeMs is the playback position, negative during the lead-in
func (m *Manager) PlayTimeMs() float64 {
	if !m.started {
		return 0
	}
	return m.dispatcher.PlayTimeMs(m.clock.NowMs())
}

// Path returns the file the current performance came from
func (m *Manager) Path() string {
	return m.path
}

// Timeline returns the current performance, or nil
func (m *Manager) Timeline() *timeline.Timeline {
	return m.tl
}

func (m *Manager) sound(k piano.Key) (voice.Sound, error) {
	if m.sounds == nil {
		return nil, ErrNoSound
	}
	s, ok := m.sounds.Sound(k)
	if !ok {
		return nil, ErrNoSound
	}
	return s, nil
}

// triggerEvent plays one timeline event for the dispatcher
func (m *Manager) triggerEvent(ev timeline.NoteEvent) *voice.Voice {
	m.highlights.Press(ev.Key, m.opts.HighlightFrames)
	s, err := m.sound(ev.Key)
	if err != nil {
		debug.LogEvery(32, "session", "event %s: %v", ev.Key.Name(), err)
		return nil
	}
	if ev.HasEnd {
		v, err := m.pool.TriggerUntil(s, int(ev.Velocity), m.dispatcher.playStart+ev.EndMs)
		if err != nil {
			return nil
		}
		return v
	}
	v, err := m.pool.Trigger(s, int(ev.Velocity))
	if err != nil {
		return nil
	}
	return v
}

// TriggerNote strikes a key from live input. The key lights for the
// highlight duration; the voice rings until it ends or ReleaseNote.
func (m *Manager) TriggerNote(k piano.Key, velocity int) (*voice.Voice, error) {
	if !k.Valid() {
		return nil, ErrNoSound
	}
	m.highlights.Press(k, m.opts.HighlightFrames)
	return m.strike(k, velocity)
}

// HoldNote strikes a key that stays lit until ReleaseNote, for keyboards that
// report key-up
func (m *Manager) HoldNote(k piano.Key, velocity int) (*voice.Voice, error) {
	if !k.Valid() {
		return nil, ErrNoSound
	}
	m.ReleaseNote(k)
	m.highlights.Hold(k)
	return m.strike(k, velocity)
}

func (m *Manager) strike(k piano.Key, velocity int) (*voice.Voice, error) {
	s, err := m.sound(k)
	if err != nil {
		return nil, err
	}
	v, err := m.pool.Trigger(s, velocity)
	if err != nil {
		return nil, err
	}
	m.live[k] = v
	return v, nil
}

// ReleaseNote lets go of a live key. With the pedal down the voice rings on.
// Releasing a key that was never struck does nothing.
func (m *Manager) ReleaseNote(k piano.Key) {
	m.highlights.Release(k)
	v, ok := m.live[k]
	if !ok {
		return
	}
	delete(m.live, k)
	m.pool.NoteOff(v, m.opts.ReleaseFadeMs)
}

// SetPedal moves the sustain pedal
func (m *Manager) SetPedal(down bool) {
	m.pool.SetPedal(down, m.opts.PedalFadeMs)
}

// PedalDown reports the pedal state
func (m *Manager) PedalDown() bool {
	return m.pool.PedalDown()
}

// Tick advances the session to nowMs: voices are pruned, due events are
// dispatched, then highlights decay by one frame.
func (m *Manager) Tick(nowMs float64) {
	m.pool.Prune(nowMs)
	for k, v := range m.live {
		if v.Done() {
			delete(m.live, k)
		}
	}
	m.dispatcher.Tick(nowMs)
	m.highlights.Decay()
}

// VisibleNotes returns the preview segments at nowMs, empty when stopped
func (m *Manager) VisibleNotes(nowMs float64) []preview.Segment {
	if !m.started || m.tl == nil {
		return nil
	}
	return m.projector.Project(m.dispatcher.PlayTimeMs(nowMs))
}

// Geometry returns the preview lane geometry
func (m *Manager) Geometry() preview.Geometry {
	return m.projector.Geometry()
}

// ActiveHighlights returns the lit keys
func (m *Manager) ActiveHighlights() []piano.Key {
	return m.highlights.Active()
}

// IsLit reports whether a key is lit
func (m *Manager) IsLit(k piano.Key) bool {
	return m.highlights.IsLit(k)
}

// Panic silences everything, live voices included
func (m *Manager) Panic() {
	m.Stop()
	m.pool.StopAll()
	clear(m.live)
	m.highlights.Clear()
	debug.Log("session", "all notes off")
}
