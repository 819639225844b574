package tui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/seifzellaban/arpeggio/config"
	"github.com/seifzellaban/arpeggio/debug"
	"github.com/seifzellaban/arpeggio/keymap"
	"github.com/seifzellaban/arpeggio/midi"
	"github.com/seifzellaban/arpeggio/piano"
	"github.com/seifzellaban/arpeggio/sequencer"
	"github.com/seifzellaban/arpeggio/theme"
	"github.com/seifzellaban/arpeggio/voice"
	"github.com/seifzellaban/arpeggio/widgets"
)

// layoutBounds holds cached layout info for mouse hit-testing
type layoutBounds struct {
	keybedTop int
}

type Model struct {
	Session   *sequencer.Manager
	DeviceMgr *midi.DeviceManager // nil without MIDI support
	Theme     *theme.Theme
	Keys      *keymap.Map
	Config    *config.Config

	clock    sequencer.Clock
	now      func() time.Time
	octaves  keymap.Octaves
	velocity *voice.VelocitySensor
	repeat   *keymap.RepeatFilter
	layout   screen

	// file played by the load hotkey
	file string

	width    int
	scroll   int // first keybed column shown
	status   string
	err      error
	quitting bool
	bounds   *layoutBounds

	controllers map[string]midi.Controller
}

// TickMsg drives the session once per frame
type TickMsg time.Time

type DeviceEventMsg midi.DeviceEvent

// InputMsg is one event from a connected keyboard
type InputMsg struct {
	ID    string
	Event midi.Event
}

// InputClosedMsg is sent when a keyboard's event stream ends
type InputClosedMsg struct {
	ID string
}

// NewModel builds the UI around a session. file is played by the load
// hotkey; empty falls back to the configured default file.
func NewModel(session *sequencer.Manager, deviceMgr *midi.DeviceManager, th *theme.Theme,
	keys *keymap.Map, cfg *config.Config, clock sequencer.Clock, file string) Model {
	v := cfg.Input.Velocity
	if file == "" {
		file = cfg.Playback.DefaultFile
	}
	return Model{
		Session:   session,
		DeviceMgr: deviceMgr,
		Theme:     th,
		Keys:      keys,
		Config:    cfg,
		clock:     clock,
		now:       time.Now,
		octaves:   keys.Octaves(),
		velocity: voice.NewVelocitySensor(
			time.Duration(v.FastGapMs)*time.Millisecond,
			time.Duration(v.SlowGapMs)*time.Millisecond,
			v.Min, v.Max, v.Default),
		repeat:      keymap.NewRepeatFilter(120 * time.Millisecond),
		layout:      newScreen(session.Geometry(), cfg.UI.FallRows),
		file:        file,
		width:       int(session.Geometry().Layout.TotalWidth()),
		bounds:      &layoutBounds{},
		controllers: make(map[string]midi.Controller),
	}
}

func Tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func ListenForDevices(deviceMgr *midi.DeviceManager) tea.Cmd {
	if deviceMgr == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-deviceMgr.Events()
		if !ok {
			return nil
		}
		return DeviceEventMsg(event)
	}
}

// ListenForInput waits for the next event from one keyboard
func ListenForInput(c midi.Controller) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-c.Events()
		if !ok {
			return InputClosedMsg{ID: c.ID()}
		}
		return InputMsg{ID: c.ID(), Event: ev}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		Tick(m.Config.Frame()),
		ListenForDevices(m.DeviceMgr),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		wasActive := m.Session.IsActive()
		m.Session.Tick(m.clock.NowMs())
		if wasActive && !m.Session.IsActive() {
			m.status = "playback finished"
		}
		return m, Tick(m.Config.Frame())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.scroll = m.clampScroll(m.scroll)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case DeviceEventMsg:
		event := midi.DeviceEvent(msg)
		cmds := []tea.Cmd{ListenForDevices(m.DeviceMgr)}
		switch event.Type {
		case midi.DeviceConnected:
			m.controllers[event.ID] = event.Controller
			m.status = "connected " + event.ID
			cmds = append(cmds, ListenForInput(event.Controller))
		case midi.DeviceDisconnected:
			delete(m.controllers, event.ID)
			m.status = "disconnected " + event.ID
		}
		return m, tea.Batch(cmds...)

	case InputMsg:
		m.handleInput(msg.Event)
		if c, ok := m.controllers[msg.ID]; ok {
			return m, ListenForInput(c)
		}

	case InputClosedMsg:
		delete(m.controllers, msg.ID)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		m.Session.Panic()
		return m, tea.Quit

	case "right":
		m.octaves.Shift(keymap.Right, 1)
	case "left":
		m.octaves.Shift(keymap.Right, -1)
	case "up":
		m.octaves.Shift(keymap.Left, 1)
	case "down":
		m.octaves.Shift(keymap.Left, -1)

	case "enter":
		m.loadAndPlay()

	case " ":
		m.togglePlay()

	case "tab":
		m.Session.SetPedal(!m.Session.PedalDown())

	case "backspace":
		m.Session.Panic()
		m.status = "all notes off"

	case "[":
		m.scroll = m.clampScroll(m.scroll - 2*int(m.layout.Keys.WhiteWidth))
	case "]":
		m.scroll = m.clampScroll(m.scroll + 2*int(m.layout.Keys.WhiteWidth))

	default:
		m.playComputerKey(msg.String())
	}
	return m, nil
}

// playComputerKey strikes the piano key mapped to a computer key. Velocity
// comes from how close together keys are pressed.
func (m *Model) playComputerKey(s string) {
	k, ok := m.Keys.Resolve(s, m.octaves.Left, m.octaves.Right)
	if !ok {
		return
	}
	at := m.now()
	if !m.repeat.Accept(s, at) {
		return
	}
	pitch, _ := k.Pitch()
	vel := m.velocity.Press(pitch, at)
	m.strike(k, vel)
}

func (m *Model) strike(k piano.Key, velocity int) {
	if _, err := m.Session.TriggerNote(k, velocity); err != nil {
		debug.LogEvery(16, "tui", "strike %s: %v", k.Name(), err)
	}
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}
	k, ok := widgets.ColumnKey(m.layout.Keys, msg.X+m.scroll, msg.Y-m.bounds.keybedTop)
	if !ok {
		return
	}
	m.strike(k, 127)
}

// handleInput applies one event from a MIDI keyboard
func (m *Model) handleInput(ev midi.Event) {
	if down, ok := ev.Sustain(); ok {
		m.Session.SetPedal(down)
		return
	}
	k, ok := piano.KeyForPitch(int(ev.Note))
	if !ok {
		return
	}
	switch ev.Type {
	case midi.NoteOn:
		if _, err := m.Session.HoldNote(k, int(ev.Velocity)); err != nil {
			debug.LogEvery(16, "tui", "hold %s: %v", k.Name(), err)
		}
	case midi.NoteOff:
		m.Session.ReleaseNote(k)
	}
}

func (m *Model) loadAndPlay() {
	if m.file == "" {
		m.setError(fault.New("no file", fmsg.WithDesc("no file", "No MIDI file configured")))
		return
	}
	n, err := m.Session.LoadAndPlay(m.file, m.Config.Playback.LeadInMs)
	if err != nil {
		m.setError(err)
		return
	}
	m.err = nil
	m.status = fmt.Sprintf("playing %s (%d notes)", filepath.Base(m.file), n)
}

func (m *Model) togglePlay() {
	if m.Session.IsActive() {
		m.Session.Stop()
		m.status = "stopped"
		return
	}
	if err := m.Session.Play(m.Config.Playback.LeadInMs); err != nil {
		// nothing loaded yet: load the file first
		m.loadAndPlay()
		return
	}
	m.err = nil
	m.status = "playing"
}

func (m *Model) setError(err error) {
	m.err = err
	m.status = ""
	debug.Warn("tui", "%v", err)
}

// ErrorText is the user-facing message for the current error
func (m Model) ErrorText() string {
	if m.err == nil {
		return ""
	}
	if issue := fmsg.GetIssue(m.err); issue != "" {
		return issue
	}
	return m.err.Error()
}

func (m Model) clampScroll(s int) int {
	maxScroll := int(m.layout.Keys.TotalWidth()) - m.width
	return max(0, min(maxScroll, s))
}
