package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/seifzellaban/arpeggio/keymap"
	"github.com/seifzellaban/arpeggio/piano"
	"github.com/seifzellaban/arpeggio/preview"
	"github.com/seifzellaban/arpeggio/widgets"
)

// screen is the fixed geometry of the piano area
type screen struct {
	Keys     piano.Layout
	Geometry preview.Geometry
	FallRows int
}

func newScreen(g preview.Geometry, rows int) screen {
	return screen{Keys: g.Layout, Geometry: g, FallRows: rows}
}

var helpKeys = []widgets.KeyBinding{
	{Key: "enter", Desc: "load+play"},
	{Key: "space", Desc: "play/stop"},
	{Key: "tab", Desc: "pedal"},
	{Key: "←→", Desc: "right oct"},
	{Key: "↑↓", Desc: "left oct"},
	{Key: "[ ]", Desc: "scroll"},
	{Key: "bksp", Desc: "all off"},
	{Key: "esc", Desc: "quit"},
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	errStyle := lipgloss.NewStyle().
		Foreground(m.Theme.FG()).
		Background(m.Theme.Warning()).
		Padding(0, 1)

	now := m.clock.NowMs()
	segs := m.Session.VisibleNotes(now)

	// keys lit by a highlight or by a sounding preview segment
	sounding := make(map[piano.Key]bool)
	for _, s := range segs {
		if s.State == preview.Active {
			sounding[s.Key] = true
		}
	}
	lit := func(k piano.Key) bool {
		return sounding[k] || m.Session.IsLit(k)
	}

	lane := widgets.RenderFallLane(m.Theme, m.layout.Geometry, segs, m.layout.FallRows)
	keybed := widgets.RenderKeybed(m.Theme, m.layout.Keys, lit)
	hands := widgets.RenderHands(m.Theme, m.layout.Keys, m.handSpans())

	var out strings.Builder
	header := headerStyle.Render(m.headerText())
	out.WriteString(ansi.Truncate(header, m.width, "…"))
	out.WriteString("\n\n")

	for _, l := range lane.Lines() {
		out.WriteString(m.window(l))
		out.WriteString("\n")
	}
	// keybed starts after the header, the blank line and the lane
	m.bounds.keybedTop = 2 + m.layout.FallRows
	for _, l := range keybed.Lines() {
		out.WriteString(m.window(l))
		out.WriteString("\n")
	}
	out.WriteString(m.window(hands.String()))
	out.WriteString("\n\n")

	if text := m.ErrorText(); text != "" {
		out.WriteString(errStyle.Render(text))
	} else if m.status != "" {
		out.WriteString(dimStyle.Render(m.status))
	}
	out.WriteString("\n")
	out.WriteString(ansi.Truncate(dimStyle.Render(widgets.RenderKeyLine(helpKeys)), m.width, "…"))

	return out.String()
}

// window cuts a full-width keybed line to the visible columns
func (m Model) window(line string) string {
	if m.width <= 0 {
		return line
	}
	return ansi.Cut(line, m.scroll, m.scroll+m.width)
}

func (m Model) headerText() string {
	st := m.Session.Stats()

	state := "STOP"
	if st.Playing {
		state = "PLAY"
	}
	file := "no file"
	if st.Path != "" {
		file = filepath.Base(st.Path)
	}
	pedal := "○"
	if st.Pedal {
		pedal = "●"
	}
	return fmt.Sprintf("arpeggio  %s  %s  %6.1fs  %d/%d  voices %d/%d  dropped %d  pedal %s  L%d R%d",
		state, file, st.PlayMs/1000, st.Cursor, st.Events,
		st.LiveVoices, st.Capacity, st.Dropped, pedal,
		m.octaves.Left, m.octaves.Right)
}

func (m Model) handSpans() []widgets.HandSpan {
	var spans []widgets.HandSpan
	for _, h := range []keymap.Hand{keymap.Left, keymap.Right} {
		lo, hi := m.Keys.Span(h, m.octaves.Of(h))
		spans = append(spans, widgets.HandSpan{Lo: lo, Hi: hi})
	}
	return spans
}
