package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	// Fall lane
	Note   rune // █ falling note body
	Marker rune // ▀ fire-only note
	Lane   rune // · empty lane cell

	// Keybed
	WhiteKey rune // █
	BlackKey rune // █
	KeyEdge  rune // ▉ lower edge of a white key

	// Hand markers under the keybed
	Hand rune // ▔
}

func New(palette *Palette) *Theme {
	if palette == nil {
		palette = DefaultPalette()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Note:   '█',
			Marker: '▀',
			Lane:   '·',

			WhiteKey: '█',
			BlackKey: '█',
			KeyEdge:  '▉',

			Hand: '▔',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleBG       = 0.0   // night
	RoleSurface  = 0.143 // slate
	RoleMuted    = 0.286 // dusk
	RoleFalling  = 0.429 // blue
	RoleAccent   = 0.571 // ice
	RoleWhiteKey = 0.714 // ivory
	RoleWarning  = 0.857 // amber
	RoleActive   = 1.0   // hit
)

// Style helpers

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) Surface() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSurface))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWhiteKey))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Falling() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFalling))
}

func (t *Theme) Active() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleActive))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) WhiteKey() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWhiteKey))
}

// BlackKey is the darkest palette color
func (t *Theme) BlackKey() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

// Velocity shades the falling color by note velocity: soft notes are dimmer
func (t *Theme) Velocity(vel uint8) lipgloss.Color {
	c := t.Palette.Lookup(RoleFalling)
	return rgbToLipgloss(c.Dim(0.5 * (1 - float64(vel)/127)))
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(c.Hex())
}
