package widgets

import (
	"math"

	"github.com/seifzellaban/arpeggio/piano"
	"github.com/seifzellaban/arpeggio/preview"
	"github.com/seifzellaban/arpeggio/theme"
)

// TerminalLayout fits the 52 white keys into 104 columns
var TerminalLayout = piano.Layout{
	WhiteWidth:  2,
	BlackWidth:  1,
	BlackOffset: 1,
}

// KeybedRows is the height of the rendered keybed; the top BlackRows rows
// carry black keys
const (
	KeybedRows = 3
	BlackRows  = 2
)

// RenderKeybed draws the keyboard. Keys for which lit returns true use the
// active color.
func RenderKeybed(th *theme.Theme, layout piano.Layout, lit func(piano.Key) bool) *Canvas {
	w := int(layout.TotalWidth())
	c := NewCanvas(w, KeybedRows, ' ', "")

	for i := 0; i < piano.NumWhite; i++ {
		k := piano.Key{Class: piano.White, Index: i}
		fg := th.WhiteKey()
		if lit != nil && lit(k) {
			fg = th.Active()
		}
		x0 := int(layout.X(k))
		x1 := int(layout.X(k) + layout.Width(k))
		for y := 0; y < KeybedRows; y++ {
			c.Span(x0, x1, y, th.Symbols.WhiteKey, fg)
		}
		// the last column shows the edge between neighbours
		c.Set(x1-1, KeybedRows-1, th.Symbols.KeyEdge, fg)
	}

	for i := 0; i < piano.NumBlack; i++ {
		k := piano.Key{Class: piano.Black, Index: i}
		fg := th.BlackKey()
		if lit != nil && lit(k) {
			fg = th.Active()
		}
		x0 := int(layout.X(k))
		x1 := x0 + max(1, int(layout.Width(k)))
		for y := 0; y < BlackRows; y++ {
			c.Span(x0, x1, y, th.Symbols.BlackKey, fg)
		}
	}
	return c
}

// RenderFallLane draws the falling part of the preview segments into rows
// lines. Row 0 is the top of the lane, the last row sits on the key line.
func RenderFallLane(th *theme.Theme, g preview.Geometry, segs []preview.Segment, rows int) *Canvas {
	w := int(g.Layout.TotalWidth())
	c := NewCanvas(w, rows, ' ', "")
	if rows <= 0 || g.FallDistance <= 0 {
		return c
	}
	laneTop := g.KeyLineY - g.FallDistance
	scale := float64(rows) / g.FallDistance

	for _, s := range segs {
		if s.State != preview.Falling {
			continue
		}
		r0 := int(math.Floor((s.TopY - laneTop) * scale))
		r1 := int(math.Ceil((s.BottomY-laneTop)*scale)) - 1
		r0 = max(0, min(rows-1, r0))
		r1 = max(r0, min(rows-1, r1))

		x0 := int(s.X)
		x1 := x0 + max(1, int(s.Width))
		fg := th.Velocity(s.Velocity)
		r := th.Symbols.Note
		if s.Marker {
			r = th.Symbols.Marker
		}
		for y := r0; y <= r1; y++ {
			c.Span(x0, x1, y, r, fg)
		}
	}
	return c
}

// HandSpan is the range of pitches one hand of the computer keyboard covers
type HandSpan struct {
	Lo, Hi int
}

// RenderHands draws a marker row under the keys each hand can reach
func RenderHands(th *theme.Theme, layout piano.Layout, hands []HandSpan) *Canvas {
	w := int(layout.TotalWidth())
	c := NewCanvas(w, 1, ' ', "")
	for i, h := range hands {
		fg := th.Accent()
		if i%2 == 1 {
			fg = th.Warning()
		}
		lo, hi, ok := keyRange(h)
		if !ok {
			continue
		}
		x0 := int(layout.X(lo))
		x1 := int(layout.X(hi) + layout.Width(hi))
		c.Span(x0, x1, 0, th.Symbols.Hand, fg)
	}
	return c
}

// keyRange clamps a hand span to the keyboard and returns its outermost keys
func keyRange(h HandSpan) (lo, hi piano.Key, ok bool) {
	from := max(h.Lo, piano.LowestPitch)
	to := min(h.Hi, piano.HighestPitch)
	if from > to {
		return lo, hi, false
	}
	lo, _ = piano.KeyForPitch(from)
	hi, _ = piano.KeyForPitch(to)
	return lo, hi, true
}

// ColumnKey maps a terminal cell on the keybed to a key. From row BlackRows
// down only white keys are hit.
func ColumnKey(layout piano.Layout, col, row int) (piano.Key, bool) {
	if row < 0 || row >= KeybedRows {
		return piano.Key{}, false
	}
	return layout.KeyAt(float64(col)+0.5, float64(row), BlackRows)
}
