package preview

import (
	"sort"

	"github.com/seifzellaban/arpeggio/piano"
	"github.com/seifzellaban/arpeggio/timeline"
)

// State is the color a segment is drawn with
type State int

const (
	// Falling is the part of a note still above the key line
	Falling State = iota
	// Active is the part at or below the key line, i.e. sounding
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "falling"
}

// Geometry describes the preview lane. Y grows downward: a note enters at
// KeyLineY-FallDistance LookAheadMs before it starts and reaches KeyLineY
// when it starts.
type Geometry struct {
	KeyLineY     float64
	FallDistance float64
	LookAheadMs  float64
	// MarkerHeight is the drawn height of a note without an end
	MarkerHeight float64
	Layout       piano.Layout
}

// DefaultGeometry matches the stock window: 400 units of fall over four seconds
func DefaultGeometry() Geometry {
	return Geometry{
		KeyLineY:     400,
		FallDistance: 400,
		LookAheadMs:  4000,
		MarkerHeight: 8,
		Layout:       piano.DefaultLayout,
	}
}

// Y maps a timeline time to a vertical position at playback time now
func (g Geometry) Y(t, now float64) float64 {
	return g.KeyLineY - (t-now)/g.LookAheadMs*g.FallDistance
}

// Segment is one drawable rectangle of a note
type Segment struct {
	Event    int // index into the timeline
	Key      piano.Key
	Velocity uint8
	Marker   bool // note without an end
	X        float64
	Width    float64
	TopY     float64
	BottomY  float64
	State    State
}

// Height of the segment
func (s Segment) Height() float64 {
	return s.BottomY - s.TopY
}

// Projector maps a timeline onto the preview lane. It only reads the
// timeline; the caller passes the playback time.
type Projector struct {
	geom Geometry
	tl   *timeline.Timeline

	starts []float64
	maxLen float64 // longest note, bounds the backward search
}

// NewProjector builds a projector for a geometry. A zero LookAheadMs is
// replaced by the default.
func NewProjector(g Geometry) *Projector {
	if g.LookAheadMs <= 0 {
		g.LookAheadMs = DefaultGeometry().LookAheadMs
	}
	return &Projector{geom: g}
}

// Geometry returns the lane geometry
func (p *Projector) Geometry() Geometry {
	return p.geom
}

// SetTimeline swaps the timeline being previewed
func (p *Projector) SetTimeline(tl *timeline.Timeline) {
	p.tl = tl
	p.starts = p.starts[:0]
	p.maxLen = 0
	for _, ev := range tl.Events() {
		p.starts = append(p.starts, ev.StartMs)
		if ev.HasEnd && ev.EndMs-ev.StartMs > p.maxLen {
			p.maxLen = ev.EndMs - ev.StartMs
		}
	}
}

// markerMs is the marker height expressed as time
func (p *Projector) markerMs() float64 {
	if p.geom.FallDistance <= 0 {
		return 0
	}
	return p.geom.MarkerHeight / p.geom.FallDistance * p.geom.LookAheadMs
}

// Project returns the segments visible at playback time now, in drawing
// order: taller notes first so short notes sharing a lane stay on top.
func (p *Projector) Project(now float64) []Segment {
	if p.tl.Len() == 0 {
		return nil
	}
	g := p.geom
	from := now - max(p.maxLen, p.markerMs())
	lo := sort.SearchFloat64s(p.starts, from)
	hi := sort.Search(len(p.starts), func(i int) bool { return p.starts[i] > now+g.LookAheadMs })

	type note struct {
		height float64
		segs   []Segment
	}
	var notes []note
	for i := lo; i < hi; i++ {
		ev := p.tl.At(i)
		bottom := g.Y(ev.StartMs, now)
		top := bottom - g.MarkerHeight
		if ev.HasEnd {
			top = g.Y(ev.EndMs, now)
		}
		// retired once the top edge reaches the key line
		if top >= g.KeyLineY {
			continue
		}
		base := Segment{
			Event:    i,
			Key:      ev.Key,
			Velocity: ev.Velocity,
			Marker:   !ev.HasEnd,
			X:        g.Layout.X(ev.Key),
			Width:    g.Layout.Width(ev.Key),
		}
		n := note{height: bottom - top}
		laneTop := g.KeyLineY - g.FallDistance
		if bottom > g.KeyLineY {
			falling := base
			falling.TopY = max(top, laneTop)
			falling.BottomY = g.KeyLineY
			falling.State = Falling
			active := base
			active.TopY = g.KeyLineY
			active.BottomY = bottom
			active.State = Active
			n.segs = append(n.segs, falling, active)
		} else {
			falling := base
			falling.TopY = max(top, laneTop)
			falling.BottomY = bottom
			falling.State = Falling
			n.segs = append(n.segs, falling)
		}
		notes = append(notes, n)
	}

	sort.SliceStable(notes, func(a, b int) bool {
		return notes[a].height > notes[b].height
	})
	var out []Segment
	for _, n := range notes {
		out = append(out, n.segs...)
	}
	return out
}
