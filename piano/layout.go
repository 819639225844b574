package piano

// Layout places keys horizontally. Units are whatever the renderer uses
// (pixels for DefaultLayout, terminal cells for the TUI).
type Layout struct {
	WhiteWidth  float64
	BlackWidth  float64
	BlackOffset float64 // x of the first black key inside the first white key
}

// DefaultLayout is the 35px white / 24px black keybed
var DefaultLayout = Layout{
	WhiteWidth:  35,
	BlackWidth:  24,
	BlackOffset: 23,
}

// blackSkips[i] counts the white-key gaps (B/C, E/F) left of black key i
var blackSkips [NumBlack]int

func init() {
	// Black keys come in groups of 2 and 3; after each group one white key
	// has no black key to its right. The keyboard starts with a lone A#0,
	// which behaves like the tail of a 2-group.
	skips := 0
	lastGroup, inGroup := 2, 2
	for i := 0; i < NumBlack; i++ {
		blackSkips[i] = skips
		inGroup++
		if lastGroup == 2 && inGroup == 3 {
			lastGroup, inGroup = 3, 0
			skips++
		} else if lastGroup == 3 && inGroup == 2 {
			lastGroup, inGroup = 2, 0
			skips++
		}
	}
}

// X returns the left edge of a key
func (l Layout) X(k Key) float64 {
	if k.Class == Black {
		return l.BlackOffset + float64(k.Index+blackSkips[k.Index])*l.WhiteWidth
	}
	return float64(k.Index) * l.WhiteWidth
}

// Width returns the width of a key
func (l Layout) Width(k Key) float64 {
	if k.Class == Black {
		return l.BlackWidth
	}
	return l.WhiteWidth
}

// TotalWidth is the width of the whole keybed
func (l Layout) TotalWidth() float64 {
	return NumWhite * l.WhiteWidth
}

// KeyAt hit-tests a point on the keybed. Black keys sit on top and win when
// y is within blackDepth of the top edge.
func (l Layout) KeyAt(x, y, blackDepth float64) (Key, bool) {
	if x < 0 || x >= l.TotalWidth() {
		return Key{}, false
	}
	if y < blackDepth {
		for i := 0; i < NumBlack; i++ {
			k := Key{Class: Black, Index: i}
			left := l.X(k)
			if x >= left && x < left+l.BlackWidth {
				return k, true
			}
		}
	}
	return Key{Class: White, Index: int(x / l.WhiteWidth)}, true
}
