package piano

import (
	"fmt"
	"testing"
)

func TestToNoteNameRange(t *testing.T) {
	for p := -5; p <= 132; p++ {
		_, ok := ToNoteName(p)
		want := p >= 0 && p <= 127
		if ok != want {
			t.Errorf("ToNoteName(%d) ok=%v, want %v", p, ok, want)
		}
	}
}

func TestToNoteNameKnown(t *testing.T) {
	tests := []struct {
		pitch int
		want  NoteName
	}{
		{0, "C-1"},
		{21, "A0"},
		{60, "C4"},
		{61, "C#4"},
		{69, "A4"},
		{108, "C8"},
		{127, "G9"},
	}
	for _, tt := range tests {
		got, ok := ToNoteName(tt.pitch)
		if !ok || got != tt.want {
			t.Errorf("ToNoteName(%d) = %q, %v; want %q", tt.pitch, got, ok, tt.want)
		}
	}
}

// Every name parses back to the same letter and octave it was built from.
func TestNoteNameRoundTrip(t *testing.T) {
	for p := 0; p <= 127; p++ {
		name, _ := ToNoteName(p)
		var letter string
		var octave int
		n := len(name)
		// letter is 1 or 2 chars, the rest is the (possibly negative) octave
		for i := 1; i <= 2 && i < n; i++ {
			if _, err := fmt.Sscanf(string(name[i:]), "%d", &octave); err == nil {
				letter = string(name[:i])
				break
			}
		}
		if letter != noteNames[p%12] || octave != p/12-1 {
			t.Errorf("pitch %d: name %q parsed to %q/%d", p, name, letter, octave)
		}
	}
}

func TestKeyTables(t *testing.T) {
	whites := WhiteNames()
	blacks := BlackNames()
	if len(whites) != NumWhite || len(blacks) != NumBlack {
		t.Fatalf("got %d white / %d black keys", len(whites), len(blacks))
	}
	if whites[0] != "A0" || whites[len(whites)-1] != "C8" {
		t.Errorf("white range %s..%s", whites[0], whites[len(whites)-1])
	}
	if blacks[0] != "A#0" || blacks[len(blacks)-1] != "A#7" {
		t.Errorf("black range %s..%s", blacks[0], blacks[len(blacks)-1])
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name NoteName
		want Key
		ok   bool
	}{
		{"A0", Key{White, 0}, true},
		{"A#0", Key{Black, 0}, true},
		{"C1", Key{White, 2}, true},
		{"C#1", Key{Black, 1}, true},
		{"C4", Key{White, 23}, true},
		{"C8", Key{White, 51}, true},
		{"G#0", Key{}, false},
		{"C#8", Key{}, false},
		{"H2", Key{}, false},
	}
	for _, tt := range tests {
		got, ok := Classify(tt.name)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("Classify(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestKeyPitchRoundTrip(t *testing.T) {
	for _, k := range AllKeys() {
		p, ok := k.Pitch()
		if !ok {
			t.Fatalf("%v has no pitch", k)
		}
		back, ok := KeyForPitch(p)
		if !ok || back != k {
			t.Errorf("%v -> %d -> %v", k, p, back)
		}
	}
}

func TestSampleName(t *testing.T) {
	if got := (Key{Black, 0}).SampleName(); got != "Bb0" {
		t.Errorf("A#0 sample = %q", got)
	}
	if got := (Key{White, 23}).SampleName(); got != "C4" {
		t.Errorf("C4 sample = %q", got)
	}
	if got := (Key{Black, 99}).SampleName(); got != "" {
		t.Errorf("invalid key sample = %q", got)
	}
}

func TestLayoutBlackKeysSitBetweenWhites(t *testing.T) {
	l := DefaultLayout
	for i := 0; i < NumBlack; i++ {
		k := Key{Black, i}
		p, _ := k.Pitch()
		below, _ := KeyForPitch(p - 1)
		above, _ := KeyForPitch(p + 1)
		x := l.X(k)
		if x <= l.X(below) || x+l.BlackWidth >= l.X(above)+l.WhiteWidth {
			t.Errorf("%s at %.0f not between %s and %s", k.Name(), x, below.Name(), above.Name())
		}
	}
	if got := l.X(Key{Black, 0}); got != 23 {
		t.Errorf("A#0 x = %v", got)
	}
	if got := l.X(Key{Black, 3}); got != 198 {
		t.Errorf("F#1 x = %v", got)
	}
}

func TestLayoutKeyAt(t *testing.T) {
	l := DefaultLayout
	if k, ok := l.KeyAt(30, 10, 200); !ok || k != (Key{Black, 0}) {
		t.Errorf("top of A#0 hit %v", k)
	}
	if k, ok := l.KeyAt(30, 250, 200); !ok || k != (Key{White, 0}) {
		t.Errorf("bottom of A0 hit %v", k)
	}
	if _, ok := l.KeyAt(-1, 0, 200); ok {
		t.Error("hit left of keyboard")
	}
	if _, ok := l.KeyAt(l.TotalWidth(), 0, 200); ok {
		t.Error("hit right of keyboard")
	}
}
