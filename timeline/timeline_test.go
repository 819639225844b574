package timeline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/Southclaws/fault/ftag"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/seifzellaban/arpeggio/piano"
)

func on(delta float64, pitch, vel uint8) Message {
	return Message{DeltaSec: delta, Kind: NoteOn, Pitch: pitch, Velocity: vel}
}

func off(delta float64, pitch uint8) Message {
	return Message{DeltaSec: delta, Kind: NoteOff, Pitch: pitch}
}

func TestDurationSingleNote(t *testing.T) {
	tl := Build([]Message{on(0, 60, 100), off(0.5, 60)}, Duration)
	if tl.Len() != 1 {
		t.Fatalf("got %d events", tl.Len())
	}
	ev := tl.At(0)
	if ev.StartMs != 0 || !ev.HasEnd || ev.EndMs != 500 || ev.Velocity != 100 {
		t.Errorf("event = %+v", ev)
	}
	if want, _ := piano.KeyForPitch(60); ev.Key != want {
		t.Errorf("key = %v, want %v", ev.Key, want)
	}
}

func TestFireOnlyIgnoresOffsButKeepsTime(t *testing.T) {
	msgs := []Message{
		on(0.25, 60, 90),
		off(0.25, 60),
		on(0.25, 62, 0), // velocity 0 is a note-off
		{DeltaSec: 0.25, Kind: Other},
		on(0, 64, 70),
	}
	tl := Build(msgs, FireOnly)
	if tl.Len() != 2 {
		t.Fatalf("got %d events", tl.Len())
	}
	if got := tl.At(0); got.StartMs != 250 || got.HasEnd {
		t.Errorf("first = %+v", got)
	}
	if got := tl.At(1); got.StartMs != 1000 || got.Pitch != 64 {
		t.Errorf("second = %+v", got)
	}
}

func TestVelocityZeroNoteOnEndsDurationNote(t *testing.T) {
	tl := Build([]Message{on(0, 60, 80), on(1, 60, 0)}, Duration)
	if tl.Len() != 1 || tl.At(0).EndMs != 1000 {
		t.Fatalf("events = %+v", tl.Events())
	}
}

// A second note-on before the note-off replaces the first pending note.
// The earlier note is dropped, only one event comes out.
func TestDurationDuplicateNoteOnLastWins(t *testing.T) {
	msgs := []Message{
		on(0, 60, 50),
		on(0.1, 60, 110),
		off(0.4, 60),
		off(0.1, 60), // no pending note left, ignored
	}
	tl := Build(msgs, Duration)
	if tl.Len() != 1 {
		t.Fatalf("got %d events, want 1", tl.Len())
	}
	ev := tl.At(0)
	if ev.StartMs != 100 || ev.EndMs != 500 || ev.Velocity != 110 {
		t.Errorf("event = %+v", ev)
	}
}

func TestUnmappedPitchesAreSkipped(t *testing.T) {
	msgs := []Message{on(0, 10, 100), on(0, 60, 100), on(0, 120, 100)}
	tl := Build(msgs, FireOnly)
	if tl.Len() != 1 || tl.Skipped() != 2 {
		t.Errorf("len=%d skipped=%d", tl.Len(), tl.Skipped())
	}
}

func TestUnclosedNotesAreDropped(t *testing.T) {
	tl := Build([]Message{on(0, 60, 100), on(0, 62, 100), off(1, 62)}, Duration)
	if tl.Len() != 1 || tl.Unclosed() != 1 {
		t.Errorf("len=%d unclosed=%d", tl.Len(), tl.Unclosed())
	}
}

func TestDurationSortedByStartWithFileOrderTies(t *testing.T) {
	// Chord at t=0: 64 is released first, but 60 came first in the file
	msgs := []Message{
		on(0, 60, 100),
		on(0, 64, 100),
		on(0, 67, 100),
		off(0.2, 64),
		off(0, 67),
		off(0.3, 60),
		on(0, 48, 100),
		off(0.1, 48),
	}
	tl := Build(msgs, Duration)
	var pitches []uint8
	for _, ev := range tl.Events() {
		pitches = append(pitches, ev.Pitch)
	}
	want := []uint8{60, 64, 67, 48}
	if !reflect.DeepEqual(pitches, want) {
		t.Errorf("order = %v, want %v", pitches, want)
	}
}

func TestBuildIsSortedAndDeterministic(t *testing.T) {
	var msgs []Message
	for i := 0; i < 200; i++ {
		p := uint8(21 + (i*37)%88)
		msgs = append(msgs, on(float64(i%3)*0.01, p, uint8(1+i%127)))
		if i%2 == 0 {
			msgs = append(msgs, off(0.005, p))
		}
	}
	for _, mode := range []Mode{FireOnly, Duration} {
		a := Build(msgs, mode)
		b := Build(msgs, mode)
		if !reflect.DeepEqual(a.Events(), b.Events()) {
			t.Errorf("%s: builds differ", mode)
		}
		if !sort.SliceIsSorted(a.Events(), func(i, j int) bool {
			return a.Events()[i].StartMs < a.Events()[j].StartMs
		}) {
			t.Errorf("%s: not sorted", mode)
		}
		for _, ev := range a.Events() {
			if ev.HasEnd && ev.EndMs < ev.StartMs {
				t.Errorf("%s: end before start %+v", mode, ev)
			}
		}
	}
}

func TestDurationMs(t *testing.T) {
	tl := Build([]Message{on(0, 60, 100), off(2, 60), on(0, 62, 100), off(0.5, 62)}, Duration)
	if got := tl.DurationMs(); got != 2500 {
		t.Errorf("duration = %v", got)
	}
	var empty *Timeline
	if empty.Len() != 0 {
		t.Error("nil timeline has events")
	}
}

// writeSMF builds a two-track file at 120 bpm, 960 ticks per quarter
// (one quarter = 500ms).
func writeSMF(t *testing.T) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)

	var tempo smf.Track
	tempo.Add(0, smf.MetaTempo(120))
	tempo.Close(0)

	var right smf.Track
	right.Add(0, midi.NoteOn(0, 60, 100))
	right.Add(960, midi.NoteOff(0, 60))
	right.Close(0)

	var left smf.Track
	left.Add(0, midi.NoteOn(1, 48, 64))
	left.Add(1920, midi.NoteOn(1, 48, 0))
	left.Close(0)

	for _, tr := range []smf.Track{tempo, right, left} {
		if err := s.Add(tr); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadSMF(t *testing.T) {
	msgs, err := Read(bytes.NewReader(writeSMF(t)))
	if err != nil {
		t.Fatal(err)
	}
	tl := Build(msgs, Duration)
	if tl.Len() != 2 {
		t.Fatalf("got %d events: %+v", tl.Len(), tl.Events())
	}
	// Both start at 0; track order breaks the tie
	first, second := tl.At(0), tl.At(1)
	if first.Pitch != 60 || first.StartMs != 0 || first.EndMs != 500 || first.Velocity != 100 {
		t.Errorf("first = %+v", first)
	}
	if second.Pitch != 48 || second.EndMs != 1000 || second.Velocity != 64 {
		t.Errorf("second = %+v", second)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mid")
	if err := os.WriteFile(path, writeSMF(t), 0644); err != nil {
		t.Fatal(err)
	}
	tl, err := Load(path, FireOnly)
	if err != nil {
		t.Fatal(err)
	}
	if tl.Len() != 2 || tl.Mode() != FireOnly {
		t.Errorf("len=%d mode=%s", tl.Len(), tl.Mode())
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.mid")
	if err := os.WriteFile(corrupt, []byte("MThd not really"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		tag  ftag.Kind
	}{
		{"missing", filepath.Join(dir, "missing.mid"), ftag.NotFound},
		{"corrupt", corrupt, ftag.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := Load(tt.path, Duration)
			if err == nil || tl != nil {
				t.Fatalf("Load = %v, %v", tl, err)
			}
			var le *LoadError
			if !errors.As(err, &le) || le.Path != tt.path {
				t.Errorf("not a LoadError: %v", err)
			}
			if got := ftag.Get(err); got != tt.tag {
				t.Errorf("tag = %q, want %q", got, tt.tag)
			}
		})
	}
}
