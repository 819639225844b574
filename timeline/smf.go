package timeline

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/seifzellaban/arpeggio/debug"
)

// LoadError means a MIDI source could not be read or parsed
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a standard MIDI file and builds its timeline
func Load(path string, mode Mode) (*Timeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, loadError(path, err)
	}
	defer f.Close()

	msgs, err := Read(f)
	if err != nil {
		return nil, loadError(path, err)
	}

	t := Build(msgs, mode)
	debug.Log("timeline", "loaded %s: %d messages -> %d events", path, len(msgs), t.Len())
	return t, nil
}

func loadError(path string, err error) error {
	tag := ftag.InvalidArgument
	if errors.Is(err, fs.ErrNotExist) {
		tag = ftag.NotFound
	}
	return fault.Wrap(&LoadError{Path: path, Err: err},
		fmsg.WithDesc("read midi file", fmt.Sprintf("Could not load %s", filepath.Base(path))),
		ftag.With(tag),
	)
}

type tickMessage struct {
	abs int64
	msg smf.Message
}

// Read parses a standard MIDI file into messages. All tracks are merged by
// absolute tick; messages on the same tick keep track order. Deltas are in
// seconds and follow the file's tempo map.
func Read(r io.Reader) ([]Message, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, err
	}
	return messagesOf(s), nil
}

func messagesOf(s *smf.SMF) []Message {
	var merged []tickMessage
	for _, track := range s.Tracks {
		var abs int64
		for _, ev := range track {
			abs += int64(ev.Delta)
			merged = append(merged, tickMessage{abs: abs, msg: ev.Message})
		}
	}
	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].abs < merged[b].abs
	})

	msgs := make([]Message, 0, len(merged))
	var prevMicros int64
	for _, tm := range merged {
		micros := s.TimeAt(tm.abs)
		m := Message{DeltaSec: float64(micros-prevMicros) / 1e6}
		prevMicros = micros

		var ch, key, vel uint8
		raw := gomidi.Message(tm.msg)
		switch {
		case raw.GetNoteStart(&ch, &key, &vel):
			m.Kind, m.Pitch, m.Velocity = NoteOn, key, vel
		case raw.GetNoteEnd(&ch, &key):
			m.Kind, m.Pitch = NoteOff, key
		}
		msgs = append(msgs, m)
	}
	return msgs
}
