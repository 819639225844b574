package audio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"github.com/seifzellaban/arpeggio/debug"
	"github.com/seifzellaban/arpeggio/piano"
	"github.com/seifzellaban/arpeggio/voice"
)

// Sample is a decoded note held in memory at the mixer's sample rate
type Sample struct {
	name string
	buf  *beep.Buffer
}

// Name returns the sample's file stem
func (s *Sample) Name() string {
	return s.name
}

// Len returns the length in frames
func (s *Sample) Len() int {
	if s.buf == nil {
		return 0
	}
	return s.buf.Len()
}

// Bank maps every key to its sample
type Bank struct {
	samples map[piano.Key]*Sample
	missing []piano.Key
}

// NewBank returns an empty bank
func NewBank() *Bank {
	return &Bank{samples: make(map[piano.Key]*Sample)}
}

// LoadBank decodes <dir>/<SampleName>.wav for all 88 keys, resampling to rate.
// Keys without a readable file are left silent and listed in Missing.
func LoadBank(dir string, rate beep.SampleRate) *Bank {
	b := NewBank()
	for _, k := range piano.AllKeys() {
		path := filepath.Join(dir, k.SampleName()+".wav")
		s, err := LoadSample(path, rate)
		if err != nil {
			b.missing = append(b.missing, k)
			debug.Warn("audio", "no sample for %s: %v", k.Name(), err)
			continue
		}
		b.samples[k] = s
	}
	debug.Log("audio", "sample bank: %d loaded, %d missing from %s", len(b.samples), len(b.missing), dir)
	return b
}

// LoadSample decodes one wav file into memory
func LoadSample(path string, rate beep.SampleRate) (*Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if format.SampleRate != rate {
		src = beep.Resample(4, format.SampleRate, rate, streamer)
	}
	format.SampleRate = rate

	buf := beep.NewBuffer(format)
	buf.Append(src)

	name := filepath.Base(path)
	return &Sample{name: name[:len(name)-len(filepath.Ext(name))], buf: buf}, nil
}

// Put stores a sample for a key
func (b *Bank) Put(k piano.Key, s *Sample) {
	b.samples[k] = s
}

// Sound returns the sample for a key
func (b *Bank) Sound(k piano.Key) (voice.Sound, bool) {
	s, ok := b.samples[k]
	if !ok {
		return nil, false
	}
	return s, true
}

// Loaded is the number of keys with a sample
func (b *Bank) Loaded() int {
	return len(b.samples)
}

// Missing lists keys that failed to load
func (b *Bank) Missing() []piano.Key {
	return b.missing
}
