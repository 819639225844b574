package audio

import "github.com/seifzellaban/arpeggio/voice"

// Silent is a mixer for machines without an audio device. Channels accept
// notes and finish them at once.
type Silent struct {
	channels []silentChannel
	next     int
}

// NewSilent returns a silent mixer with n channels
func NewSilent(n int) *Silent {
	return &Silent{channels: make([]silentChannel, n)}
}

func (s *Silent) FindChannel() voice.Channel {
	if len(s.channels) == 0 {
		return nil
	}
	c := &s.channels[s.next]
	s.next = (s.next + 1) % len(s.channels)
	return c
}

func (s *Silent) NumChannels() int {
	return len(s.channels)
}

type silentChannel struct{}

func (silentChannel) SetVolume(float64) {}
func (silentChannel) Play(voice.Sound)  {}
func (silentChannel) Stop()             {}
func (silentChannel) FadeOut(float64)   {}
func (silentChannel) Busy() bool        { return false }
