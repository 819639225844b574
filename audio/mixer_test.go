package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"github.com/seifzellaban/arpeggio/piano"
	"github.com/seifzellaban/arpeggio/voice"
)

const testRate = beep.SampleRate(1000)

func constant(n int, v float64) beep.Streamer {
	left := n
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if left == 0 {
			return 0, false
		}
		k := min(len(samples), left)
		for i := 0; i < k; i++ {
			samples[i] = [2]float64{v, v}
		}
		left -= k
		return k, true
	})
}

func testSample(n int) *Sample {
	buf := beep.NewBuffer(beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2})
	buf.Append(constant(n, 1))
	return &Sample{name: "test", buf: buf}
}

// testMixer records streamers instead of handing them to the speaker
type testMixer struct {
	*Mixer
	playing []beep.Streamer
}

func newTestMixer(n int) *testMixer {
	tm := &testMixer{}
	tm.Mixer = newMixer(testRate, n, func(s beep.Streamer) { tm.playing = append(tm.playing, s) }, func() {}, func() {})
	return tm
}

func drain(s beep.Streamer) (out []float64) {
	buf := make([][2]float64, 16)
	for {
		n, ok := s.Stream(buf)
		for i := 0; i < n; i++ {
			out = append(out, buf[i][0])
		}
		if !ok {
			return out
		}
	}
}

func TestChannelPlaysWithGainAndFrees(t *testing.T) {
	m := newTestMixer(2)
	var _ voice.Mixer = m.Mixer

	ch := m.FindChannel()
	ch.SetVolume(0.5)
	ch.Play(testSample(40))
	if !ch.Busy() {
		t.Fatal("channel not busy after Play")
	}
	if m.FindChannel() == ch {
		t.Fatal("busy channel handed out again")
	}

	out := drain(m.playing[0])
	if len(out) != 40 {
		t.Fatalf("played %d frames", len(out))
	}
	for _, v := range out {
		if v != 0.5 {
			t.Fatalf("sample %v, want 0.5", v)
		}
	}
	if ch.Busy() {
		t.Error("channel still busy after sample ended")
	}
}

func TestChannelFadeOut(t *testing.T) {
	m := newTestMixer(1)
	ch := m.FindChannel()
	ch.SetVolume(1)
	ch.Play(testSample(1000))
	ch.FadeOut(10) // 10 frames at 1 kHz

	out := drain(m.playing[0])
	if len(out) != 10 {
		t.Fatalf("fade played %d frames, want 10", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i] >= out[i-1] {
			t.Fatalf("fade not decreasing at %d: %v", i, out)
		}
	}
	if ch.Busy() {
		t.Error("channel busy after fade")
	}
}

func TestChannelStop(t *testing.T) {
	m := newTestMixer(1)
	ch := m.FindChannel()
	ch.Play(testSample(100))
	ch.Stop()
	if ch.Busy() {
		t.Fatal("busy after Stop")
	}
	if out := drain(m.playing[0]); len(out) != 0 {
		t.Errorf("stopped streamer produced %d frames", len(out))
	}
}

func TestReplayCutsPrevious(t *testing.T) {
	m := newTestMixer(1)
	ch := m.FindChannel()
	ch.Play(testSample(100))
	ch.Play(testSample(100))
	if len(drain(m.playing[0])) != 0 {
		t.Error("first note kept playing")
	}
	if !ch.Busy() {
		t.Error("finishing the old note freed the channel")
	}
}

func TestSilentMixer(t *testing.T) {
	s := NewSilent(3)
	p := voice.NewPool(s, voice.DefaultOptions())
	for i := 0; i < 10; i++ {
		if _, err := p.Trigger(testSample(1), 100); err != nil {
			t.Fatal(err)
		}
	}
	if p.Live() > 3 {
		t.Errorf("live = %d", p.Live())
	}
}

func TestLoadSampleResamples(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "C4.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	format := beep.Format{SampleRate: 500, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, constant(500, 0.25), format); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s, err := LoadSample(path, testRate)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "C4" {
		t.Errorf("name = %q", s.Name())
	}
	if math.Abs(float64(s.Len()-1000)) > 10 {
		t.Errorf("resampled length = %d, want ~1000", s.Len())
	}

	b := LoadBank(dir, testRate)
	c4, _ := piano.Classify("C4")
	if _, ok := b.Sound(c4); !ok || b.Loaded() != 1 || len(b.Missing()) != 87 {
		t.Errorf("bank loaded=%d missing=%d", b.Loaded(), len(b.Missing()))
	}
}
