package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seifzellaban/arpeggio/timeline"
)

func TestLoadMissingGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.Channels != 512 || cfg.Audio.LimiterThreshold != 16 || cfg.UI.FPS != 60 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"playback": {"mode": "duration", "leadInMs": 500}, "debug": true}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode() != timeline.Duration || cfg.Playback.LeadInMs != 500 || !cfg.Debug {
		t.Errorf("file values not applied: %+v", cfg.Playback)
	}
	if cfg.Playback.LookAheadMs != 4000 || cfg.Audio.BaseVolume != 0.6 {
		t.Error("missing keys lost their defaults")
	}
}

func TestLoadBrokenJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{"), 0644)
	if _, err := LoadFrom(path); err == nil {
		t.Error("broken config loaded")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Playback.DefaultFile = "songs/air.mid"
	cfg.AddController(ControllerConfig{PortName: "Digital Piano", AutoConnect: true})
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Playback.DefaultFile != "songs/air.mid" {
		t.Errorf("default file = %q", got.Playback.DefaultFile)
	}
	if c := got.FindController("Digital Piano"); c == nil || !c.AutoConnect {
		t.Error("controller lost")
	}
	if len(got.AutoConnectControllers()) != 1 {
		t.Error("auto-connect list")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Audio.BaseVolume = 3
	cfg.Playback.Mode = "loud"
	cfg.Playback.LeadInMs = -10
	cfg.Input.Velocity = VelocityConfig{FastGapMs: 200, SlowGapMs: 10, Min: 0, Max: 500, Default: 0}
	cfg.Validate()

	if cfg.Audio.BaseVolume != 1 || cfg.Audio.Channels != 512 || cfg.Audio.SampleRate != 44100 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Playback.Mode != "fire" || cfg.Playback.LeadInMs != 0 {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	v := cfg.Input.Velocity
	if v.Min != 1 || v.Max != 127 || v.Default != 1 || v.FastGapMs != 10 || v.SlowGapMs != 200 {
		t.Errorf("velocity = %+v", v)
	}
	if cfg.UI.FPS != 60 || cfg.Frame() <= 0 {
		t.Errorf("ui = %+v", cfg.UI)
	}
}
