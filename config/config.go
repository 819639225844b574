package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/seifzellaban/arpeggio/timeline"
)

// ControllerConfig defines a saved MIDI keyboard
type ControllerConfig struct {
	PortName     string `json:"portName"`
	AutoConnect  bool   `json:"autoConnect"`
	InputChannel int    `json:"inputChannel,omitempty"` // 0 = any, else 1-16
}

// AudioConfig is the output device and sample bank
type AudioConfig struct {
	SampleDir        string  `json:"sampleDir"`
	SampleRate       int     `json:"sampleRate"`
	BufferMs         int     `json:"bufferMs"`
	Channels         int     `json:"channels"`
	BaseVolume       float64 `json:"baseVolume"`
	LimiterThreshold int     `json:"limiterThreshold"`
}

// PlaybackConfig controls file playback
type PlaybackConfig struct {
	Mode             string  `json:"mode"` // "fire" or "duration"
	DefaultFile      string  `json:"defaultFile,omitempty"`
	LeadInMs         float64 `json:"leadInMs"`
	LookAheadMs      float64 `json:"lookAheadMs"`
	StopFadeMs       float64 `json:"stopFadeMs"`
	ReleaseOnNoteEnd bool    `json:"releaseOnNoteEnd"`
	EndFadeMs        float64 `json:"endFadeMs"`
}

// VelocityConfig is the timing-to-velocity ramp for computer keys
type VelocityConfig struct {
	FastGapMs int `json:"fastGapMs"`
	SlowGapMs int `json:"slowGapMs"`
	Min       int `json:"min"`
	Max       int `json:"max"`
	Default   int `json:"default"`
}

// InputConfig covers the computer keyboard and MIDI keyboards
type InputConfig struct {
	KeymapPath    string             `json:"keymapPath,omitempty"`
	ReleaseFadeMs float64            `json:"releaseFadeMs"`
	PedalFadeMs   float64            `json:"pedalFadeMs"`
	Velocity      VelocityConfig     `json:"velocity"`
	Controllers   []ControllerConfig `json:"controllers,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	FPS             int    `json:"fps"`
	HighlightFrames int    `json:"highlightFrames"`
	FallRows        int    `json:"fallRows"`
	Palette         string `json:"palette,omitempty"` // path to a GIMP .gpl file
}

// Config is the main configuration structure
type Config struct {
	Audio    AudioConfig    `json:"audio"`
	Playback PlaybackConfig `json:"playback"`
	Input    InputConfig    `json:"input"`
	UI       UIConfig       `json:"ui"`
	Debug    bool           `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleDir:        "assets/notes",
			SampleRate:       44100,
			BufferMs:         20,
			Channels:         512,
			BaseVolume:       0.6,
			LimiterThreshold: 16,
		},
		Playback: PlaybackConfig{
			Mode:        "fire",
			LeadInMs:    2000,
			LookAheadMs: 4000,
			StopFadeMs:  300,
			EndFadeMs:   150,
		},
		Input: InputConfig{
			ReleaseFadeMs: 250,
			PedalFadeMs:   400,
			Velocity: VelocityConfig{
				FastGapMs: 15,
				SlowGapMs: 120,
				Min:       50,
				Max:       127,
				Default:   100,
			},
		},
		UI: UIConfig{
			FPS:             60,
			HighlightFrames: 30,
			FallRows:        16,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "arpeggio"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads a config file over the defaults, so keys the file leaves
// out keep their default values
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Validate()
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate replaces out-of-range values with defaults or clamps them
func (c *Config) Validate() {
	def := DefaultConfig()

	if c.Audio.SampleRate < 8000 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.Audio.BufferMs <= 0 {
		c.Audio.BufferMs = def.Audio.BufferMs
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = def.Audio.Channels
	}
	c.Audio.BaseVolume = max(0, min(1, c.Audio.BaseVolume))
	if c.Audio.LimiterThreshold < 1 {
		c.Audio.LimiterThreshold = def.Audio.LimiterThreshold
	}

	if c.Playback.Mode != "fire" && c.Playback.Mode != "duration" {
		c.Playback.Mode = def.Playback.Mode
	}
	c.Playback.LeadInMs = max(0, c.Playback.LeadInMs)
	if c.Playback.LookAheadMs <= 0 {
		c.Playback.LookAheadMs = def.Playback.LookAheadMs
	}

	v := &c.Input.Velocity
	v.Min = max(1, min(127, v.Min))
	v.Max = max(v.Min, min(127, v.Max))
	v.Default = max(1, min(127, v.Default))
	if v.SlowGapMs < v.FastGapMs {
		v.FastGapMs, v.SlowGapMs = v.SlowGapMs, v.FastGapMs
	}

	if c.UI.FPS < 1 || c.UI.FPS > 240 {
		c.UI.FPS = def.UI.FPS
	}
	if c.UI.HighlightFrames < 1 {
		c.UI.HighlightFrames = def.UI.HighlightFrames
	}
	if c.UI.FallRows < 2 {
		c.UI.FallRows = def.UI.FallRows
	}
}

// Mode returns the configured timeline mode
func (c *Config) Mode() timeline.Mode {
	return timeline.ParseMode(c.Playback.Mode)
}

// SampleRate returns the output rate as a beep rate
func (c *Config) SampleRate() beep.SampleRate {
	return beep.SampleRate(c.Audio.SampleRate)
}

// Buffer returns the speaker buffer length
func (c *Config) Buffer() time.Duration {
	return time.Duration(c.Audio.BufferMs) * time.Millisecond
}

// Frame returns the tick interval
func (c *Config) Frame() time.Duration {
	return time.Second / time.Duration(c.UI.FPS)
}

// FindController finds a controller config by port name
func (c *Config) FindController(portName string) *ControllerConfig {
	for i := range c.Input.Controllers {
		if c.Input.Controllers[i].PortName == portName {
			return &c.Input.Controllers[i]
		}
	}
	return nil
}

// AddController adds or updates a controller config
func (c *Config) AddController(ctrl ControllerConfig) {
	for i := range c.Input.Controllers {
		if c.Input.Controllers[i].PortName == ctrl.PortName {
			c.Input.Controllers[i] = ctrl
			return
		}
	}
	c.Input.Controllers = append(c.Input.Controllers, ctrl)
}

// AutoConnectControllers returns controllers with autoConnect enabled
func (c *Config) AutoConnectControllers() []ControllerConfig {
	var result []ControllerConfig
	for _, ctrl := range c.Input.Controllers {
		if ctrl.AutoConnect {
			result = append(result, ctrl)
		}
	}
	return result
}
