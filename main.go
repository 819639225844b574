package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/seifzellaban/arpeggio/audio"
	"github.com/seifzellaban/arpeggio/config"
	"github.com/seifzellaban/arpeggio/debug"
	"github.com/seifzellaban/arpeggio/keymap"
	"github.com/seifzellaban/arpeggio/midi"
	"github.com/seifzellaban/arpeggio/preview"
	"github.com/seifzellaban/arpeggio/sequencer"
	"github.com/seifzellaban/arpeggio/theme"
	"github.com/seifzellaban/arpeggio/tui"
	"github.com/seifzellaban/arpeggio/voice"
	"github.com/seifzellaban/arpeggio/widgets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Debug || os.Getenv("ARPEGGIO_DEBUG") != "" {
		if err := debug.Enable(); err != nil {
			fmt.Printf("Warning: debug log: %v\n", err)
		}
	}
	defer debug.Disable()

	// Load theme
	palette := theme.DefaultPalette()
	if cfg.UI.Palette != "" {
		p, err := theme.LoadGPL(cfg.UI.Palette)
		if err != nil {
			fmt.Printf("Warning: %v, using default palette\n", err)
		} else {
			palette = p
		}
	}
	th := theme.New(palette)

	keys, err := keymap.Load(cfg.Input.KeymapPath)
	if err != nil {
		fmt.Printf("Warning: %v, using default keymap\n", err)
		keys = keymap.Default()
	}

	// Audio: fall back to a silent mixer so the preview still runs
	var mixer voice.Mixer
	out, err := audio.NewMixer(cfg.SampleRate(), cfg.Buffer(), cfg.Audio.Channels)
	if err != nil {
		fmt.Printf("Warning: no audio output (%v)\n", err)
		mixer = audio.NewSilent(cfg.Audio.Channels)
	} else {
		defer out.Close()
		mixer = out
	}
	bank := audio.LoadBank(cfg.Audio.SampleDir, cfg.SampleRate())
	if bank.Loaded() == 0 {
		fmt.Printf("Warning: no samples found in %s\n", cfg.Audio.SampleDir)
	}

	clock := sequencer.NewWallClock()
	session := sequencer.NewManager(mixer, bank, clock, sessionOptions(cfg))

	// Create MIDI device manager (handles hot-plug)
	deviceMgr := midi.NewDeviceManager(portFilter(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go deviceMgr.Run(ctx)

	file := ""
	if len(os.Args) > 1 {
		file = os.Args[1]
	}

	fmt.Println("arpeggio")
	fmt.Println("Connect MIDI keyboards any time - they'll be detected automatically")
	fmt.Println("")

	m := tui.NewModel(session, deviceMgr, th, keys, cfg, clock, file)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// sessionOptions maps the config onto the session. The preview lane is
// measured in terminal rows scaled to the geometry's fall distance.
func sessionOptions(cfg *config.Config) sequencer.Options {
	g := preview.DefaultGeometry()
	g.Layout = widgets.TerminalLayout
	g.LookAheadMs = cfg.Playback.LookAheadMs
	g.MarkerHeight = g.FallDistance / float64(cfg.UI.FallRows)

	return sequencer.Options{
		Mode: cfg.Mode(),
		Voice: voice.Options{
			Threshold:     cfg.Audio.LimiterThreshold,
			BaseVolume:    cfg.Audio.BaseVolume,
			ReleaseAtEnd:  cfg.Playback.ReleaseOnNoteEnd,
			EndFadeMs:     cfg.Playback.EndFadeMs,
			DefaultFadeMs: cfg.Input.ReleaseFadeMs,
		},
		Geometry:        g,
		HighlightFrames: cfg.UI.HighlightFrames,
		StopFadeMs:      cfg.Playback.StopFadeMs,
		ReleaseFadeMs:   cfg.Input.ReleaseFadeMs,
		PedalFadeMs:     cfg.Input.PedalFadeMs,
	}
}

// portFilter connects the saved keyboards when any are marked for
// auto-connect, otherwise every port that looks like an instrument
func portFilter(cfg *config.Config) midi.PortFilter {
	saved := cfg.AutoConnectControllers()
	if len(saved) == 0 {
		return midi.DefaultFilter
	}
	return func(name string) (int, bool) {
		for _, c := range saved {
			if c.PortName == name {
				return c.InputChannel, true
			}
		}
		return 0, false
	}
}
