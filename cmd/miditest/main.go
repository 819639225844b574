package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/seifzellaban/arpeggio/audio"
	"github.com/seifzellaban/arpeggio/midi"
	"github.com/seifzellaban/arpeggio/piano"
	"github.com/seifzellaban/arpeggio/sequencer"
	"github.com/seifzellaban/arpeggio/timeline"
	"github.com/seifzellaban/arpeggio/widgets"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "list":
		listPorts()
	case "dump":
		if len(os.Args) < 3 {
			usage()
			return
		}
		mode := "fire"
		if len(os.Args) > 3 {
			mode = os.Args[3]
		}
		dumpFile(os.Args[2], timeline.ParseMode(mode))
	case "dry":
		if len(os.Args) < 3 {
			usage()
			return
		}
		dryRun(os.Args[2])
	case "keys":
		listKeys()
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                 - List MIDI input ports")
	fmt.Println("  dump <file> [mode]   - Print the note events of a file (mode: fire|duration)")
	fmt.Println("  dry <file>           - Play a file silently and print the session stats")
	fmt.Println("  keys                 - Print the 88 keys with their terminal columns")
	fmt.Println("  poll                 - Watch for keyboards and print their events")
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ins, ok := midi.InPorts(3 * time.Second)
	if !ok {
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return
	}
	for i, p := range ins {
		mark := ""
		if midi.IsKeyboardPort(p.String()) {
			mark = " (keyboard)"
		}
		fmt.Printf("  %d: %s%s\n", i, p.String(), mark)
	}
}

type eventDump struct {
	Key      string   `json:"key"`
	Pitch    int      `json:"pitch"`
	StartMs  float64  `json:"startMs"`
	EndMs    *float64 `json:"endMs,omitempty"`
	Velocity uint8    `json:"velocity"`
}

func dumpFile(path string, mode timeline.Mode) {
	tl, err := timeline.Load(path, mode)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	events := make([]eventDump, 0, tl.Len())
	for _, ev := range tl.Events() {
		pitch, _ := ev.Key.Pitch()
		d := eventDump{
			Key:      string(ev.Key.Name()),
			Pitch:    pitch,
			StartMs:  ev.StartMs,
			Velocity: ev.Velocity,
		}
		if ev.HasEnd {
			end := ev.EndMs
			d.EndMs = &end
		}
		events = append(events, d)
	}

	out := struct {
		Mode       string      `json:"mode"`
		DurationMs float64     `json:"durationMs"`
		Skipped    int         `json:"skipped"`
		Unclosed   int         `json:"unclosed"`
		Events     []eventDump `json:"events"`
	}{
		Mode:       tl.Mode().String(),
		DurationMs: tl.DurationMs(),
		Skipped:    tl.Skipped(),
		Unclosed:   tl.Unclosed(),
		Events:     events,
	}
	printJSON(out)
}

// dryRun plays a file against a silent mixer with a manual clock, one
// 60 fps frame at a time, and prints the final session stats
func dryRun(path string) {
	clock := &sequencer.ManualClock{}
	session := sequencer.NewManager(audio.NewSilent(512), nil, clock, sequencer.DefaultOptions())

	n, err := session.LoadAndPlay(path, 0)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d events\n", n)

	frames, peak := 0, 0
	for session.IsActive() {
		clock.Advance(1000.0 / 60)
		session.Tick(clock.NowMs())
		peak = max(peak, len(session.VisibleNotes(clock.NowMs())))
		frames++
	}
	fmt.Printf("Finished after %d frames, at most %d notes on screen\n", frames, peak)
	printJSON(session.Stats())
}

func listKeys() {
	layout := widgets.TerminalLayout
	for p := piano.LowestPitch; p <= piano.HighestPitch; p++ {
		k, _ := piano.KeyForPitch(p)
		fmt.Printf("  %3d  %-4s  %-5s  col %3.0f  width %.0f\n",
			p, k.Name(), k.Class, layout.X(k), layout.Width(k))
	}
}

func pollDevices() {
	fmt.Println("Watching for keyboards... Ctrl+C to exit.")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dm := midi.NewDeviceManager(nil)
	go dm.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-dm.Events():
			if !ok {
				return
			}
			switch ev.Type {
			case midi.DeviceConnected:
				fmt.Printf("\n[%s] connected: %s\n", time.Now().Format("15:04:05"), ev.ID)
				go printEvents(ev.Controller)
			case midi.DeviceDisconnected:
				fmt.Printf("\n[%s] disconnected: %s\n", time.Now().Format("15:04:05"), ev.ID)
			}
		}
	}
}

func printEvents(c midi.Controller) {
	for ev := range c.Events() {
		if down, ok := ev.Sustain(); ok {
			fmt.Printf("  %s: pedal down=%v\n", c.ID(), down)
			continue
		}
		name := "?"
		if k, ok := piano.KeyForPitch(int(ev.Note)); ok {
			name = string(k.Name())
		}
		fmt.Printf("  %s: type=0x%02X ch=%d note=%d (%s) vel=%d\n",
			c.ID(), uint8(ev.Type), ev.Channel+1, ev.Note, name, ev.Velocity)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
}
