package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/seifzellaban/arpeggio/debug"
)

// DeviceEvent is emitted when controllers connect/disconnect
type DeviceEvent struct {
	Type       DeviceEventType
	Controller Controller
	ID         string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// PortFilter decides which input ports are connected, and on which channel.
// ok=false skips the port.
type PortFilter func(name string) (channel int, ok bool)

// DeviceManager handles hot-plug detection of MIDI keyboards
type DeviceManager struct {
	controllers map[string]Controller
	mu          sync.RWMutex
	events      chan DeviceEvent
	pollRate    time.Duration
	filter      PortFilter
}

// NewDeviceManager creates a new device manager. A nil filter connects every
// port that looks like an instrument.
func NewDeviceManager(filter PortFilter) *DeviceManager {
	if filter == nil {
		filter = DefaultFilter
	}
	return &DeviceManager{
		controllers: make(map[string]Controller),
		events:      make(chan DeviceEvent, 16),
		pollRate:    time.Second,
		filter:      filter,
	}
}

// DefaultFilter accepts any port that is not a loopback or software port
func DefaultFilter(name string) (int, bool) {
	return 0, IsKeyboardPort(name)
}

// Events returns a channel of device connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Controllers returns a snapshot of connected controllers
func (dm *DeviceManager) Controllers() map[string]Controller {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	copy := make(map[string]Controller, len(dm.controllers))
	for k, v := range dm.controllers {
		copy[k] = v
	}
	return copy
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan(ctx)
		}
	}
}

// InPorts lists input ports, giving up after timeout (CoreMIDI can hang)
func InPorts(timeout time.Duration) ([]drivers.In, bool) {
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	select {
	case ins := <-ch:
		return ins, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (dm *DeviceManager) scan(ctx context.Context) {
	inPorts, ok := InPorts(3 * time.Second)
	if !ok {
		debug.Warn("midi", "port scan timed out")
		return
	}

	// Build map of what we see now
	seenIDs := make(map[string]bool)

	for _, inPort := range inPorts {
		id := inPort.String()
		channel, want := dm.filter(id)
		if !want {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.controllers[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		kb, err := NewKeyboardController(id, inPort, channel)
		if err != nil {
			debug.Warn("midi", "connect %s: %v", id, err)
			continue
		}

		dm.mu.Lock()
		dm.controllers[id] = kb
		dm.mu.Unlock()
		debug.Log("midi", "connected %s (channel %d)", id, channel)

		if !dm.emit(ctx, DeviceEvent{Type: DeviceConnected, Controller: kb, ID: id}) {
			return
		}
	}

	// Check for disconnects
	dm.mu.Lock()
	var toRemove []string
	for id := range dm.controllers {
		if !seenIDs[id] {
			toRemove = append(toRemove, id)
		}
	}
	for _, id := range toRemove {
		dm.controllers[id].Close()
		delete(dm.controllers, id)
	}
	dm.mu.Unlock()

	for _, id := range toRemove {
		debug.Log("midi", "disconnected %s", id)
		if !dm.emit(ctx, DeviceEvent{Type: DeviceDisconnected, ID: id}) {
			return
		}
	}
}

// emit delivers an event unless the manager is shutting down
func (dm *DeviceManager) emit(ctx context.Context, ev DeviceEvent) bool {
	select {
	case dm.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, c := range dm.controllers {
		c.Close()
	}
	dm.controllers = make(map[string]Controller)
}

// IsKeyboardPort filters out loopback and software ports
func IsKeyboardPort(name string) bool {
	name = strings.ToLower(name)
	for _, skip := range []string{"midi through", "rtmidi", "timer", "announce", "launchpad"} {
		if strings.Contains(name, skip) {
			return false
		}
	}
	return name != ""
}
