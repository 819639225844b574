package midi

import (
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/seifzellaban/arpeggio/debug"
)

// KeyboardController handles a standard MIDI keyboard
type KeyboardController struct {
	id       string
	inPort   drivers.In
	channel  int // 0 = any, else 1-16
	stopFunc func()

	events    chan Event
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// NewKeyboardController creates a keyboard controller (input only).
// channel filters input to one MIDI channel (1-16); 0 accepts all.
func NewKeyboardController(id string, inPort drivers.In, channel int) (*KeyboardController, error) {
	kb := &KeyboardController{
		id:      id,
		inPort:  inPort,
		channel: channel,
		events:  make(chan Event, 64),
	}

	// Open input
	if inPort != nil {
		stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
			kb.handle(msg)
		})
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		kb.stopFunc = stop
	}

	return kb, nil
}

func (kb *KeyboardController) handle(msg gomidi.Message) {
	ev, ok := Decode(msg)
	if !ok {
		return
	}
	if kb.channel > 0 && int(ev.Channel)+1 != kb.channel {
		return
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.closed {
		return
	}
	select {
	case kb.events <- ev:
	default:
		debug.Warn("midi", "%s: input queue full, dropped %v", kb.id, msg)
	}
}

func (kb *KeyboardController) ID() string {
	return kb.id
}

func (kb *KeyboardController) Type() ControllerType {
	return ControllerKeyboard
}

func (kb *KeyboardController) Events() <-chan Event {
	return kb.events
}

func (kb *KeyboardController) Close() error {
	kb.closeOnce.Do(func() {
		if kb.stopFunc != nil {
			kb.stopFunc()
		}
		kb.mu.Lock()
		kb.closed = true
		close(kb.events)
		kb.mu.Unlock()
	})
	return nil
}
