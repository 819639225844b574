package sequencer

import (
	"sort"

	"github.com/seifzellaban/arpeggio/piano"
)

// KeyHighlight is a lit key. Timed highlights count down once per tick;
// held ones stay lit until released.
type KeyHighlight struct {
	Key       piano.Key
	Remaining int
	Held      bool
}

// Highlights is the set of lit keys
type Highlights struct {
	keys map[piano.Key]*KeyHighlight
}

// NewHighlights returns an empty set
func NewHighlights() *Highlights {
	return &Highlights{keys: make(map[piano.Key]*KeyHighlight)}
}

func (h *Highlights) get(k piano.Key) *KeyHighlight {
	kh, ok := h.keys[k]
	if !ok {
		kh = &KeyHighlight{Key: k}
		h.keys[k] = kh
	}
	return kh
}

// Press lights a key for frames ticks. A second press restarts the count.
func (h *Highlights) Press(k piano.Key, frames int) {
	kh := h.get(k)
	kh.Remaining = max(kh.Remaining, frames)
}

// Hold lights a key until Release
func (h *Highlights) Hold(k piano.Key) {
	h.get(k).Held = true
}

// Release ends a hold. A key with frames left stays lit until they run out.
// Releasing an unlit key does nothing.
func (h *Highlights) Release(k piano.Key) {
	kh, ok := h.keys[k]
	if !ok {
		return
	}
	kh.Held = false
	if kh.Remaining <= 0 {
		delete(h.keys, k)
	}
}

// Decay advances every timed highlight by one tick and drops expired ones
func (h *Highlights) Decay() {
	for k, kh := range h.keys {
		if kh.Remaining > 0 {
			kh.Remaining--
		}
		if kh.Remaining <= 0 && !kh.Held {
			delete(h.keys, k)
		}
	}
}

// IsLit reports whether a key is highlighted
func (h *Highlights) IsLit(k piano.Key) bool {
	_, ok := h.keys[k]
	return ok
}

// Active returns the lit keys, white keys first, each class left to right
func (h *Highlights) Active() []piano.Key {
	out := make([]piano.Key, 0, len(h.keys))
	for k := range h.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Clear drops every highlight
func (h *Highlights) Clear() {
	clear(h.keys)
}

// Len returns the number of lit keys
func (h *Highlights) Len() int {
	return len(h.keys)
}
