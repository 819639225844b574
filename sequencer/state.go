package sequencer

// Stats is a snapshot of the session for the status bar and the dump tool
type Stats struct {
	Path     string `json:"path,omitempty"`
	Mode     string `json:"mode"`
	Events   int    `json:"events"`
	Skipped  int    `json:"skipped"`
	Unclosed int    `json:"unclosed"`

	Playing bool    `json:"playing"`
	Cursor  int     `json:"cursor"`
	PlayMs  float64 `json:"playMs"`

	LiveVoices int  `json:"liveVoices"`
	HeldVoices int  `json:"heldVoices"`
	Capacity   int  `json:"capacity"`
	Dropped    int  `json:"dropped"`
	Pedal      bool `json:"pedal"`
	Lit        int  `json:"lit"`
}

// Stats collects the current session state
func (m *Manager) Stats() Stats {
	s := Stats{
		Path:       m.path,
		Mode:       m.opts.Mode.String(),
		Playing:    m.IsActive(),
		PlayMs:     m.PlayTimeMs(),
		LiveVoices: m.pool.Live(),
		HeldVoices: m.pool.Held(),
		Capacity:   m.pool.Capacity(),
		Dropped:    m.pool.Dropped(),
		Pedal:      m.pool.PedalDown(),
		Lit:        m.highlights.Len(),
	}
	if m.tl != nil {
		s.Events = m.tl.Len()
		s.Skipped = m.tl.Skipped()
		s.Unclosed = m.tl.Unclosed()
		s.Cursor, _ = m.dispatcher.Progress()
	}
	return s
}
