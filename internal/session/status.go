package session

import (
	"time"
)

// Slot identifies one of the three independent status areas.
type Slot int

const (
	SlotUpload Slot = iota
	SlotClipboard
	SlotNotes
	numSlots
)

func (s Slot) String() string {
	switch s {
	case SlotUpload:
		return "upload"
	case SlotClipboard:
		return "clipboard"
	case SlotNotes:
		return "notes"
	default:
		return "unknown"
	}
}

// Severity is the style class of a status message.
type Severity string

const (
	Success Severity = "success"
	Danger  Severity = "danger"
	Warning Severity = "warning"
	Info    Severity = "info"
)

// Status is the visible state of one slot.
type Status struct {
	Message  string
	Severity Severity
	Visible  bool
}

// StatusDelays are the auto-hide delays per slot.
type StatusDelays struct {
	Upload    time.Duration
	Clipboard time.Duration
	Notes     time.Duration
}

// DefaultStatusDelays matches the web client.
var DefaultStatusDelays = StatusDelays{
	Upload:    5 * time.Second,
	Clipboard: 3 * time.Second,
	Notes:     2 * time.Second,
}

func (d StatusDelays) of(s Slot) time.Duration {
	switch s {
	case SlotUpload:
		return d.Upload
	case SlotClipboard:
		return d.Clipboard
	default:
		return d.Notes
	}
}

// statusTimers tracks the pending hide timer of each slot. A generation
// counter makes a stale timer that already fired a no-op.
type statusTimers struct {
	timer [numSlots]*time.Timer
	gen   [numSlots]uint64
}

// ShowStatus sets slot's message and severity, makes it visible and restarts
// its hide timer. Other slots are untouched.
func (s *Session) ShowStatus(slot Slot, msg string, sev Severity) {
	delay := s.cfg.StatusDelays.of(slot)

	s.update(func(e *Elements) {
		st := e.status(slot)
		st.Message = msg
		st.Severity = sev
		st.Visible = true

		if t := s.timers.timer[slot]; t != nil {
			t.Stop()
		}
		s.timers.gen[slot]++
		gen := s.timers.gen[slot]
		s.timers.timer[slot] = time.AfterFunc(delay, func() { s.hideStatus(slot, gen) })
	})
}

func (s *Session) hideStatus(slot Slot, gen uint64) {
	s.update(func(e *Elements) {
		if s.timers.gen[slot] != gen {
			return
		}
		e.status(slot).Visible = false
		s.timers.timer[slot] = nil
	})
}

func (s *Session) stopStatusTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.timers.timer {
		if t != nil {
			t.Stop()
			s.timers.timer[i] = nil
		}
	}
}
