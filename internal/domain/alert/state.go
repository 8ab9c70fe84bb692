package alert

import "time"

// Phase is the lifecycle stage of the alert.
type Phase int

const (
	// PhaseIdle means no alert is open and a new one may be raised.
	PhaseIdle Phase = iota
	// PhasePending means subscribers were alerted and nobody has accepted yet.
	PhasePending
	// PhaseHandled means a responder accepted and the alert waits for a reset.
	PhaseHandled
)

// String returns the lower-case name used in logs and on the wire.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseHandled:
		return "handled"
	default:
		return "unknown"
	}
}

// Responder identifies the subscriber who accepted the alert.
type Responder struct {
	// Address is the delivery address of the responder.
	Address string
	// DeviceName is the display label resolved from the directory.
	DeviceName string
}

// Clone returns a copy of the responder.
func (r *Responder) Clone() *Responder {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}

// State is the alert status at a specific point in time.
// Responder is non-nil if and only if Phase is PhaseHandled.
type State struct {
	// Phase is the current lifecycle stage.
	Phase Phase
	// AlertID identifies the open alert; empty while idle.
	AlertID string
	// Responder is the subscriber who accepted the alert.
	Responder *Responder
	// LastNotifyTime is the moment of the most recent Idle -> Pending transition.
	LastNotifyTime time.Time
}

// Clone returns a copy of the state to avoid leaking internal references.
func (s *State) Clone() *State {
	return &State{
		Phase:          s.Phase,
		AlertID:        s.AlertID,
		Responder:      s.Responder.Clone(),
		LastNotifyTime: s.LastNotifyTime,
	}
}

// CooldownElapsed reports whether a new alert may be opened at now.
// A zero LastNotifyTime means no alert was ever opened.
func (s *State) CooldownElapsed(now time.Time, cooldown time.Duration) bool {
	if s.LastNotifyTime.IsZero() {
		return true
	}

	return now.Sub(s.LastNotifyTime) > cooldown
}
