package recording

import (
	"fmt"
	"time"

	"github.com/mizutama/gamewatch/internal/log"
)

// transition is the pure state machine core. Any (state, event) pair not
// listed is a no-op: duplicate and out-of-order detector edges are expected
// and tolerated, not errors.
//
// Cancel from Standby changes nothing and issues no command: there is no
// session to discard.
func transition(s State, e EventType) (State, []Command) {
	switch s {
	case StateStandby:
		if e == EventBattleStarted {
			return StateRecording, []Command{CommandStart}
		}

	case StateRecording:
		switch e {
		case EventLoadingDetected:
			return StatePaused, []Command{CommandPause}
		case EventEarlyAbort:
			return StateStandby, []Command{CommandStopDiscard}
		case EventPostGameDetected:
			return StatePostGameProcessing, []Command{CommandStopFinalize}
		case EventCancel:
			return StateStandby, []Command{CommandStopDiscard}
		}

	case StatePaused:
		switch e {
		case EventLoadingFinished:
			return StateRecording, []Command{CommandResume}
		case EventPostGameDetected:
			return StatePostGameProcessing, []Command{CommandStopFinalize}
		case EventCancel:
			return StateStandby, []Command{CommandStopDiscard}
		}

	case StatePostGameProcessing:
		// Terminal for this session invocation; Reset starts the next one.
	}
	return s, nil
}

// metadataOnly reports whether the event updates metadata without a state
// change in the given state, per the transition table.
func metadataOnly(s State, e EventType) bool {
	switch s {
	case StateStandby:
		return e == EventScheduleChanged || e == EventRateDetected || e == EventMatchingStarted
	case StateRecording:
		return e == EventFinishDetected || e == EventResultDetected
	case StatePaused:
		return e == EventFinishFinished
	}
	return false
}

// Outcome is everything one applied event produced. Session is the session
// the commands apply to; it stays valid even when the machine has already
// discarded its own reference.
type Outcome struct {
	State    State
	Commands []Command
	Domain   []DomainEvent
	Session  *Session
}

// Machine owns the single active recording state and the session draft.
// Events must be applied from one goroutine (the pipeline serializes all
// sources, including operator Cancel, through one ordered channel).
type Machine struct {
	state   State
	session *Session

	// pending holds metadata captured in Standby, before a session exists
	// to attach it to (schedule rotations, rate, matching info).
	pending map[string]string

	// halted is set after a recorder command failure; every event except
	// Cancel is then ignored until an operator resets the session.
	halted  bool
	haltErr error
}

// NewMachine returns a machine in Standby.
func NewMachine() *Machine {
	return &Machine{
		state:   StateStandby,
		pending: make(map[string]string),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Session returns the current session draft, or nil outside a session.
func (m *Machine) Session() *Session {
	return m.session
}

// Halted reports whether the machine stopped automatic progression after a
// failed recorder command.
func (m *Machine) Halted() bool {
	return m.halted
}

// Apply consumes one event and returns the resulting state, the recorder
// commands to dispatch, and the domain events to publish.
func (m *Machine) Apply(ev Event) Outcome {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	// A halted machine only listens for Cancel; everything else would risk
	// a second session racing a recorder in an unknown state.
	if m.halted && ev.Type != EventCancel {
		log.Debug("event ignored while halted", "event", ev.Type.String())
		return Outcome{State: m.state}
	}
	if m.halted && ev.Type == EventCancel {
		return m.recoverFromHalt(ts)
	}

	if metadataOnly(m.state, ev.Type) {
		m.absorbMetadata(ev)
		return Outcome{
			State: m.state,
			Domain: []DomainEvent{{
				Kind:      KindMetadataUpdated,
				Event:     ev.Type.String(),
				Detector:  ev.Detector,
				State:     m.state.String(),
				Timestamp: ts,
			}},
		}
	}

	next, cmds := transition(m.state, ev.Type)
	if next == m.state && len(cmds) == 0 {
		// Unlisted pair: tolerated no-op.
		return Outcome{State: m.state}
	}

	prev := m.state
	m.state = next

	var domain []DomainEvent
	switch {
	case prev == StateStandby && next == StateRecording:
		m.session = newSession(ts, m.pending)
		m.pending = make(map[string]string)
		m.session.merge(ev.Fields)

	case next == StatePostGameProcessing && m.session != nil:
		m.session.merge(ev.Fields)
		m.session.FinalizedAt = ts
		domain = append(domain, DomainEvent{
			Kind:      KindSessionFinalized,
			Event:     ev.Type.String(),
			Detector:  ev.Detector,
			State:     next.String(),
			Session:   m.session.snapshot(),
			Timestamp: ts,
		})

	case next == StateStandby && m.session != nil:
		domain = append(domain, DomainEvent{
			Kind:      KindSessionDiscarded,
			Event:     ev.Type.String(),
			Detector:  ev.Detector,
			State:     next.String(),
			Session:   m.session.snapshot(),
			Timestamp: ts,
		})
	}
	acted := m.session
	if next == StateStandby {
		m.session = nil
	}

	domain = append(domain, DomainEvent{
		Kind:      KindStateChanged,
		Event:     ev.Type.String(),
		Detector:  ev.Detector,
		State:     next.String(),
		Timestamp: ts,
	})

	log.Info("state transition",
		"from", prev.String(), "to", next.String(), "event", ev.Type.String())

	return Outcome{State: next, Commands: cmds, Domain: domain, Session: acted}
}

// absorbMetadata merges event fields into the session draft, or into the
// pending map when no session exists yet.
func (m *Machine) absorbMetadata(ev Event) {
	if m.session != nil {
		m.session.merge(ev.Fields)
		return
	}
	for k, v := range ev.Fields {
		m.pending[k] = v
	}
}

// CommandFailed records that the recorder port rejected a command. The
// machine emits an error domain event and halts all automatic transitions:
// silently continuing after a failed Start or Stop would break the single
// active session invariant. No retry is attempted; retry policy belongs to
// the recorder port.
func (m *Machine) CommandFailed(cmd Command, err error) DomainEvent {
	m.halted = true
	m.haltErr = err
	log.Error("recorder command failed; machine halted until cancel",
		"command", cmd.String(), "error", err)
	return DomainEvent{
		Kind:      KindError,
		Event:     cmd.String(),
		State:     m.state.String(),
		Error:     fmt.Sprintf("command %s failed: %v", cmd, err),
		Timestamp: time.Now(),
	}
}

// recoverFromHalt handles operator Cancel on a halted machine: the session
// is discarded and the machine returns to Standby regardless of state. A
// best-effort StopDiscard is issued when a session existed, so the recorder
// port gets a chance to clean up.
func (m *Machine) recoverFromHalt(ts time.Time) Outcome {
	var cmds []Command
	var domain []DomainEvent
	if m.session != nil {
		cmds = append(cmds, CommandStopDiscard)
		domain = append(domain, DomainEvent{
			Kind:      KindSessionDiscarded,
			Event:     EventCancel.String(),
			State:     StateStandby.String(),
			Session:   m.session.snapshot(),
			Timestamp: ts,
		})
	}
	acted := m.session
	m.session = nil
	m.halted = false
	m.haltErr = nil
	m.state = StateStandby
	domain = append(domain, DomainEvent{
		Kind:      KindStateChanged,
		Event:     EventCancel.String(),
		State:     StateStandby.String(),
		Timestamp: ts,
	})
	return Outcome{State: StateStandby, Commands: cmds, Domain: domain, Session: acted}
}

// Reset returns a machine in PostGameProcessing to Standby for the next
// session. Called by the pipeline once the finalized session has been handed
// off. Reset from any other state is a no-op.
func (m *Machine) Reset() {
	if m.state != StatePostGameProcessing {
		return
	}
	m.state = StateStandby
	m.session = nil
}
