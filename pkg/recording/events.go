// Package recording implements the recording lifecycle state machine: a
// deterministic function from (state, event) to (state, recorder commands,
// domain events), plus the session metadata it accumulates along the way.
package recording

import (
	"fmt"
	"time"
)

// State is the recording lifecycle state. Exactly one is active at any time;
// the machine is the sole mutator.
type State int

const (
	// StateStandby means no session is active; the engine is waiting for a
	// battle to start.
	StateStandby State = iota
	// StateRecording means the recorder is running for the current session.
	StateRecording
	// StatePaused means recording is suspended during a loading screen.
	StatePaused
	// StatePostGameProcessing means the session has been finalized and
	// handed off; terminal for this session invocation.
	StatePostGameProcessing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStandby:
		return "standby"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	case StatePostGameProcessing:
		return "post_game_processing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// EventType names a domain event consumed by the state machine. Detection
// edges are mapped to these upstream; Cancel is operator-issued.
type EventType int

const (
	EventScheduleChanged EventType = iota
	EventRateDetected
	EventMatchingStarted
	EventBattleStarted
	EventEarlyAbort
	EventLoadingDetected
	EventLoadingFinished
	EventFinishDetected
	EventFinishFinished
	EventResultDetected
	EventPostGameDetected
	EventCancel
)

var eventNames = map[EventType]string{
	EventScheduleChanged:  "schedule_changed",
	EventRateDetected:     "rate_detected",
	EventMatchingStarted:  "matching_started",
	EventBattleStarted:    "battle_started",
	EventEarlyAbort:       "early_abort",
	EventLoadingDetected:  "loading_detected",
	EventLoadingFinished:  "loading_finished",
	EventFinishDetected:   "finish_detected",
	EventFinishFinished:   "finish_finished",
	EventResultDetected:   "result_detected",
	EventPostGameDetected: "post_game_detected",
	EventCancel:           "cancel",
}

// String returns the event's wire name.
func (e EventType) String() string {
	if n, ok := eventNames[e]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// ParseEventType resolves a wire name back to an event type. Used by the
// configuration loader to bind detector edges to events.
func ParseEventType(name string) (EventType, bool) {
	for e, n := range eventNames {
		if n == name {
			return e, true
		}
	}
	return 0, false
}

// Event is one input to the state machine.
type Event struct {
	Type EventType

	// Detector is the detector whose edge produced this event; empty for
	// operator events.
	Detector string

	// Fields carries metadata fragments attached to the event (schedule,
	// rate, match result pieces). Merged into the session draft.
	Fields map[string]string

	Timestamp time.Time
}

// Command is an instruction for the external recorder port.
type Command int

const (
	CommandStart Command = iota
	CommandPause
	CommandResume
	// CommandStopDiscard stops recording and throws the footage away.
	CommandStopDiscard
	// CommandStopFinalize stops recording and keeps the footage for the
	// post-processing pipeline.
	CommandStopFinalize
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandPause:
		return "pause"
	case CommandResume:
		return "resume"
	case CommandStopDiscard:
		return "stop_discard"
	case CommandStopFinalize:
		return "stop_finalize"
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// DomainKind classifies a domain event published to external consumers.
type DomainKind string

const (
	// KindStateChanged reports a state transition.
	KindStateChanged DomainKind = "state_changed"
	// KindMetadataUpdated reports a metadata-only event was absorbed.
	KindMetadataUpdated DomainKind = "metadata_updated"
	// KindSessionFinalized hands the finalized session to post-processing.
	KindSessionFinalized DomainKind = "session_finalized"
	// KindSessionDiscarded reports an aborted or cancelled session.
	KindSessionDiscarded DomainKind = "session_discarded"
	// KindError reports a failed recorder command; the machine is halted
	// until an operator cancels.
	KindError DomainKind = "error"
)

// DomainEvent is published to the external event bus for metadata
// accumulation, UI notification and post-processing triggers.
type DomainEvent struct {
	Kind      DomainKind `json:"kind"`
	Event     string     `json:"event,omitempty"`
	Detector  string     `json:"detector,omitempty"`
	State     string     `json:"state"`
	Session   *Session   `json:"session,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"ts"`
}
