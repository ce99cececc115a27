package recording

import (
	"errors"
	"testing"
	"time"
)

// applyAll feeds events in order and returns the issued commands.
func applyAll(m *Machine, types ...EventType) []Command {
	var cmds []Command
	for _, typ := range types {
		out := m.Apply(Event{Type: typ, Timestamp: time.Unix(100, 0)})
		cmds = append(cmds, out.Commands...)
	}
	return cmds
}

func equalCommands(got, want []Command) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStandby_OnlyBattleStartTransitions(t *testing.T) {
	tests := []struct {
		event     EventType
		wantState State
		wantCmds  []Command
	}{
		{EventBattleStarted, StateRecording, []Command{CommandStart}},
		{EventScheduleChanged, StateStandby, nil},
		{EventRateDetected, StateStandby, nil},
		{EventMatchingStarted, StateStandby, nil},
		{EventLoadingDetected, StateStandby, nil},
		{EventLoadingFinished, StateStandby, nil},
		{EventFinishDetected, StateStandby, nil},
		{EventFinishFinished, StateStandby, nil},
		{EventResultDetected, StateStandby, nil},
		{EventPostGameDetected, StateStandby, nil},
		{EventEarlyAbort, StateStandby, nil},
		{EventCancel, StateStandby, nil},
	}

	for _, tc := range tests {
		t.Run(tc.event.String(), func(t *testing.T) {
			m := NewMachine()
			cmds := applyAll(m, tc.event)
			if m.State() != tc.wantState {
				t.Errorf("state: got %v, want %v", m.State(), tc.wantState)
			}
			if !equalCommands(cmds, tc.wantCmds) {
				t.Errorf("commands: got %v, want %v", cmds, tc.wantCmds)
			}
		})
	}
}

func TestRoundTrip_PauseResume(t *testing.T) {
	m := NewMachine()
	cmds := applyAll(m, EventBattleStarted, EventLoadingDetected, EventLoadingFinished)

	if m.State() != StateRecording {
		t.Errorf("state: got %v, want Recording", m.State())
	}
	want := []Command{CommandStart, CommandPause, CommandResume}
	if !equalCommands(cmds, want) {
		t.Errorf("commands: got %v, want %v", cmds, want)
	}
}

func TestEndToEnd_FullMatch(t *testing.T) {
	m := NewMachine()
	cmds := applyAll(m,
		EventBattleStarted,
		EventLoadingDetected,
		EventLoadingFinished,
		EventFinishDetected,
		EventPostGameDetected,
	)

	if m.State() != StatePostGameProcessing {
		t.Errorf("state: got %v, want PostGameProcessing", m.State())
	}
	want := []Command{CommandStart, CommandPause, CommandResume, CommandStopFinalize}
	if !equalCommands(cmds, want) {
		t.Errorf("commands: got %v, want %v", cmds, want)
	}
}

func TestCancel_AlwaysDiscards(t *testing.T) {
	histories := map[string][]EventType{
		"from recording":        {EventBattleStarted},
		"from paused":           {EventBattleStarted, EventLoadingDetected},
		"after finish detected": {EventBattleStarted, EventFinishDetected},
		"long history": {
			EventBattleStarted, EventLoadingDetected, EventLoadingFinished,
			EventLoadingDetected, EventLoadingFinished, EventResultDetected,
		},
	}

	for name, history := range histories {
		t.Run(name, func(t *testing.T) {
			m := NewMachine()
			applyAll(m, history...)
			out := m.Apply(Event{Type: EventCancel})

			if out.State != StateStandby || m.State() != StateStandby {
				t.Errorf("state after cancel: got %v, want Standby", m.State())
			}
			if !equalCommands(out.Commands, []Command{CommandStopDiscard}) {
				t.Errorf("commands: got %v, want [StopDiscard]", out.Commands)
			}
			if m.Session() != nil {
				t.Error("session must be discarded on cancel")
			}
		})
	}
}

func TestEarlyAbort_DiscardsSession(t *testing.T) {
	m := NewMachine()
	cmds := applyAll(m, EventBattleStarted, EventEarlyAbort)

	if m.State() != StateStandby {
		t.Errorf("state: got %v, want Standby", m.State())
	}
	want := []Command{CommandStart, CommandStopDiscard}
	if !equalCommands(cmds, want) {
		t.Errorf("commands: got %v, want %v", cmds, want)
	}
	if m.Session() != nil {
		t.Error("session must be discarded on early abort")
	}
}

func TestUnlistedEventsAreNoOps(t *testing.T) {
	m := NewMachine()
	applyAll(m, EventBattleStarted)

	// Duplicate and out-of-order detector firings are tolerated.
	for _, typ := range []EventType{
		EventBattleStarted, EventLoadingFinished, EventMatchingStarted, EventFinishFinished,
	} {
		out := m.Apply(Event{Type: typ})
		if out.State != StateRecording || len(out.Commands) != 0 {
			t.Errorf("%v in Recording: got state %v commands %v, want no-op",
				typ, out.State, out.Commands)
		}
	}
}

func TestMetadata_AccumulatesAcrossStates(t *testing.T) {
	m := NewMachine()

	// Standby metadata is captured before any session exists.
	m.Apply(Event{Type: EventScheduleChanged, Fields: map[string]string{"stage": "harbor"}})
	m.Apply(Event{Type: EventRateDetected, Fields: map[string]string{"rate": "1830"}})

	m.Apply(Event{Type: EventBattleStarted})
	s := m.Session()
	if s == nil {
		t.Fatal("session missing after battle start")
	}
	if s.Fields["stage"] != "harbor" || s.Fields["rate"] != "1830" {
		t.Errorf("pending metadata not carried into session: %v", s.Fields)
	}

	// In-match result fragments.
	m.Apply(Event{Type: EventFinishDetected, Fields: map[string]string{"finish": "seen"}})
	m.Apply(Event{Type: EventResultDetected, Fields: map[string]string{"result": "win"}})
	if s.Fields["finish"] != "seen" || s.Fields["result"] != "win" {
		t.Errorf("result metadata not merged: %v", s.Fields)
	}

	// A new session must not inherit the old pending metadata.
	m.Apply(Event{Type: EventCancel})
	m.Apply(Event{Type: EventBattleStarted})
	if got := m.Session().Fields["stage"]; got != "" {
		t.Errorf("stale metadata leaked into new session: %q", got)
	}
}

func TestSessionFinalized_HandoffSnapshot(t *testing.T) {
	m := NewMachine()
	m.Apply(Event{Type: EventBattleStarted, Timestamp: time.Unix(10, 0)})
	out := m.Apply(Event{
		Type:      EventPostGameDetected,
		Fields:    map[string]string{"result": "win"},
		Timestamp: time.Unix(99, 0),
	})

	var finalized *Session
	for _, dev := range out.Domain {
		if dev.Kind == KindSessionFinalized {
			finalized = dev.Session
		}
	}
	if finalized == nil {
		t.Fatal("no session_finalized domain event")
	}
	if finalized.FinalizedAt != time.Unix(99, 0) {
		t.Errorf("FinalizedAt: got %v", finalized.FinalizedAt)
	}
	if finalized.Fields["result"] != "win" {
		t.Errorf("finalized fields: %v", finalized.Fields)
	}
	if finalized.ID != out.Session.ID {
		t.Error("handoff snapshot must reference the acted-on session")
	}
}

func TestReset_OnlyFromPostGame(t *testing.T) {
	m := NewMachine()
	applyAll(m, EventBattleStarted)

	m.Reset()
	if m.State() != StateRecording {
		t.Error("reset outside PostGameProcessing must be a no-op")
	}

	applyAll(m, EventPostGameDetected)
	if m.State() != StatePostGameProcessing {
		t.Fatalf("state: got %v", m.State())
	}
	m.Reset()
	if m.State() != StateStandby || m.Session() != nil {
		t.Error("reset must return to Standby with no session")
	}
}

func TestCommandFailure_HaltsUntilCancel(t *testing.T) {
	m := NewMachine()
	applyAll(m, EventBattleStarted)

	dev := m.CommandFailed(CommandStart, errors.New("device busy"))
	if dev.Kind != KindError || dev.Error == "" {
		t.Errorf("error domain event: %+v", dev)
	}
	if !m.Halted() {
		t.Fatal("machine must halt after a failed command")
	}

	// No automatic progression while halted.
	out := m.Apply(Event{Type: EventPostGameDetected})
	if out.State != StateRecording || len(out.Commands) != 0 {
		t.Errorf("halted machine acted on event: %+v", out)
	}

	// Cancel recovers: discard and return to Standby.
	out = m.Apply(Event{Type: EventCancel})
	if out.State != StateStandby || m.Halted() {
		t.Errorf("cancel must clear the halt: %+v", out)
	}
	if !equalCommands(out.Commands, []Command{CommandStopDiscard}) {
		t.Errorf("commands: got %v, want [StopDiscard]", out.Commands)
	}

	// The machine is usable again.
	cmds := applyAll(m, EventBattleStarted)
	if !equalCommands(cmds, []Command{CommandStart}) {
		t.Errorf("post-recovery commands: got %v", cmds)
	}
}

func TestPostGame_IgnoresDetectorEvents(t *testing.T) {
	m := NewMachine()
	applyAll(m, EventBattleStarted, EventPostGameDetected)

	for _, typ := range []EventType{
		EventBattleStarted, EventLoadingDetected, EventCancel,
	} {
		out := m.Apply(Event{Type: typ})
		if out.State != StatePostGameProcessing || len(out.Commands) != 0 {
			t.Errorf("%v in PostGameProcessing: got %+v, want no-op", typ, out)
		}
	}
}
