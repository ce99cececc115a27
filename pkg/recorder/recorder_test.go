package recorder

import (
	"context"
	"errors"
	"testing"

	"github.com/mizutama/gamewatch/pkg/recording"
)

func TestDispatch_RoutesEveryCommand(t *testing.T) {
	mock := NewMock()
	want := []recording.Command{
		recording.CommandStart,
		recording.CommandPause,
		recording.CommandResume,
		recording.CommandStopDiscard,
		recording.CommandStopFinalize,
	}

	for _, cmd := range want {
		if err := Dispatch(context.Background(), mock, cmd, nil); err != nil {
			t.Fatalf("Dispatch(%v): %v", cmd, err)
		}
	}

	got := mock.Commands()
	if len(got) != len(want) {
		t.Fatalf("commands: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDispatch_PropagatesFailure(t *testing.T) {
	mock := NewMock()
	boom := errors.New("boom")
	mock.FailOn[recording.CommandPause] = boom

	if err := Dispatch(context.Background(), mock, recording.CommandPause, nil); !errors.Is(err, boom) {
		t.Errorf("Dispatch: got %v, want %v", err, boom)
	}
	if got := mock.Commands(); len(got) != 0 {
		t.Errorf("failed command must not be recorded: %v", got)
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	if err := Dispatch(context.Background(), NewMock(), recording.Command(99), nil); err == nil {
		t.Error("unknown command must error")
	}
}
