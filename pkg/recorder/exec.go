package recorder

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/mizutama/gamewatch/internal/log"
	"github.com/mizutama/gamewatch/pkg/recording"
)

// Exec drives an external recorder through hook commands, one per lifecycle
// command. The session ID and the command name are passed as arguments so a
// hook can key its own state. Timeout and retry policy live in the hooks;
// the engine only observes the exit status.
type Exec struct {
	// Hooks maps each command to the program and arguments to run. An
	// unmapped command is an error: a recorder that cannot pause should
	// not be configured with detectors that pause.
	Hooks map[recording.Command][]string
}

// NewExec builds an exec recorder from one hook program invoked as
// `prog <command> <session-id>`.
func NewExec(prog string, args ...string) *Exec {
	hooks := make(map[recording.Command][]string, 5)
	for _, cmd := range []recording.Command{
		recording.CommandStart,
		recording.CommandPause,
		recording.CommandResume,
		recording.CommandStopDiscard,
		recording.CommandStopFinalize,
	} {
		hook := append([]string{prog}, args...)
		hooks[cmd] = append(hook, cmd.String())
	}
	return &Exec{Hooks: hooks}
}

func (e *Exec) run(ctx context.Context, cmd recording.Command, s *recording.Session) error {
	hook, ok := e.Hooks[cmd]
	if !ok || len(hook) == 0 {
		return fmt.Errorf("recorder: no hook for command %s", cmd)
	}
	args := hook[1:]
	if s != nil {
		args = append(append([]string{}, args...), s.ID.String())
	}

	c := exec.CommandContext(ctx, hook[0], args...)
	out, err := c.CombinedOutput()
	if err != nil {
		return fmt.Errorf("recorder: hook %s failed: %w (output: %s)", cmd, err, out)
	}
	log.Debug("recorder hook ran", "command", cmd.String(), "hook", hook[0])
	return nil
}

// Start implements Recorder.
func (e *Exec) Start(ctx context.Context, s *recording.Session) error {
	return e.run(ctx, recording.CommandStart, s)
}

// Pause implements Recorder.
func (e *Exec) Pause(ctx context.Context, s *recording.Session) error {
	return e.run(ctx, recording.CommandPause, s)
}

// Resume implements Recorder.
func (e *Exec) Resume(ctx context.Context, s *recording.Session) error {
	return e.run(ctx, recording.CommandResume, s)
}

// StopDiscard implements Recorder.
func (e *Exec) StopDiscard(ctx context.Context, s *recording.Session) error {
	return e.run(ctx, recording.CommandStopDiscard, s)
}

// StopFinalize implements Recorder.
func (e *Exec) StopFinalize(ctx context.Context, s *recording.Session) error {
	return e.run(ctx, recording.CommandStopFinalize, s)
}
