package recorder

import (
	"context"
	"sync"

	"github.com/mizutama/gamewatch/pkg/recording"
)

// Mock is a test and dry-run recorder that records every command it is
// issued and can be told to fail specific commands.
type Mock struct {
	mu       sync.Mutex
	commands []recording.Command

	// FailOn maps a command to the error it should return.
	FailOn map[recording.Command]error
}

// NewMock returns an empty mock recorder.
func NewMock() *Mock {
	return &Mock{FailOn: make(map[recording.Command]error)}
}

// Commands returns a copy of the commands issued so far, in order.
func (m *Mock) Commands() []recording.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recording.Command, len(m.commands))
	copy(out, m.commands)
	return out
}

func (m *Mock) record(cmd recording.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailOn[cmd]; ok {
		return err
	}
	m.commands = append(m.commands, cmd)
	return nil
}

// Start implements Recorder.
func (m *Mock) Start(ctx context.Context, s *recording.Session) error {
	return m.record(recording.CommandStart)
}

// Pause implements Recorder.
func (m *Mock) Pause(ctx context.Context, s *recording.Session) error {
	return m.record(recording.CommandPause)
}

// Resume implements Recorder.
func (m *Mock) Resume(ctx context.Context, s *recording.Session) error {
	return m.record(recording.CommandResume)
}

// StopDiscard implements Recorder.
func (m *Mock) StopDiscard(ctx context.Context, s *recording.Session) error {
	return m.record(recording.CommandStopDiscard)
}

// StopFinalize implements Recorder.
func (m *Mock) StopFinalize(ctx context.Context, s *recording.Session) error {
	return m.record(recording.CommandStopFinalize)
}
