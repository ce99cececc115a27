// Package recorder defines the port to the external capture device. The
// engine only issues commands and observes success or failure; timeouts and
// retries are the implementation's concern.
package recorder

import (
	"context"
	"fmt"

	"github.com/mizutama/gamewatch/pkg/recording"
)

// Recorder is the external recorder/compositor port.
type Recorder interface {
	// Start begins capturing footage for the session.
	Start(ctx context.Context, s *recording.Session) error

	// Pause suspends capture without ending the session.
	Pause(ctx context.Context, s *recording.Session) error

	// Resume continues a paused capture.
	Resume(ctx context.Context, s *recording.Session) error

	// StopDiscard ends capture and deletes the footage.
	StopDiscard(ctx context.Context, s *recording.Session) error

	// StopFinalize ends capture and keeps the footage for post-processing.
	StopFinalize(ctx context.Context, s *recording.Session) error
}

// Dispatch routes one state machine command to the port.
func Dispatch(ctx context.Context, r Recorder, cmd recording.Command, s *recording.Session) error {
	switch cmd {
	case recording.CommandStart:
		return r.Start(ctx, s)
	case recording.CommandPause:
		return r.Pause(ctx, s)
	case recording.CommandResume:
		return r.Resume(ctx, s)
	case recording.CommandStopDiscard:
		return r.StopDiscard(ctx, s)
	case recording.CommandStopFinalize:
		return r.StopFinalize(ctx, s)
	}
	return fmt.Errorf("recorder: unknown command %d", int(cmd))
}
