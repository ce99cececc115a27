package recording

import (
	"time"

	"github.com/google/uuid"
)

// Session accumulates draft metadata for one gameplay match while the
// recorder runs. It is created on entry to Recording, finalized on entry to
// PostGameProcessing, and discarded on early abort or cancel.
type Session struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"started_at"`

	// FinalizedAt is set when the session is handed to post-processing.
	FinalizedAt time.Time `json:"finalized_at,omitzero"`

	// Fields holds metadata fragments merged from domain events: schedule
	// and rate information captured before the match, result fragments
	// captured during and after it.
	Fields map[string]string `json:"fields,omitempty"`
}

func newSession(start time.Time, pending map[string]string) *Session {
	s := &Session{
		ID:        uuid.New(),
		StartedAt: start,
		Fields:    make(map[string]string, len(pending)),
	}
	for k, v := range pending {
		s.Fields[k] = v
	}
	return s
}

// merge copies event metadata fragments into the session draft.
func (s *Session) merge(fields map[string]string) {
	for k, v := range fields {
		s.Fields[k] = v
	}
}

// snapshot returns a copy safe to hand to external consumers after the
// machine has moved on.
func (s *Session) snapshot() *Session {
	cp := *s
	cp.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		cp.Fields[k] = v
	}
	return &cp
}
