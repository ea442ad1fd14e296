// Package interview runs the post-call pipeline (fetch, extract, record) and
// resolves interview tokens into sessions for the voice agent.
package interview

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/interview-cli/internal/config"
)

var (
	// ErrAgentNotConfigured is returned when no voice agent ID is set.
	ErrAgentNotConfigured = eris.Wrap(config.ErrMissingCredential, "interview: voice agent id")
	// ErrInvalidRequest is returned for blank identifiers.
	ErrInvalidRequest = eris.New("interview: conversation_id and token are required")
	// ErrConversationConflict is returned when a conversation was already
	// recorded against a different lead.
	ErrConversationConflict = eris.New("interview: conversation belongs to another lead")
)

// Pipeline stage names carried by StageError.
const (
	StageFetch   = "fetch"
	StageExtract = "extract"
	StageRecord  = "record"
	StageSession = "session"
)

// StageError reports which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("interview: %s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Upstream reports whether the failure came from an external provider rather
// than configuration or persistence.
func (e *StageError) Upstream() bool {
	if errors.Is(e.Err, config.ErrMissingCredential) {
		return false
	}
	return e.Stage != StageRecord
}
