package interview

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/store"
)

// Recorder persists an interview log and advances the lead to completed.
type Recorder struct {
	store store.Store
}

// NewRecorder creates a Recorder.
func NewRecorder(st store.Store) *Recorder {
	return &Recorder{store: st}
}

// Record inserts log, then marks its lead completed. A log already stored for
// the same conversation is kept and reported through duplicate; the lead is
// still marked completed. The log is not rolled back if the status update
// fails.
func (r *Recorder) Record(ctx context.Context, log *model.InterviewLog) (duplicate bool, err error) {
	err = r.store.CreateInterviewLog(ctx, log)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		duplicate = true
		zap.L().Info("interview: conversation already recorded",
			zap.String("conversation_id", log.ConversationID),
			zap.String("lead_id", log.LeadID),
		)
	case err != nil:
		return false, eris.Wrap(err, "interview: insert log")
	}

	changed, err := r.store.MarkLeadCompleted(ctx, log.LeadID)
	if err != nil {
		return duplicate, eris.Wrap(err, "interview: mark lead completed")
	}
	zap.L().Info("interview: lead completed",
		zap.String("lead_id", log.LeadID),
		zap.Bool("status_changed", changed),
	)
	return duplicate, nil
}

// MarkCompleted sets the lead to completed. Calling it again is a no-op.
func (r *Recorder) MarkCompleted(ctx context.Context, leadID string) (bool, error) {
	changed, err := r.store.MarkLeadCompleted(ctx, leadID)
	if err != nil {
		return false, eris.Wrap(err, "interview: mark lead completed")
	}
	return changed, nil
}
