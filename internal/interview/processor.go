package interview

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/analyze"
	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/store"
	"github.com/sells-group/interview-cli/internal/transcript"
)

// TranscriptFetcher retrieves the finished transcript of a conversation.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, conversationID string) (*transcript.Result, error)
}

// AnswerExtractor turns a transcript into answers and a validity judgment.
type AnswerExtractor interface {
	Extract(ctx context.Context, transcript string) (*analyze.Extraction, error)
}

// Outcome summarizes one Process call.
type Outcome struct {
	LeadID         string `json:"lead_id"`
	ConversationID string `json:"conversation_id"`
	// AlreadyRecorded is set when a log for the conversation existed before
	// this call, or appeared concurrently.
	AlreadyRecorded bool `json:"already_recorded"`
	// Degraded is set when the transcript placeholder was stored.
	Degraded        bool `json:"degraded"`
	ExtractSkipped  bool `json:"extract_skipped"`
	IsValidPersona  bool `json:"is_valid_persona"`
	FetchAttempts   int  `json:"fetch_attempts"`
	TranscriptChars int  `json:"transcript_chars"`
}

// Processor runs Fetcher, Extractor and Recorder for a finished call.
type Processor struct {
	store     store.Store
	fetcher   TranscriptFetcher
	extractor AnswerExtractor
	recorder  *Recorder
	timeout   time.Duration
}

// NewProcessor creates a Processor. A positive timeout bounds each run.
func NewProcessor(st store.Store, fetcher TranscriptFetcher, extractor AnswerExtractor, timeout time.Duration) *Processor {
	return &Processor{
		store:     st,
		fetcher:   fetcher,
		extractor: extractor,
		recorder:  NewRecorder(st),
		timeout:   timeout,
	}
}

// Process fetches, analyzes and records the conversation for the lead holding
// token. It runs detached from ctx's cancellation so a client that goes away
// does not abort the pipeline halfway. A failure at any stage returns before
// the lead status changes.
func (p *Processor) Process(ctx context.Context, conversationID, token string) (*Outcome, error) {
	conversationID = strings.TrimSpace(conversationID)
	token = strings.TrimSpace(token)
	if conversationID == "" || token == "" {
		return nil, ErrInvalidRequest
	}

	ctx = context.WithoutCancel(ctx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	log := zap.L().With(zap.String("conversation_id", conversationID))

	lead, err := p.store.GetLeadByToken(ctx, token)
	if err != nil {
		return nil, eris.Wrap(err, "interview: resolve lead")
	}
	log = log.With(zap.String("lead_id", lead.ID))
	out := &Outcome{LeadID: lead.ID, ConversationID: conversationID}

	existing, err := p.store.GetInterviewLogByConversation(ctx, conversationID)
	switch {
	case err == nil:
		if existing.LeadID != lead.ID {
			return nil, eris.Wrapf(ErrConversationConflict, "interview: conversation %s", conversationID)
		}
		if _, err := p.recorder.MarkCompleted(ctx, lead.ID); err != nil {
			return nil, &StageError{Stage: StageRecord, Err: err}
		}
		log.Info("interview: conversation already processed")
		out.AlreadyRecorded = true
		out.IsValidPersona = existing.IsValidPersona
		return out, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, eris.Wrap(err, "interview: check existing log")
	}

	res, err := p.fetcher.Fetch(ctx, conversationID)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	out.FetchAttempts = res.Attempts
	out.Degraded = res.Degraded
	out.TranscriptChars = len([]rune(res.Text))
	log.Info("interview: transcript fetched",
		zap.Int("attempts", res.Attempts),
		zap.Int("length", out.TranscriptChars),
		zap.Bool("degraded", res.Degraded),
	)

	ex, err := p.extractor.Extract(ctx, res.Text)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Err: err}
	}
	out.ExtractSkipped = ex.Skipped
	out.IsValidPersona = ex.IsValid

	entry := &model.InterviewLog{
		LeadID:         lead.ID,
		ConversationID: conversationID,
		Transcript:     res.Text,
		AudioURL:       res.AudioURL,
		Answers:        ex.Answers,
		IsValidPersona: ex.IsValid,
	}
	dup, err := p.recorder.Record(ctx, entry)
	if err != nil {
		return nil, &StageError{Stage: StageRecord, Err: err}
	}
	out.AlreadyRecorded = dup

	log.Info("interview: processed",
		zap.Bool("is_valid_persona", ex.IsValid),
		zap.Bool("already_recorded", dup),
	)
	return out, nil
}
