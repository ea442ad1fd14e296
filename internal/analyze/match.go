package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/resilience"
)

// Fixed reasons reported by the Matcher.
const (
	NoCredentialReason = "No API key configured – defaulting to match for testing."
	NoResponseReason   = "No response from AI."
	missingReason      = "—"
)

// Matcher decides whether an imported row fits a campaign's ICP.
type Matcher struct {
	llm       Completer
	maxTokens int
}

// NewMatcher creates a Matcher. A nil llm means no credential is configured
// and every row matches.
func NewMatcher(llm Completer, maxTokens int) *Matcher {
	if maxTokens <= 0 {
		maxTokens = 150
	}
	return &Matcher{llm: llm, maxTokens: maxTokens}
}

// Evaluate returns the ICP decision for row. It never fails: a missing
// credential matches, and any request or parse failure does not match,
// with the failure as the reason.
func (m *Matcher) Evaluate(ctx context.Context, icp string, row model.RawRecord) model.MatchResult {
	if m.llm == nil {
		return model.MatchResult{Match: true, Reason: NoCredentialReason}
	}

	data, err := json.Marshal(row)
	if err != nil {
		return model.MatchResult{Reason: err.Error()}
	}

	prompt := fmt.Sprintf("ICP: %s\n\nLead data (JSON):\n%s\n\n"+
		`Is this lead a direct match for the ICP? Reply with a JSON object only: { "match": true or false, "reason": "short explanation" }`,
		icp, data)

	reply, err := m.llm.Complete(ctx, Request{User: prompt, MaxTokens: m.maxTokens, JSON: true})
	if err != nil {
		zap.L().Warn("analyze: icp match request failed", zap.Error(err))
		return model.MatchResult{Reason: failureReason(err)}
	}
	if reply == "" {
		return model.MatchResult{Reason: NoResponseReason}
	}

	obj, err := decodeObject(reply)
	if err != nil {
		return model.MatchResult{Reason: err.Error()}
	}

	res := model.MatchResult{Match: truthy(obj["match"]), Reason: stringField(obj, "reason")}
	if res.Reason == "" {
		res.Reason = missingReason
	}
	return res
}

func failureReason(err error) string {
	var se *resilience.StatusError
	if errors.As(err, &se) {
		return "API error: " + se.Body
	}
	return err.Error()
}
