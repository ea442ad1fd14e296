package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/store"
)

// State is what an interview link currently offers.
type State string

const (
	StateReady     State = "ready"
	StateCompleted State = "completed"
)

// defaultLeadName is used when a row has no usable name column.
const defaultLeadName = "there"

// Session is the payload the interview page hands to the voice agent.
type Session struct {
	State            State             `json:"state"`
	LeadName         string            `json:"lead_name,omitempty"`
	AgentID          string            `json:"agent_id,omitempty"`
	DynamicVariables map[string]string `json:"dynamic_variables,omitempty"`
}

// Access resolves interview tokens. The token is the only credential a
// respondent holds.
type Access struct {
	store    store.Store
	recorder *Recorder
	agentID  string
}

// NewAccess creates an Access for the given voice agent.
func NewAccess(st store.Store, agentID string) *Access {
	return &Access{store: st, recorder: NewRecorder(st), agentID: agentID}
}

// Resolve returns the session for token. Unknown tokens and leads whose
// campaign is gone yield store.ErrNotFound.
func (a *Access) Resolve(ctx context.Context, token string) (*Session, error) {
	lead, err := a.lead(ctx, token)
	if err != nil {
		return nil, err
	}
	if lead.Status == model.LeadCompleted {
		return &Session{State: StateCompleted}, nil
	}

	campaign, err := a.store.GetCampaign(ctx, lead.CampaignID)
	if err != nil {
		return nil, eris.Wrap(err, "interview: load campaign")
	}

	name := lead.RawData.DisplayName(defaultLeadName)
	return &Session{
		State:            StateReady,
		LeadName:         name,
		AgentID:          a.agentID,
		DynamicVariables: DynamicVariables(campaign, name),
	}, nil
}

// Complete marks the lead holding token as completed. It reports whether the
// status changed; repeated calls succeed without effect.
func (a *Access) Complete(ctx context.Context, token string) (bool, error) {
	lead, err := a.lead(ctx, token)
	if err != nil {
		return false, err
	}
	return a.recorder.MarkCompleted(ctx, lead.ID)
}

func (a *Access) lead(ctx context.Context, token string) (*model.Lead, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, eris.Wrap(store.ErrNotFound, "interview: empty token")
	}
	lead, err := a.store.GetLeadByToken(ctx, token)
	if err != nil {
		return nil, eris.Wrap(err, "interview: resolve token")
	}
	return lead, nil
}

// DynamicVariables builds the variables injected into the voice agent prompt.
func DynamicVariables(c *model.Campaign, leadName string) map[string]string {
	pain := strings.TrimSpace(c.HypothesisPain)
	job := strings.TrimSpace(c.HypothesisJob)
	qs := []string{
		strings.TrimSpace(c.Question1),
		strings.TrimSpace(c.Question2),
		strings.TrimSpace(c.Question3),
		strings.TrimSpace(c.Question4),
	}

	return map[string]string{
		"lead_name":        leadName,
		"hypothesis_pain":  pain,
		"hypothesis_job":   job,
		"question_1":       qs[0],
		"question_2":       qs[1],
		"question_3":       qs[2],
		"question_4":       qs[3],
		"interview_script": Script(pain, job, leadName, qs),
	}
}

// Script renders the single prompt block given to the agent. Blank context
// lines and blank questions are omitted.
func Script(pain, job, leadName string, questions []string) string {
	if leadName == "" {
		leadName = "the interviewee"
	}
	lines := make([]string, 0, 8)
	if pain != "" {
		lines = append(lines, "Context (pain hypothesis): "+pain)
	}
	if job != "" {
		lines = append(lines, "Context (job to be done): "+job)
	}
	lines = append(lines,
		fmt.Sprintf("You are speaking with %s.", leadName),
		"You MUST ask these 4 questions during the interview, in order, in a natural way:",
	)
	for i, q := range questions {
		if q != "" {
			lines = append(lines, fmt.Sprintf("%d) %s", i+1, q))
		}
	}
	return strings.Join(lines, "\n")
}
