package model

import "time"

// LeadStatus is the interview state of a lead.
type LeadStatus string

const (
	LeadPending   LeadStatus = "pending"
	LeadCompleted LeadStatus = "completed"
)

// Lead is one imported row belonging to a campaign. A lead with a token is
// reachable at /interview/{token}; the token is its sole capability.
type Lead struct {
	ID             string     `json:"id"`
	CampaignID     string     `json:"campaign_id"`
	RawData        RawRecord  `json:"raw_data"`
	IsICPMatch     *bool      `json:"is_icp_match"`
	MatchReasoning *string    `json:"match_reasoning"`
	UniqueToken    *string    `json:"unique_token"`
	Status         LeadStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Invitable reports whether the lead matched the ICP and holds a token.
func (l *Lead) Invitable() bool {
	return l.IsICPMatch != nil && *l.IsICPMatch && l.UniqueToken != nil && *l.UniqueToken != ""
}

// Token returns the interview token or "".
func (l *Lead) Token() string {
	if l.UniqueToken == nil {
		return ""
	}
	return *l.UniqueToken
}

// LeadFilter narrows lead listings. Zero values mean no constraint.
type LeadFilter struct {
	CampaignID string
	Status     LeadStatus
	Match      *bool
}

// MatchResult is the ICP gate decision for a row.
type MatchResult struct {
	Match  bool   `json:"match"`
	Reason string `json:"reason"`
}
