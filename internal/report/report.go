// Package report assembles campaign views and CSV exports from stored leads
// and interview logs.
package report

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/store"
)

const (
	nameLimit   = 50
	placeholder = "—"
)

// LeadView is one row of the campaign lead list.
type LeadView struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Match        bool             `json:"match"`
	MatchLabel   string           `json:"match_label"`
	Reason       string           `json:"reason"`
	Status       model.LeadStatus `json:"status"`
	InterviewURL string           `json:"interview_url,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Response is one recorded interview of a campaign lead.
type Response struct {
	LeadID         string        `json:"lead_id"`
	LeadName       string        `json:"lead_name"`
	ConversationID string        `json:"conversation_id"`
	AudioURL       string        `json:"audio_url"`
	Answers        model.Answers `json:"answers"`
	IsValidPersona bool          `json:"is_valid_persona"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Detail is a campaign with its leads and responses.
type Detail struct {
	Campaign  *model.Campaign `json:"campaign"`
	Leads     []LeadView      `json:"leads"`
	Responses []Response      `json:"responses"`
}

// Options narrows a report.
type Options struct {
	// ValidOnly drops interviews judged not to come from a genuine respondent.
	ValidOnly bool
}

// Loader reads campaign data from the store.
type Loader struct {
	store     store.Store
	publicURL string
}

// NewLoader creates a Loader. publicURL prefixes interview links.
func NewLoader(st store.Store, publicURL string) *Loader {
	return &Loader{store: st, publicURL: publicURL}
}

// Detail loads the campaign, its leads (newest first) and its responses.
func (l *Loader) Detail(ctx context.Context, campaignID string, opts Options) (*Detail, error) {
	campaign, leads, err := l.load(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	responses, err := l.responses(ctx, leads, opts)
	if err != nil {
		return nil, err
	}

	views := LeadViews(leads, l.publicURL)
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
	return &Detail{Campaign: campaign, Leads: views, Responses: responses}, nil
}

// Responses loads the campaign and the recorded interviews of its leads.
func (l *Loader) Responses(ctx context.Context, campaignID string, opts Options) (*model.Campaign, []Response, error) {
	campaign, leads, err := l.load(ctx, campaignID)
	if err != nil {
		return nil, nil, err
	}
	responses, err := l.responses(ctx, leads, opts)
	if err != nil {
		return nil, nil, err
	}
	return campaign, responses, nil
}

// Leads loads the campaign and its leads in import order.
func (l *Loader) Leads(ctx context.Context, campaignID string, filter model.LeadFilter) (*model.Campaign, []model.Lead, error) {
	filter.CampaignID = campaignID
	var (
		campaign *model.Campaign
		leads    []model.Lead
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		campaign, err = l.store.GetCampaign(gctx, campaignID)
		return eris.Wrap(err, "report: load campaign")
	})
	g.Go(func() error {
		var err error
		leads, err = l.store.ListLeads(gctx, filter)
		return eris.Wrap(err, "report: load leads")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return campaign, leads, nil
}

func (l *Loader) load(ctx context.Context, campaignID string) (*model.Campaign, []model.Lead, error) {
	return l.Leads(ctx, campaignID, model.LeadFilter{})
}

func (l *Loader) responses(ctx context.Context, leads []model.Lead, opts Options) ([]Response, error) {
	if len(leads) == 0 {
		return nil, nil
	}
	ids := make([]string, len(leads))
	byID := make(map[string]*model.Lead, len(leads))
	for i := range leads {
		ids[i] = leads[i].ID
		byID[leads[i].ID] = &leads[i]
	}

	logs, err := l.store.ListInterviewLogs(ctx, ids)
	if err != nil {
		return nil, eris.Wrap(err, "report: load interview logs")
	}

	out := make([]Response, 0, len(logs))
	for _, log := range logs {
		if opts.ValidOnly && !log.IsValidPersona {
			continue
		}
		name := placeholder
		if lead, ok := byID[log.LeadID]; ok {
			name = LeadName(lead.RawData)
		}
		out = append(out, Response{
			LeadID:         log.LeadID,
			LeadName:       name,
			ConversationID: log.ConversationID,
			AudioURL:       log.AudioURL,
			Answers:        log.Answers,
			IsValidPersona: log.IsValidPersona,
			CreatedAt:      log.CreatedAt,
		})
	}
	return out, nil
}

// LeadViews renders leads for the lead list. Only matched leads holding a
// token carry an interview link.
func LeadViews(leads []model.Lead, publicURL string) []LeadView {
	out := make([]LeadView, 0, len(leads))
	for i := range leads {
		lead := &leads[i]
		v := LeadView{
			ID:         lead.ID,
			Name:       LeadName(lead.RawData),
			MatchLabel: "No Match",
			Reason:     placeholder,
			Status:     lead.Status,
			CreatedAt:  lead.CreatedAt,
		}
		if lead.IsICPMatch != nil && *lead.IsICPMatch {
			v.Match = true
			v.MatchLabel = "Match"
		}
		if lead.MatchReasoning != nil {
			v.Reason = *lead.MatchReasoning
		}
		if lead.Invitable() {
			v.InterviewURL = InterviewURL(publicURL, lead.Token())
		}
		out = append(out, v)
	}
	return out
}

// LeadName is the display name of a row, at most 50 characters.
func LeadName(r model.RawRecord) string {
	name := r.DisplayName(placeholder)
	if utf8.RuneCountInString(name) > nameLimit {
		name = string([]rune(name)[:nameLimit])
	}
	return name
}

// InterviewURL is the respondent link for token. Without a public URL the
// link is site-relative.
func InterviewURL(publicURL, token string) string {
	return strings.TrimRight(publicURL, "/") + "/interview/" + token
}
