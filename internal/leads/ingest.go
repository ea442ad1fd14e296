// Package leads imports uploaded rows into a campaign, gating each row
// through the ICP matcher.
package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/store"
)

// ErrNoRows is returned when an import carries no rows.
var ErrNoRows = eris.New("leads: no rows to import")

// maxTokenAttempts bounds token regeneration on a uniqueness collision.
const maxTokenAttempts = 3

// Matcher decides whether a row fits the campaign's ICP.
type Matcher interface {
	Evaluate(ctx context.Context, icp string, row model.RawRecord) model.MatchResult
}

// Summary reports the outcome of an import.
type Summary struct {
	CampaignID string       `json:"campaign_id"`
	Imported   int          `json:"imported"`
	Matched    int          `json:"matched"`
	Leads      []model.Lead `json:"leads"`
}

// Ingester evaluates and stores uploaded rows.
type Ingester struct {
	store   store.Store
	matcher Matcher
	timeout time.Duration
}

// NewIngester creates an Ingester. A positive timeout bounds each import.
func NewIngester(st store.Store, m Matcher, timeout time.Duration) *Ingester {
	return &Ingester{store: st, matcher: m, timeout: timeout}
}

// Ingest evaluates rows one at a time, in order, and inserts each lead as soon
// as its decision is known. Matched leads receive a fresh token. If an insert
// fails the rows already stored stay stored and the partial summary is
// returned with the error. The import runs detached from ctx's cancellation
// so a client that goes away does not lose verdicts already paid for.
func (in *Ingester) Ingest(ctx context.Context, campaignID string, rows []model.RawRecord) (*Summary, error) {
	ctx = context.WithoutCancel(ctx)
	if in.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.timeout)
		defer cancel()
	}

	campaign, err := in.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, eris.Wrap(err, "leads: load campaign")
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	log := zap.L().With(zap.String("campaign_id", campaign.ID))
	sum := &Summary{CampaignID: campaign.ID}

	for i, row := range rows {
		res := in.matcher.Evaluate(ctx, campaign.TargetICPDescription, row)
		lead, err := in.insert(ctx, campaign.ID, row, res)
		if err != nil {
			return sum, eris.Wrapf(err, "leads: insert row %d", i+1)
		}

		sum.Imported++
		if res.Match {
			sum.Matched++
		}
		sum.Leads = append(sum.Leads, *lead)
		log.Debug("leads: row imported",
			zap.Int("row", i+1),
			zap.String("lead_id", lead.ID),
			zap.Bool("match", res.Match),
		)
	}

	log.Info("leads: import finished",
		zap.Int("imported", sum.Imported),
		zap.Int("matched", sum.Matched),
	)
	return sum, nil
}

func (in *Ingester) insert(ctx context.Context, campaignID string, row model.RawRecord, res model.MatchResult) (*model.Lead, error) {
	for attempt := 1; ; attempt++ {
		match := res.Match
		reason := res.Reason
		lead := &model.Lead{
			CampaignID:     campaignID,
			RawData:        row,
			IsICPMatch:     &match,
			MatchReasoning: &reason,
			Status:         model.LeadPending,
		}
		if match {
			token := NewToken()
			lead.UniqueToken = &token
		}

		err := in.store.CreateLead(ctx, lead)
		if err == nil {
			return lead, nil
		}
		if !match || !errors.Is(err, store.ErrDuplicate) || attempt >= maxTokenAttempts {
			return nil, err
		}
	}
}

// NewToken returns an unguessable interview token.
func NewToken() string {
	return uuid.NewString()
}
