package report

import (
	"context"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/interview-cli/internal/leadfile"
	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr[T any](v T) *T { return &v }

type fixture struct {
	st       *store.SQLiteStore
	campaign *model.Campaign
	leads    []*model.Lead
}

func newFixture(t *testing.T, openQuestion bool) *fixture {
	t.Helper()
	ctx := context.Background()
	st := newTestStore(t)

	c := &model.Campaign{
		Title: "Q3 Pilot", HypothesisPain: "p", HypothesisJob: "j", TargetICPDescription: "icp",
		Question1: "q1", Question2: "q2", Question3: "q3", Question4: "q4",
	}
	if openQuestion {
		c.Question5Open = ptr("Anything else?")
	}
	require.NoError(t, st.CreateCampaign(ctx, c))

	f := &fixture{st: st, campaign: c}
	add := func(l *model.Lead) {
		require.NoError(t, st.CreateLead(ctx, l))
		f.leads = append(f.leads, l)
	}
	add(&model.Lead{
		CampaignID: c.ID,
		RawData:    model.NewRawRecord([]string{"name", "company"}, []string{"Ada", "Acme, Inc."}),
		IsICPMatch: ptr(true), MatchReasoning: ptr("fits"), UniqueToken: ptr("tok-ada"),
	})
	add(&model.Lead{
		CampaignID: c.ID,
		RawData:    model.NewRawRecord([]string{"email", "role"}, []string{"bob@example.com", "Student"}),
		IsICPMatch: ptr(false), MatchReasoning: ptr("not a buyer"),
	})
	add(&model.Lead{
		CampaignID: c.ID,
		RawData:    model.NewRawRecord([]string{"notes"}, []string{strings.Repeat("x", 80)}),
		IsICPMatch: ptr(true), UniqueToken: ptr("tok-long"),
	})

	require.NoError(t, st.CreateInterviewLog(ctx, &model.InterviewLog{
		LeadID: f.leads[0].ID, ConversationID: "conv-ada",
		Answers:        model.Answers{Question1: "Spreadsheets, mostly", Question2: "He said \"never\"", Question5: "More automation"},
		IsValidPersona: true,
	}))
	require.NoError(t, st.CreateInterviewLog(ctx, &model.InterviewLog{
		LeadID: f.leads[2].ID, ConversationID: "conv-spam",
		Answers: model.Answers{Question1: "asdf"},
	}))
	return f
}

func TestLoader_Detail(t *testing.T) {
	f := newFixture(t, false)

	d, err := NewLoader(f.st, "https://app.example.com/").Detail(context.Background(), f.campaign.ID, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Q3 Pilot", d.Campaign.Title)
	require.Len(t, d.Leads, 3)
	assert.Equal(t, f.leads[2].ID, d.Leads[0].ID)
	assert.Equal(t, "https://app.example.com/interview/tok-ada", d.Leads[2].InterviewURL)
	assert.Equal(t, "Match", d.Leads[2].MatchLabel)
	assert.Equal(t, "—", d.Leads[0].Reason)
	assert.Len(t, d.Responses, 2)
}

func TestLoader_ResponsesValidOnly(t *testing.T) {
	f := newFixture(t, false)

	_, rs, err := NewLoader(f.st, "").Responses(context.Background(), f.campaign.ID, Options{ValidOnly: true})
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "Ada", rs[0].LeadName)
	assert.Equal(t, "conv-ada", rs[0].ConversationID)
}

func TestLoader_UnknownCampaign(t *testing.T) {
	st := newTestStore(t)

	_, err := NewLoader(st, "").Detail(context.Background(), "missing", Options{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLeadViews(t *testing.T) {
	f := newFixture(t, false)
	leads, err := f.st.ListLeads(context.Background(), model.LeadFilter{CampaignID: f.campaign.ID})
	require.NoError(t, err)

	views := LeadViews(leads, "")
	require.Len(t, views, 3)
	assert.Equal(t, "Ada", views[0].Name)
	assert.Equal(t, "/interview/tok-ada", views[0].InterviewURL)
	assert.Equal(t, "bob@example.com", views[1].Name)
	assert.Equal(t, "No Match", views[1].MatchLabel)
	assert.Empty(t, views[1].InterviewURL)
	assert.Len(t, views[2].Name, 50)
}

func TestLeadName_Empty(t *testing.T) {
	assert.Equal(t, "—", LeadName(model.RawRecord{}))
}

func TestWriteResponsesCSV(t *testing.T) {
	f := newFixture(t, false)
	c, rs, err := NewLoader(f.st, "").Responses(context.Background(), f.campaign.ID, Options{})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, WriteResponsesCSV(&sb, c, rs))
	out := sb.String()
	assert.True(t, strings.HasPrefix(out, leadfile.BOM+"Question 1,Question 2,Question 3,Question 4\r\n"))

	got, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, leadfile.BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Spreadsheets, mostly", "He said \"never\"", "", ""}, got[1])
}

func TestWriteResponsesCSV_OpenQuestion(t *testing.T) {
	f := newFixture(t, true)
	c, rs, err := NewLoader(f.st, "").Responses(context.Background(), f.campaign.ID, Options{ValidOnly: true})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, WriteResponsesCSV(&sb, c, rs))

	got, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(sb.String(), leadfile.BOM))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Question 5", got[0][4])
	assert.Equal(t, "More automation", got[1][4])
}

func TestWriteLeadsCSV(t *testing.T) {
	f := newFixture(t, false)
	leads, err := f.st.ListLeads(context.Background(), model.LeadFilter{CampaignID: f.campaign.ID})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, WriteLeadsCSV(&sb, leads, "https://app.example.com"))

	got, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(sb.String(), leadfile.BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"company", "email", "name", "notes", "role", "interview_link"}, got[0])
	assert.Equal(t, []string{"Acme, Inc.", "", "Ada", "", "", "https://app.example.com/interview/tok-ada"}, got[1])
	assert.Equal(t, "", got[2][5])
}

func TestWriteLeadsCSV_Empty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteLeadsCSV(&sb, nil, ""))
	assert.Equal(t, leadfile.BOM+"interview_link\r\n", sb.String())
}

func TestFilenames(t *testing.T) {
	c := &model.Campaign{Title: "Q3 Pilot"}
	assert.Equal(t, "Q3_Pilot_responses.csv", ResponsesFilename(c))
	assert.Equal(t, "Q3_Pilot_leads.csv", LeadsFilename(c))
}
