package interview

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/interview-cli/internal/analyze"
	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/store"
	"github.com/sells-group/interview-cli/internal/transcript"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "interview.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedCampaign(t *testing.T, st store.Store) *model.Campaign {
	t.Helper()
	c := &model.Campaign{
		Title:                "Freight Pain",
		HypothesisPain:       "Carrier invoices arrive late",
		HypothesisJob:        "Reconcile freight bills",
		TargetICPDescription: "Logistics managers",
		Question1:            "How do you reconcile invoices?",
		Question2:            "What breaks?",
		Question3:            "What does it cost?",
		Question4:            "What have you tried?",
	}
	require.NoError(t, st.CreateCampaign(context.Background(), c))
	return c
}

func seedLead(t *testing.T, st store.Store, campaignID, token string) *model.Lead {
	t.Helper()
	match := true
	l := &model.Lead{
		CampaignID:  campaignID,
		RawData:     model.NewRawRecord([]string{"company", "Full Name"}, []string{"Acme", "Ada Lovelace"}),
		IsICPMatch:  &match,
		UniqueToken: &token,
	}
	require.NoError(t, st.CreateLead(context.Background(), l))
	return l
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, conversationID string) (*transcript.Result, error) {
	args := m.Called(ctx, conversationID)
	if r := args.Get(0); r != nil {
		return r.(*transcript.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, text string) (*analyze.Extraction, error) {
	args := m.Called(ctx, text)
	if r := args.Get(0); r != nil {
		return r.(*analyze.Extraction), args.Error(1)
	}
	return nil, args.Error(1)
}

// failingStatusStore fails every status update.
type failingStatusStore struct {
	store.Store
	err error
}

func (f *failingStatusStore) MarkLeadCompleted(context.Context, string) (bool, error) {
	return false, f.err
}
