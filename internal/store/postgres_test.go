package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/interview-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var leadCols = []string{"id", "campaign_id", "raw_data", "is_icp_match", "match_reasoning", "unique_token", "status", "created_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS campaigns`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateCampaign(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	c := &model.Campaign{Title: "Freight", HypothesisPain: "p", HypothesisJob: "j", TargetICPDescription: "icp",
		Question1: "q1", Question2: "q2", Question3: "q3", Question4: "q4"}

	mock.ExpectExec(`INSERT INTO campaigns`).
		WithArgs(pgxmock.AnyArg(), "Freight", "p", "j", "icp", "q1", "q2", "q3", "q4", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateCampaign(context.Background(), c))
	assert.NotEmpty(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCampaign_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM campaigns WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCampaign(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLeadByToken(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now()
	match := true
	reason := "fits"
	token := "tok-1"

	mock.ExpectQuery(`SELECT .+ FROM leads WHERE unique_token = \$1`).
		WithArgs("tok-1").
		WillReturnRows(pgxmock.NewRows(leadCols).
			AddRow("lead-1", "camp-1", []byte(`{"name":"Ada","email":"ada@example.com"}`), &match, &reason, &token, "pending", now))

	l, err := s.GetLeadByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", l.ID)
	assert.Equal(t, model.LeadPending, l.Status)
	assert.Equal(t, []string{"name", "email"}, l.RawData.Keys())
	assert.True(t, l.Invitable())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLeadByToken_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM leads WHERE unique_token`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetLeadByToken(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateLead_DuplicateToken(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "leads_unique_token_key"})

	token := "dup"
	err := s.CreateLead(context.Background(), &model.Lead{CampaignID: "camp-1", UniqueToken: &token})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	match := true

	mock.ExpectQuery(`FROM leads WHERE true AND campaign_id = \$1 AND status = \$2 AND is_icp_match = \$3 ORDER BY seq`).
		WithArgs("camp-1", "completed", true).
		WillReturnRows(pgxmock.NewRows(leadCols))

	leads, err := s.ListLeads(context.Background(), model.LeadFilter{
		CampaignID: "camp-1",
		Status:     model.LeadCompleted,
		Match:      &match,
	})
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkLeadCompleted(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leads SET status = 'completed'`).
		WithArgs("lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	changed, err := s.MarkLeadCompleted(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkLeadCompleted_AlreadyDone(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leads SET status = 'completed'`).
		WithArgs("lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("lead-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	changed, err := s.MarkLeadCompleted(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkLeadCompleted_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leads`).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.MarkLeadCompleted(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateInterviewLog_Duplicate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO interview_logs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: conversationConstraint})

	err := s.CreateInterviewLog(context.Background(), &model.InterviewLog{LeadID: "lead-1", ConversationID: "conv-1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetInterviewLogByConversation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM interview_logs WHERE conversation_id = \$1`).
		WithArgs("conv-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lead_id", "conversation_id", "transcript", "audio_url", "answers", "is_valid_persona", "created_at"}).
			AddRow("log-1", "lead-1", "conv-1", "agent: hi", "https://audio", []byte(`{"question_1":"yes","reason":"ok"}`), true, time.Now()))

	l, err := s.GetInterviewLogByConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "yes", l.Answers.Question1)
	assert.Equal(t, "ok", l.Answers.Reason)
	assert.True(t, l.IsValidPersona)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListInterviewLogs_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	logs, err := s.ListInterviewLogs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, logs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	s := &PostgresStore{pool: mock}

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	require.NoError(t, s.Ping(context.Background()))
	assert.Error(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
