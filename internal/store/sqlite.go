package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sells-group/interview-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// Foreign keys and the busy timeout are set per connection through the DSN.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id                     TEXT PRIMARY KEY,
	title                  TEXT NOT NULL,
	hypothesis_pain        TEXT NOT NULL,
	hypothesis_job         TEXT NOT NULL,
	target_icp_description TEXT NOT NULL,
	question_1             TEXT NOT NULL,
	question_2             TEXT NOT NULL,
	question_3             TEXT NOT NULL,
	question_4             TEXT NOT NULL,
	question_5_open        TEXT,
	created_at             DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id              TEXT PRIMARY KEY,
	campaign_id     TEXT NOT NULL REFERENCES campaigns(id),
	raw_data        TEXT NOT NULL,
	is_icp_match    INTEGER,
	match_reasoning TEXT,
	unique_token    TEXT UNIQUE,
	status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
	created_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS interview_logs (
	id               TEXT PRIMARY KEY,
	lead_id          TEXT NOT NULL REFERENCES leads(id),
	conversation_id  TEXT NOT NULL UNIQUE,
	transcript       TEXT NOT NULL DEFAULT '',
	audio_url        TEXT NOT NULL DEFAULT '',
	answers          TEXT NOT NULL DEFAULT '{}',
	is_valid_persona INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_interview_logs_lead_id ON interview_logs(lead_id);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaigns (`+campaignColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.HypothesisPain, c.HypothesisJob, c.TargetICPDescription,
		c.Question1, c.Question2, c.Question3, c.Question4, nullString(c.Question5Open), c.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert campaign")
}

func (s *SQLiteStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id)
	c, err := scanSQLiteCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: campaign %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get campaign %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list campaigns")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Campaign
	for rows.Next() {
		c, err := scanSQLiteCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan campaign")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate campaigns")
}

func (s *SQLiteStore) CreateLead(ctx context.Context, l *model.Lead) error {
	raw, err := json.Marshal(l.RawData)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal raw data")
	}
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now().UTC()
	if l.Status == "" {
		l.Status = model.LeadPending
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.CampaignID, string(raw), nullBool(l.IsICPMatch), nullString(l.MatchReasoning),
		nullString(l.UniqueToken), string(l.Status), l.CreatedAt,
	)
	if isSQLiteUnique(err) {
		return eris.Wrap(ErrDuplicate, "sqlite: insert lead")
	}
	return eris.Wrap(err, "sqlite: insert lead")
}

func (s *SQLiteStore) GetLeadByToken(ctx context.Context, token string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE unique_token = ?`, token)
	l, err := scanSQLiteLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite: lead by token")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get lead by token")
	}
	return l, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, filter.CampaignID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Match != nil {
		query += ` AND is_icp_match = ?`
		args = append(args, *filter.Match)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Lead
	for rows.Next() {
		l, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) MarkLeadCompleted(ctx context.Context, leadID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = 'completed' WHERE id = ? AND status <> 'completed'`, leadID)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: mark lead %s completed", leadID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = ?)`, leadID).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "sqlite: check lead %s", leadID)
	}
	if !exists {
		return false, eris.Wrapf(ErrNotFound, "sqlite: lead %s", leadID)
	}
	return false, nil
}

func (s *SQLiteStore) CreateInterviewLog(ctx context.Context, log *model.InterviewLog) error {
	answers, err := json.Marshal(log.Answers)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal answers")
	}
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interview_logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.LeadID, log.ConversationID, log.Transcript, log.AudioURL, string(answers), log.IsValidPersona, log.CreatedAt,
	)
	if isSQLiteUnique(err) {
		return eris.Wrapf(ErrDuplicate, "sqlite: interview log for conversation %s", log.ConversationID)
	}
	return eris.Wrap(err, "sqlite: insert interview log")
}

func (s *SQLiteStore) GetInterviewLogByConversation(ctx context.Context, conversationID string) (*model.InterviewLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM interview_logs WHERE conversation_id = ?`, conversationID)
	l, err := scanSQLiteLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: interview log for conversation %s", conversationID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get interview log")
	}
	return l, nil
}

func (s *SQLiteStore) ListInterviewLogs(ctx context.Context, leadIDs []string) ([]model.InterviewLog, error) {
	if len(leadIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(leadIDs)), ", ")
	args := make([]any, len(leadIDs))
	for i, id := range leadIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM interview_logs WHERE lead_id IN (`+placeholders+`) ORDER BY rowid`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list interview logs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.InterviewLog
	for rows.Next() {
		l, err := scanSQLiteLog(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan interview log")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate interview logs")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func isSQLiteUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func scanSQLiteCampaign(row scannable) (*model.Campaign, error) {
	var c model.Campaign
	var q5 sql.NullString
	err := row.Scan(&c.ID, &c.Title, &c.HypothesisPain, &c.HypothesisJob, &c.TargetICPDescription,
		&c.Question1, &c.Question2, &c.Question3, &c.Question4, &q5, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Question5Open = stringPtr(q5)
	return &c, nil
}

func scanSQLiteLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var raw, status string
	var match sql.NullBool
	var reasoning, token sql.NullString

	err := row.Scan(&l.ID, &l.CampaignID, &raw, &match, &reasoning, &token, &status, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if match.Valid {
		m := match.Bool
		l.IsICPMatch = &m
	}
	l.MatchReasoning = stringPtr(reasoning)
	l.UniqueToken = stringPtr(token)
	l.Status = model.LeadStatus(status)
	if err := json.Unmarshal([]byte(raw), &l.RawData); err != nil {
		return nil, eris.Wrap(err, "unmarshal raw data")
	}
	return &l, nil
}

func scanSQLiteLog(row scannable) (*model.InterviewLog, error) {
	var l model.InterviewLog
	var answers string
	err := row.Scan(&l.ID, &l.LeadID, &l.ConversationID, &l.Transcript, &l.AudioURL, &answers, &l.IsValidPersona, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &l.Answers); err != nil {
		return nil, eris.Wrap(err, "unmarshal answers")
	}
	return &l, nil
}
