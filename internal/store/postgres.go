package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/interview-cli/internal/db"
	"github.com/sells-group/interview-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

const (
	campaignColumns = `id, title, hypothesis_pain, hypothesis_job, target_icp_description, question_1, question_2, question_3, question_4, question_5_open, created_at`
	leadColumns     = `id, campaign_id, raw_data, is_icp_match, match_reasoning, unique_token, status, created_at`
	logColumns      = `id, lead_id, conversation_id, transcript, audio_url, answers, is_valid_persona, created_at`

	conversationConstraint = "interview_logs_conversation_id_key"
)

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"get_lead_by_token":       `SELECT ` + leadColumns + ` FROM leads WHERE unique_token = $1`,
	"get_log_by_conversation": `SELECT ` + logColumns + ` FROM interview_logs WHERE conversation_id = $1`,
	"mark_lead_completed":     `UPDATE leads SET status = 'completed' WHERE id = $1 AND status <> 'completed'`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				// Tables may not exist before the first migrate.
				var pgErr interface{ SQLState() string }
				if errors.As(err, &pgErr) && pgErr.SQLState() == "42P01" {
					return nil
				}
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS campaigns (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title                  TEXT NOT NULL,
	hypothesis_pain        TEXT NOT NULL,
	hypothesis_job         TEXT NOT NULL,
	target_icp_description TEXT NOT NULL,
	question_1             TEXT NOT NULL,
	question_2             TEXT NOT NULL,
	question_3             TEXT NOT NULL,
	question_4             TEXT NOT NULL,
	question_5_open        TEXT,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leads (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	seq             BIGINT GENERATED ALWAYS AS IDENTITY,
	campaign_id     TEXT NOT NULL REFERENCES campaigns(id),
	raw_data        JSON NOT NULL,
	is_icp_match    BOOLEAN,
	match_reasoning TEXT,
	unique_token    TEXT,
	status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT leads_unique_token_key UNIQUE (unique_token)
);

CREATE TABLE IF NOT EXISTS interview_logs (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id          TEXT NOT NULL REFERENCES leads(id),
	conversation_id  TEXT NOT NULL,
	transcript       TEXT NOT NULL DEFAULT '',
	audio_url        TEXT NOT NULL DEFAULT '',
	answers          JSONB NOT NULL DEFAULT '{}'::jsonb,
	is_valid_persona BOOLEAN NOT NULL DEFAULT false,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT interview_logs_conversation_id_key UNIQUE (conversation_id)
);

CREATE INDEX IF NOT EXISTS idx_leads_campaign_id ON leads(campaign_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_interview_logs_lead_id ON interview_logs(lead_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO campaigns (`+campaignColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.Title, c.HypothesisPain, c.HypothesisJob, c.TargetICPDescription,
		c.Question1, c.Question2, c.Question3, c.Question4, c.Question5Open, c.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert campaign")
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: campaign %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get campaign %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list campaigns")
	}
	defer rows.Close()

	var out []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan campaign")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate campaigns")
}

func (s *PostgresStore) CreateLead(ctx context.Context, l *model.Lead) error {
	raw, err := json.Marshal(l.RawData)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal raw data")
	}
	l.ID = uuid.New().String()
	l.CreatedAt = time.Now().UTC()
	if l.Status == "" {
		l.Status = model.LeadPending
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.CampaignID, raw, l.IsICPMatch, l.MatchReasoning, l.UniqueToken, string(l.Status), l.CreatedAt,
	)
	if db.IsUniqueViolation(err, "") {
		return eris.Wrap(ErrDuplicate, "postgres: insert lead")
	}
	return eris.Wrap(err, "postgres: insert lead")
}

func (s *PostgresStore) GetLeadByToken(ctx context.Context, token string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE unique_token = $1`, token)
	l, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "postgres: lead by token")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get lead by token")
	}
	return l, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.CampaignID != "" {
		query += fmt.Sprintf(` AND campaign_id = $%d`, argIdx)
		args = append(args, filter.CampaignID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Match != nil {
		query += fmt.Sprintf(` AND is_icp_match = $%d`, argIdx)
		args = append(args, *filter.Match)
	}
	query += ` ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) MarkLeadCompleted(ctx context.Context, leadID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = 'completed' WHERE id = $1 AND status <> 'completed'`, leadID)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: mark lead %s completed", leadID)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "postgres: check lead %s", leadID)
	}
	if !exists {
		return false, eris.Wrapf(ErrNotFound, "postgres: lead %s", leadID)
	}
	return false, nil
}

func (s *PostgresStore) CreateInterviewLog(ctx context.Context, log *model.InterviewLog) error {
	answers, err := json.Marshal(log.Answers)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal answers")
	}
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now().UTC()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO interview_logs (`+logColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		log.ID, log.LeadID, log.ConversationID, log.Transcript, log.AudioURL, answers, log.IsValidPersona, log.CreatedAt,
	)
	if db.IsUniqueViolation(err, conversationConstraint) {
		return eris.Wrapf(ErrDuplicate, "postgres: interview log for conversation %s", log.ConversationID)
	}
	return eris.Wrap(err, "postgres: insert interview log")
}

func (s *PostgresStore) GetInterviewLogByConversation(ctx context.Context, conversationID string) (*model.InterviewLog, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+logColumns+` FROM interview_logs WHERE conversation_id = $1`, conversationID)
	l, err := scanLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: interview log for conversation %s", conversationID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get interview log")
	}
	return l, nil
}

func (s *PostgresStore) ListInterviewLogs(ctx context.Context, leadIDs []string) ([]model.InterviewLog, error) {
	if len(leadIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+logColumns+` FROM interview_logs WHERE lead_id = ANY($1) ORDER BY created_at, id`, leadIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list interview logs")
	}
	defer rows.Close()

	var out []model.InterviewLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan interview log")
		}
		out = append(out, *l)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate interview logs")
}

func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(&c.ID, &c.Title, &c.HypothesisPain, &c.HypothesisJob, &c.TargetICPDescription,
		&c.Question1, &c.Question2, &c.Question3, &c.Question4, &c.Question5Open, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var raw []byte
	var status string
	err := row.Scan(&l.ID, &l.CampaignID, &raw, &l.IsICPMatch, &l.MatchReasoning, &l.UniqueToken, &status, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.Status = model.LeadStatus(status)
	if err := json.Unmarshal(raw, &l.RawData); err != nil {
		return nil, eris.Wrap(err, "unmarshal raw data")
	}
	return &l, nil
}

func scanLog(row pgx.Row) (*model.InterviewLog, error) {
	var l model.InterviewLog
	var answers []byte
	err := row.Scan(&l.ID, &l.LeadID, &l.ConversationID, &l.Transcript, &l.AudioURL, &answers, &l.IsValidPersona, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &l.Answers); err != nil {
		return nil, eris.Wrap(err, "unmarshal answers")
	}
	return &l, nil
}
