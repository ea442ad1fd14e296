package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/interview-cli/internal/model"
)

var (
	// ErrNotFound is returned when a keyed lookup matches no row.
	ErrNotFound = eris.New("store: not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = eris.New("store: duplicate")
)

// Store defines the persistence interface for campaigns, leads and
// interview logs.
type Store interface {
	// Campaigns
	CreateCampaign(ctx context.Context, c *model.Campaign) error
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)

	// Leads
	CreateLead(ctx context.Context, l *model.Lead) error
	GetLeadByToken(ctx context.Context, token string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error)
	// MarkLeadCompleted sets status to completed. It reports false when the
	// lead was already completed.
	MarkLeadCompleted(ctx context.Context, leadID string) (bool, error)

	// Interview logs
	// CreateInterviewLog returns ErrDuplicate when the conversation ID was
	// already recorded.
	CreateInterviewLog(ctx context.Context, log *model.InterviewLog) error
	GetInterviewLogByConversation(ctx context.Context, conversationID string) (*model.InterviewLog, error)
	ListInterviewLogs(ctx context.Context, leadIDs []string) ([]model.InterviewLog, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}
