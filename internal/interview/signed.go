package interview

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/interview-cli/internal/resilience"
	"github.com/sells-group/interview-cli/pkg/elevenlabs"
)

// SignedURLSource issues websocket URLs for a voice agent.
type SignedURLSource interface {
	GetSignedURL(ctx context.Context, agentID string) (string, error)
}

// Signer hands out signed agent URLs with an extended inactivity timeout.
type Signer struct {
	src               SignedURLSource
	agentID           string
	inactivitySeconds int
	retry             resilience.RetryConfig
}

// NewSigner creates a Signer. A nil src means no voice credential is
// configured.
func NewSigner(src SignedURLSource, agentID string, inactivitySeconds int, retry resilience.RetryConfig) *Signer {
	return &Signer{src: src, agentID: strings.TrimSpace(agentID), inactivitySeconds: inactivitySeconds, retry: retry}
}

// SignedURL requests a fresh session URL. Transient provider failures are
// retried; a non-websocket URL is not.
func (s *Signer) SignedURL(ctx context.Context) (string, error) {
	if s.src == nil || s.agentID == "" {
		return "", ErrAgentNotConfigured
	}

	cfg := s.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("elevenlabs", "signed_url")
	}
	u, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return s.src.GetSignedURL(ctx, s.agentID)
	})
	if err != nil {
		return "", &StageError{Stage: StageSession, Err: eris.Wrap(err, "interview: signed url")}
	}
	if s.inactivitySeconds > 0 {
		u = elevenlabs.WithInactivityTimeout(u, s.inactivitySeconds)
	}
	return u, nil
}
