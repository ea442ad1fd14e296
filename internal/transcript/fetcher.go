package transcript

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/config"
	"github.com/sells-group/interview-cli/internal/resilience"
)

// ErrMissingCredential means no voice provider credential is configured.
var ErrMissingCredential = eris.Wrap(config.ErrMissingCredential, "transcript: voice provider")

// Source is the voice provider surface the fetcher needs.
type Source interface {
	GetConversation(ctx context.Context, conversationID string) (map[string]any, error)
	AudioURL(conversationID string) string
}

// FetcherConfig bounds the polling of a finished conversation.
type FetcherConfig struct {
	MaxAttempts int
	Delay       time.Duration
	// MinLength is the transcript length (in characters) that must be
	// exceeded for a fetch to count as complete.
	MinLength   int
	Placeholder string
	Sleep       resilience.Sleeper
}

// DefaultFetcherConfig returns five attempts two seconds apart.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		MaxAttempts: 5,
		Delay:       2 * time.Second,
		MinLength:   20,
		Placeholder: "(Transcript unavailable after retries)",
	}
}

// Result is a fetched transcript.
type Result struct {
	Text     string
	AudioURL string
	Attempts int
	// Degraded is set when attempts ran out on a short transcript and Text
	// holds the placeholder.
	Degraded bool
}

// Fetcher polls the voice provider until a plausible transcript appears.
type Fetcher struct {
	src Source
	cfg FetcherConfig
}

// NewFetcher creates a Fetcher. A nil src means no credential is configured
// and every Fetch fails with ErrMissingCredential.
func NewFetcher(src Source, cfg FetcherConfig) *Fetcher {
	def := DefaultFetcherConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.MinLength < 0 {
		cfg.MinLength = 0
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = def.Placeholder
	}
	return &Fetcher{src: src, cfg: cfg}
}

type attempt struct {
	raw  map[string]any
	text string
}

// Fetch retrieves and normalizes the transcript for conversationID. HTTP
// failures and short transcripts are both retried. When the final attempt
// fails at the HTTP level the error is returned; when it merely returns a
// short transcript the placeholder is used and the result is degraded.
func (f *Fetcher) Fetch(ctx context.Context, conversationID string) (*Result, error) {
	if f.src == nil {
		return nil, ErrMissingCredential
	}

	log := zap.L().With(zap.String("conversation_id", conversationID))

	policy := resilience.Policy[attempt]{
		MaxAttempts: f.cfg.MaxAttempts,
		Delay:       f.cfg.Delay,
		Sleep:       f.cfg.Sleep,
		Accept: func(a attempt) bool {
			return utf8.RuneCountInString(a.text) > f.cfg.MinLength
		},
		OnAttempt: func(n int, a attempt, err error) {
			if err != nil {
				log.Warn("transcript: fetch attempt failed",
					zap.Int("attempt", n),
					zap.Int("max_attempts", f.cfg.MaxAttempts),
					zap.Error(err),
				)
				return
			}
			log.Info("transcript: fetch attempt",
				zap.Int("attempt", n),
				zap.Int("max_attempts", f.cfg.MaxAttempts),
				zap.Int("length", utf8.RuneCountInString(a.text)),
			)
		},
	}

	res := resilience.Poll(ctx, policy, func(ctx context.Context) (attempt, error) {
		raw, err := f.src.GetConversation(ctx, conversationID)
		if err != nil {
			return attempt{}, err
		}
		return attempt{raw: raw, text: Normalize(raw)}, nil
	})

	if res.Err != nil {
		return nil, eris.Wrapf(res.Err, "transcript: fetch conversation %s after %d attempts", conversationID, res.Attempts)
	}

	out := &Result{
		Text:     res.Value.text,
		AudioURL: f.src.AudioURL(conversationID),
		Attempts: res.Attempts,
	}
	if !res.Accepted {
		log.Warn("transcript: unavailable after retries, using placeholder",
			zap.Int("attempts", res.Attempts),
			zap.String("raw_response", truncatedJSON(res.Value.raw, 500)),
		)
		out.Text = f.cfg.Placeholder
		out.Degraded = true
	}
	return out, nil
}

func truncatedJSON(v any, limit int) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
