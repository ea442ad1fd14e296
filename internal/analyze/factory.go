package analyze

import (
	"net/http"
	"time"

	"github.com/sells-group/interview-cli/internal/config"
	"github.com/sells-group/interview-cli/pkg/anthropic"
	"github.com/sells-group/interview-cli/pkg/openai"
)

// NewCompleter builds the Completer selected by completion.provider. It
// returns nil when the provider's credential is unset; callers apply their
// missing-credential policy to a nil Completer.
func NewCompleter(cfg *config.Config) Completer {
	key := cfg.CompletionKey()
	if key == "" {
		return nil
	}

	if cfg.Completion.Provider == "anthropic" {
		return NewAnthropicCompleter(anthropic.NewClient(key), cfg.Anthropic.Model)
	}

	opts := []openai.Option{
		openai.WithBaseURL(cfg.Completion.BaseURL),
		openai.WithModel(cfg.Completion.Model),
		openai.WithRateLimit(cfg.Completion.RateLimit),
	}
	if cfg.Completion.TimeoutSecs > 0 {
		opts = append(opts, openai.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Completion.TimeoutSecs) * time.Second,
		}))
	}
	return NewOpenAICompleter(openai.NewClient(key, opts...), cfg.Completion.Model)
}
