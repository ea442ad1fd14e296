package main

import (
	"context"

	"github.com/sells-group/interview-cli/internal/analyze"
	"github.com/sells-group/interview-cli/internal/config"
	"github.com/sells-group/interview-cli/internal/interview"
	"github.com/sells-group/interview-cli/internal/leads"
	"github.com/sells-group/interview-cli/internal/report"
	"github.com/sells-group/interview-cli/internal/resilience"
	"github.com/sells-group/interview-cli/internal/server"
	"github.com/sells-group/interview-cli/internal/store"
	"github.com/sells-group/interview-cli/internal/transcript"
	"github.com/sells-group/interview-cli/pkg/elevenlabs"
)

// appEnv holds the wired components shared by the commands.
type appEnv struct {
	Store     store.Store
	Ingester  *leads.Ingester
	Processor *interview.Processor
	Access    *interview.Access
	Signer    *interview.Signer
	Loader    *report.Loader
}

func (e *appEnv) Close() {
	e.Store.Close() //nolint:errcheck
}

// voiceClient returns nil when no voice credential is configured so that
// downstream components report the missing credential on use.
func voiceClient(c *config.Config) elevenlabs.Client {
	if c.Voice.Key == "" {
		return nil
	}
	return elevenlabs.NewClient(c.Voice.Key,
		elevenlabs.WithBaseURL(c.Voice.BaseURL),
		elevenlabs.WithRateLimit(c.Voice.RateLimit),
	)
}

func fetcherConfig(c *config.Config) transcript.FetcherConfig {
	return transcript.FetcherConfig{
		MaxAttempts: c.Pipeline.FetchAttempts,
		Delay:       c.Pipeline.FetchDelay(),
		MinLength:   c.Pipeline.MinTranscriptLength,
		Placeholder: c.Pipeline.TranscriptPlaceholder,
	}
}

func newEnv(c *config.Config, st store.Store) *appEnv {
	voice := voiceClient(c)
	llm := analyze.NewCompleter(c)

	var (
		src    transcript.Source
		signed interview.SignedURLSource
	)
	if voice != nil {
		src = voice
		signed = voice
	}

	extractor := analyze.NewExtractor(llm, analyze.ExtractorConfig{
		OnMissingCredential: c.Pipeline.OnMissingLLMCredential,
		MaxTokens:           c.Completion.ExtractTokens,
	})

	return &appEnv{
		Store:     st,
		Ingester:  leads.NewIngester(st, analyze.NewMatcher(llm, c.Completion.MatchTokens), c.Pipeline.ImportTimeout()),
		Processor: interview.NewProcessor(st, transcript.NewFetcher(src, fetcherConfig(c)), extractor, c.Pipeline.Timeout()),
		Access:    interview.NewAccess(st, c.Voice.AgentID),
		Signer:    interview.NewSigner(signed, c.Voice.AgentID, c.Voice.InactivityTimeoutSecs, resilience.DefaultRetryConfig()),
		Loader:    report.NewLoader(st, c.App.PublicURL),
	}
}

func (e *appEnv) serverDeps(c *config.Config) server.Deps {
	return server.Deps{
		Store:          e.Store,
		Ingester:       e.Ingester,
		Processor:      e.Processor,
		Access:         e.Access,
		Signer:         e.Signer,
		Loader:         e.Loader,
		PublicURL:      c.App.PublicURL,
		AllowedOrigins: c.Server.AllowedOrigins,
		MaxUploadBytes: int64(c.Server.MaxUploadMB) << 20,
	}
}

func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	st, err := openStore(ctx, mode)
	if err != nil {
		return nil, err
	}
	return newEnv(cfg, st), nil
}
