package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Missing-credential policies for the answer extractor.
const (
	OnMissingCredentialSkip = "skip"
	OnMissingCredentialFail = "fail"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Voice      VoiceConfig      `yaml:"voice" mapstructure:"voice"`
	Completion CompletionConfig `yaml:"completion" mapstructure:"completion"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	App        AppConfig        `yaml:"app" mapstructure:"app"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// VoiceConfig holds the ElevenLabs Conversational AI settings.
type VoiceConfig struct {
	Key                   string  `yaml:"key" mapstructure:"key"`
	AgentID               string  `yaml:"agent_id" mapstructure:"agent_id"`
	BaseURL               string  `yaml:"base_url" mapstructure:"base_url"`
	InactivityTimeoutSecs int     `yaml:"inactivity_timeout_secs" mapstructure:"inactivity_timeout_secs"`
	RateLimit             float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CompletionConfig holds the text-completion service settings.
type CompletionConfig struct {
	Provider      string  `yaml:"provider" mapstructure:"provider"`
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	Model         string  `yaml:"model" mapstructure:"model"`
	ExtractTokens int     `yaml:"extract_max_tokens" mapstructure:"extract_max_tokens"`
	MatchTokens   int     `yaml:"match_max_tokens" mapstructure:"match_max_tokens"`
	RateLimit     float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings, used when completion.provider is "anthropic".
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AppConfig holds settings for links handed to respondents.
type AppConfig struct {
	PublicURL string `yaml:"public_url" mapstructure:"public_url"`
}

// PipelineConfig configures post-call processing.
type PipelineConfig struct {
	FetchAttempts          int    `yaml:"fetch_attempts" mapstructure:"fetch_attempts"`
	FetchDelayMs           int    `yaml:"fetch_delay_ms" mapstructure:"fetch_delay_ms"`
	MinTranscriptLength    int    `yaml:"min_transcript_length" mapstructure:"min_transcript_length"`
	TranscriptPlaceholder  string `yaml:"transcript_placeholder" mapstructure:"transcript_placeholder"`
	OnMissingLLMCredential string `yaml:"on_missing_llm_credential" mapstructure:"on_missing_llm_credential"`
	TimeoutSecs            int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	ImportTimeoutSecs      int    `yaml:"import_timeout_secs" mapstructure:"import_timeout_secs"`
}

// FetchDelay returns the pause between transcript fetch attempts.
func (p PipelineConfig) FetchDelay() time.Duration {
	return time.Duration(p.FetchDelayMs) * time.Millisecond
}

// Timeout returns the upper bound on a single post-call processing run.
func (p PipelineConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// ImportTimeout returns the upper bound on a single lead import.
func (p PipelineConfig) ImportTimeout() time.Duration {
	return time.Duration(p.ImportTimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INTERVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are invisible to Unmarshal unless bound.
	for _, key := range []string{
		"store.database_url",
		"voice.key",
		"voice.agent_id",
		"completion.key",
		"anthropic.key",
		"app.public_url",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("voice.base_url", "https://api.elevenlabs.io/v1/convai")
	v.SetDefault("voice.inactivity_timeout_secs", 180)
	v.SetDefault("voice.rate_limit", 5)
	v.SetDefault("completion.provider", "openai")
	v.SetDefault("completion.base_url", "https://api.openai.com/v1")
	v.SetDefault("completion.model", "gpt-4o-mini")
	v.SetDefault("completion.extract_max_tokens", 800)
	v.SetDefault("completion.match_max_tokens", 150)
	v.SetDefault("completion.rate_limit", 5)
	v.SetDefault("completion.timeout_secs", 60)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("pipeline.fetch_attempts", 5)
	v.SetDefault("pipeline.fetch_delay_ms", 2000)
	v.SetDefault("pipeline.min_transcript_length", 20)
	v.SetDefault("pipeline.transcript_placeholder", "(Transcript unavailable after retries)")
	v.SetDefault("pipeline.on_missing_llm_credential", OnMissingCredentialSkip)
	v.SetDefault("pipeline.timeout_secs", 120)
	v.SetDefault("pipeline.import_timeout_secs", 600)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// CompletionKey returns the credential for the configured completion provider.
// An empty result means no credential is configured.
func (c *Config) CompletionKey() string {
	if c.Completion.Provider == "anthropic" {
		return c.Anthropic.Key
	}
	return c.Completion.Key
}

// Validate checks that the keys a command depends on are present. Mode is
// one of "serve", "store", "process".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	switch c.Pipeline.OnMissingLLMCredential {
	case OnMissingCredentialSkip, OnMissingCredentialFail:
	default:
		problems = append(problems, "pipeline.on_missing_llm_credential must be skip or fail")
	}

	switch c.Completion.Provider {
	case "openai", "anthropic":
	default:
		problems = append(problems, "completion.provider must be openai or anthropic")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	case "process":
		if c.Voice.Key == "" {
			problems = append(problems, "voice.key is required")
		}
		if c.Pipeline.FetchAttempts <= 0 {
			problems = append(problems, "pipeline.fetch_attempts must be positive")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// ErrMissingCredential marks failures caused by an unset provider key.
// Components wrap it so callers can match with errors.Is.
var ErrMissingCredential = eris.New("config: provider credential is not configured")
