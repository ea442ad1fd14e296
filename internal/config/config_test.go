package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.elevenlabs.io/v1/convai", cfg.Voice.BaseURL)
	assert.Equal(t, 180, cfg.Voice.InactivityTimeoutSecs)
	assert.Equal(t, "openai", cfg.Completion.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Completion.Model)
	assert.Equal(t, 800, cfg.Completion.ExtractTokens)
	assert.Equal(t, 150, cfg.Completion.MatchTokens)
	assert.Equal(t, 5, cfg.Pipeline.FetchAttempts)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.FetchDelay())
	assert.Equal(t, 20, cfg.Pipeline.MinTranscriptLength)
	assert.Equal(t, "(Transcript unavailable after retries)", cfg.Pipeline.TranscriptPlaceholder)
	assert.Equal(t, OnMissingCredentialSkip, cfg.Pipeline.OnMissingLLMCredential)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.Timeout())
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.ImportTimeout())
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
  format: console
server:
  port: 9090
pipeline:
  on_missing_llm_credential: fail
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, OnMissingCredentialFail, cfg.Pipeline.OnMissingLLMCredential)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Pipeline.FetchAttempts)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("INTERVIEW_STORE_DRIVER", "postgres")
	t.Setenv("INTERVIEW_LOG_LEVEL", "warn")
	t.Setenv("INTERVIEW_VOICE_KEY", "xi-test")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "xi-test", cfg.Voice.Key)
}

func TestLoadEnvOnlyCredentials(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("INTERVIEW_VOICE_KEY", "xi-env")
	t.Setenv("INTERVIEW_VOICE_AGENT_ID", "agent-env")
	t.Setenv("INTERVIEW_COMPLETION_KEY", "sk-env")
	t.Setenv("INTERVIEW_ANTHROPIC_KEY", "ant-env")
	t.Setenv("INTERVIEW_STORE_DATABASE_URL", "postgres://localhost/interviews")
	t.Setenv("INTERVIEW_APP_PUBLIC_URL", "https://app.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "xi-env", cfg.Voice.Key)
	assert.Equal(t, "agent-env", cfg.Voice.AgentID)
	assert.Equal(t, "sk-env", cfg.Completion.Key)
	assert.Equal(t, "ant-env", cfg.Anthropic.Key)
	assert.Equal(t, "postgres://localhost/interviews", cfg.Store.DatabaseURL)
	assert.Equal(t, "https://app.example.com", cfg.App.PublicURL)
	assert.Equal(t, "sk-env", cfg.CompletionKey())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Completion.Provider = "openai"
	cfg.Pipeline.OnMissingLLMCredential = OnMissingCredentialSkip
	cfg.Pipeline.FetchAttempts = 5
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("store"))
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidate_UnknownCredentialPolicy(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.OnMissingLLMCredential = "maybe"

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_missing_llm_credential")
}

func TestValidate_ProcessNeedsVoiceKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("process")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voice.key is required")

	cfg.Voice.Key = "xi-key"
	assert.NoError(t, cfg.Validate("process"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestCompletionKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Completion.Key = "sk-openai"
	cfg.Anthropic.Key = "sk-ant"

	assert.Equal(t, "sk-openai", cfg.CompletionKey())

	cfg.Completion.Provider = "anthropic"
	assert.Equal(t, "sk-ant", cfg.CompletionKey())
}
