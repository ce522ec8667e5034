// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/study-assistant/pkg/types"
)

// isolate runs the test in an empty working directory with no configuration
// variables inherited from the environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for key, bare := range bareEnv {
		t.Setenv(bare, "")
		os.Unsetenv(bare)
		prefixed := EnvPrefix + "_" + envKey(key)
		t.Setenv(prefixed, "")
		os.Unsetenv(prefixed)
	}
	return dir
}

func envKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4-turbo-preview", cfg.AI.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.BaseURL)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Equal(t, 50, cfg.AI.MaxRequestsPerMinute)
	assert.Equal(t, 2*time.Minute, cfg.AI.Timeout)
	assert.Equal(t, "./notes/incoming", cfg.Paths.IncomingDir)
	assert.Equal(t, "notes", cfg.Paths.OutputDir)
	assert.Equal(t, "./processed_index.json", cfg.Paths.IndexPath)
	assert.Equal(t, time.Second, cfg.Watch.ModifyGrace)
	assert.Equal(t, 2*time.Second, cfg.Watch.ReleaseGrace)
	assert.True(t, cfg.Render.Enabled)
	assert.Empty(t, cfg.History.Path)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Empty(t, cfg.AI.APIKey)
}

func TestLoad_BareEnvNames(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("NOTES_INCOMING_DIR", "/data/inbox")
	t.Setenv("PROCESSED_INDEX_PATH", "/data/index.json")
	t.Setenv("MAX_REQUESTS_PER_MINUTE", "10")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.AI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, "/data/inbox", cfg.Paths.IncomingDir)
	assert.Equal(t, "/data", cfg.Paths.OutputDir)
	assert.Equal(t, "/data/index.json", cfg.Paths.IndexPath)
	assert.Equal(t, 10, cfg.AI.MaxRequestsPerMinute)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestLoad_PrefixedEnvWinsOverBare(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_MODEL", "bare")
	t.Setenv("STUDY_ASSISTANT_AI_MODEL", "prefixed")
	t.Setenv("STUDY_ASSISTANT_WATCH_MODIFY_GRACE", "250ms")
	t.Setenv("STUDY_ASSISTANT_RENDER_ENABLED", "false")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.AI.Model)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.ModifyGrace)
	assert.False(t, cfg.Render.Enabled)
}

func TestLoad_DotEnvAndConfigFile(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, ".env"), "OPENAI_API_KEY=sk-dotenv\nNOTES_OUTPUT_DIR=/srv/study\n")
	write(t, filepath.Join(dir, "study-assistant.yaml"), `
ai:
  model: gpt-4o
  max_attempts: 5
paths:
  incoming_dir: inbox
history:
  path: state/history.db
`)

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "sk-dotenv", cfg.AI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, 5, cfg.AI.MaxAttempts)
	assert.Equal(t, "inbox", cfg.Paths.IncomingDir)
	assert.Equal(t, "/srv/study", cfg.Paths.OutputDir)
	assert.Equal(t, "state/history.db", cfg.History.Path)
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	dir := isolate(t)
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "nope.yaml"))

	_, err := Load(v)
	assert.Error(t, err)
}

func TestLoad_SecretsFallback(t *testing.T) {
	dir := isolate(t)
	write(t, filepath.Join(dir, ".secrets", "openai-api-key"), "  sk-secret\n")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.AI.APIKey)

	t.Setenv("OPENAI_API_KEY", "sk-env")
	cfg, err = Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.AI.APIKey)
}

func TestLoadSecrets(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "openai-api-key"), "sk-abc\n")
	write(t, filepath.Join(dir, "empty"), "   ")
	write(t, filepath.Join(dir, ".hidden"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	got, err := LoadSecrets(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"openai-api-key": "sk-abc"}, got)

	got, err = LoadSecrets(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func validConfig() types.Config {
	return types.Config{
		AI:       types.AIConfig{APIKey: "sk-x", Model: "m", MaxAttempts: 3},
		Paths:    types.PathsConfig{IncomingDir: "in", IndexPath: "idx.json"},
		LogLevel: "info",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
		fields int
	}{
		{"valid", func(*types.Config) {}, 0},
		{"missing key", func(c *types.Config) { c.AI.APIKey = "" }, 1},
		{"bad attempts", func(c *types.Config) { c.AI.MaxAttempts = 0 }, 1},
		{"bad level", func(c *types.Config) { c.LogLevel = "chatty" }, 1},
		{"warning spelling", func(c *types.Config) { c.LogLevel = "WARNING" }, 0},
		{"everything missing", func(c *types.Config) { *c = types.Config{} }, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.fields == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Len(t, ce.Fields, tt.fields)
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.AI.APIKey = "sk-proj-1234567890abcd"
	assert.Equal(t, "sk-****abcd", Redacted(cfg).AI.APIKey)
	assert.Equal(t, "sk-proj-1234567890abcd", cfg.AI.APIKey)

	cfg.AI.APIKey = "short"
	assert.Equal(t, "****", Redacted(cfg).AI.APIKey)
}
