// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the application configuration from defaults, a
// YAML config file, a .env file, environment variables and the secrets
// directory, in increasing order of precedence except for secrets, which
// only fill a missing API key.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"

	"github.com/pdiddy/study-assistant/internal/generate"
	"github.com/pdiddy/study-assistant/internal/logging"
	"github.com/pdiddy/study-assistant/pkg/types"
)

const (
	// AppName names the config file and its directory under ~/.config.
	AppName = "study-assistant"

	// EnvPrefix prefixes every configuration key in the environment.
	EnvPrefix = "STUDY_ASSISTANT"

	// EnvFile is loaded from the working directory when present.
	EnvFile = ".env"
)

// ErrConfiguration matches *ConfigurationError.
var ErrConfiguration = errors.New("invalid configuration")

// ConfigurationError lists every invalid setting found by Validate.
type ConfigurationError struct {
	Fields []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Fields, "; ")
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// bareEnv maps keys to the unprefixed variable names that earlier releases
// documented. The prefixed form always works as well.
var bareEnv = map[string]string{
	"ai.api_key":                 "OPENAI_API_KEY",
	"ai.model":                   "OPENAI_MODEL",
	"ai.base_url":                "OPENAI_BASE_URL",
	"ai.max_requests_per_minute": "MAX_REQUESTS_PER_MINUTE",
	"paths.incoming_dir":         "NOTES_INCOMING_DIR",
	"paths.output_dir":           "NOTES_OUTPUT_DIR",
	"paths.index_path":           "PROCESSED_INDEX_PATH",
	"log_level":                  "LOG_LEVEL",
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4-turbo-preview")
	v.SetDefault("ai.base_url", generate.DefaultBaseURL)
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("ai.max_requests_per_minute", 50)
	v.SetDefault("ai.timeout", 2*time.Minute)
	v.SetDefault("paths.incoming_dir", "./notes/incoming")
	v.SetDefault("paths.output_dir", "")
	v.SetDefault("paths.index_path", "./processed_index.json")
	v.SetDefault("watch.modify_grace", time.Second)
	v.SetDefault("watch.release_grace", 2*time.Second)
	v.SetDefault("render.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("log_level", "INFO")
}

// Load resolves the configuration. When v has no config file set, it looks
// for study-assistant.yaml in the working directory and then in
// ~/.config/study-assistant. A missing config file or .env file is not an
// error. Load does not validate; call Validate.
func Load(v *viper.Viper) (types.Config, error) {
	log := logging.Get("config")

	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return types.Config{}, errors.Errorf("loading %s: %w", EnvFile, err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, bare := range bareEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, bare); err != nil {
			return types.Config{}, errors.Errorf("binding %s: %w", key, err)
		}
	}

	if v.ConfigFileUsed() == "" {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, errors.Errorf("reading config file: %w", err)
		}
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("using config file")
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, errors.Errorf("decoding configuration: %w", err)
	}

	if cfg.AI.APIKey == "" {
		secrets, err := LoadSecrets(SecretsDir)
		if err != nil {
			return types.Config{}, err
		}
		if key, ok := secrets[secretAPIKey]; ok {
			log.Debug().Str("secret", secretAPIKey).Msg("using API key from secrets directory")
			cfg.AI.APIKey = key
		}
	}

	if cfg.Paths.OutputDir == "" && cfg.Paths.IncomingDir != "" {
		cfg.Paths.OutputDir = filepath.Dir(filepath.Clean(cfg.Paths.IncomingDir))
	}
	return cfg, nil
}

// Validate reports every setting that prevents a run.
func Validate(cfg types.Config) error {
	var fields []string
	if strings.TrimSpace(cfg.AI.APIKey) == "" {
		fields = append(fields, "ai.api_key is required (set OPENAI_API_KEY or "+filepath.Join(SecretsDir, secretAPIKey)+")")
	}
	if strings.TrimSpace(cfg.AI.Model) == "" {
		fields = append(fields, "ai.model is required")
	}
	if cfg.AI.MaxAttempts <= 0 {
		fields = append(fields, "ai.max_attempts must be positive")
	}
	if cfg.AI.MaxRequestsPerMinute < 0 {
		fields = append(fields, "ai.max_requests_per_minute must not be negative")
	}
	if strings.TrimSpace(cfg.Paths.IncomingDir) == "" {
		fields = append(fields, "paths.incoming_dir is required")
	}
	if strings.TrimSpace(cfg.Paths.IndexPath) == "" {
		fields = append(fields, "paths.index_path is required")
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		fields = append(fields, "log_level "+cfg.LogLevel+" is not a known level")
	}
	if len(fields) > 0 {
		return &ConfigurationError{Fields: fields}
	}
	return nil
}

// Redacted returns a copy of cfg that is safe to print.
func Redacted(cfg types.Config) types.Config {
	key := cfg.AI.APIKey
	switch {
	case key == "":
	case len(key) <= 8:
		cfg.AI.APIKey = "****"
	default:
		cfg.AI.APIKey = key[:3] + "****" + key[len(key)-4:]
	}
	return cfg
}
