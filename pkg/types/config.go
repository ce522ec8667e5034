// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AIConfig holds settings for the generative model used to produce study
// material.
type AIConfig struct {
	// APIKey is the bearer credential for the model provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the model identifier (e.g. "gpt-4-turbo-preview").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// BaseURL is the OpenAI-compatible API root (default "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// MaxAttempts is the number of generation attempts per note (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// MaxRequestsPerMinute throttles outgoing calls. Zero disables throttling.
	MaxRequestsPerMinute int `json:"max_requests_per_minute" yaml:"max_requests_per_minute" mapstructure:"max_requests_per_minute"`

	// Timeout bounds a single HTTP call to the provider.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// PathsConfig locates the directories and files the pipeline works on.
type PathsConfig struct {
	// IncomingDir is the flat directory watched for new notes.
	IncomingDir string `json:"incoming_dir" yaml:"incoming_dir" mapstructure:"incoming_dir"`

	// OutputDir is the base of the subject tree. Empty means the parent of IncomingDir.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// IndexPath is the JSON file recording processed filenames.
	IndexPath string `json:"index_path" yaml:"index_path" mapstructure:"index_path"`
}

// WatchConfig holds the grace periods of the watch loop.
type WatchConfig struct {
	// ModifyGrace is the wait before handling a modification event (default 1s).
	ModifyGrace time.Duration `json:"modify_grace" yaml:"modify_grace" mapstructure:"modify_grace"`

	// ReleaseGrace is how long a handled path stays in the in-flight set (default 2s).
	ReleaseGrace time.Duration `json:"release_grace" yaml:"release_grace" mapstructure:"release_grace"`
}

// RenderConfig controls the secondary rendered document.
type RenderConfig struct {
	// Enabled turns PDF rendering of study material on or off (default true).
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

// HistoryConfig controls the processing history ledger.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables the ledger.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// Config groups every setting resolved before the pipeline is constructed.
type Config struct {
	AI       AIConfig      `json:"ai" yaml:"ai" mapstructure:"ai"`
	Paths    PathsConfig   `json:"paths" yaml:"paths" mapstructure:"paths"`
	Watch    WatchConfig   `json:"watch" yaml:"watch" mapstructure:"watch"`
	Render   RenderConfig  `json:"render" yaml:"render" mapstructure:"render"`
	History  HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`
	LogLevel string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}
