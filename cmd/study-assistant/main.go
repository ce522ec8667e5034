// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the study-assistant CLI.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"

	"github.com/pdiddy/study-assistant/internal/config"
	"github.com/pdiddy/study-assistant/internal/logging"
	"github.com/pdiddy/study-assistant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is resolved once per invocation by the root PersistentPreRunE.
var cfg types.Config

// rootCmd is the base command for the study-assistant CLI.
var rootCmd = &cobra.Command{
	Use:   "study-assistant",
	Short: "Turn lecture notes into study material",
	Long: `study-assistant reads lecture notes dropped into an incoming directory,
asks a language model for a summary, key points, study questions and
flashcards, and files the result under a folder named after the subject
prefix of the note's filename.

A note named math_lecture3.pdf becomes math/math_lecture3_study.md (and a
rendered PDF next to it). Processed filenames are remembered in an index so
each note is handled once.

Run "process" for a one-shot batch or "watch" to handle notes as they arrive.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./study-assistant.yaml or ~/.config/study-assistant/study-assistant.yaml)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level: debug, info, warning, error")
	rootCmd.PersistentFlags().StringP("incoming-dir", "i", "", "directory containing incoming notes")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("paths.incoming_dir", rootCmd.PersistentFlags().Lookup("incoming-dir"))
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
	}
	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if err := logging.Configure(os.Stderr, c.LogLevel); err != nil {
		return &config.ConfigurationError{Fields: []string{err.Error()}}
	}
	cfg = c
	return nil
}

// exitError carries a process exit code through fang.Execute.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(1)
	}
}
