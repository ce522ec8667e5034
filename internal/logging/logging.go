// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging provides the process-wide registry of named loggers.
//
// Get is idempotent: the first call for a name creates a child logger tagged
// with component=name and later calls return the same instance. All loggers
// share one sink, so Configure may be called after loggers were handed out.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// sink lets Configure redirect every registered logger without rebuilding them.
type sink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *sink) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

var (
	out = &sink{w: consoleWriter(os.Stderr)}

	mu      sync.Mutex
	loggers = map[string]*zerolog.Logger{}
)

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

// Configure points all loggers at w (as human-readable console output) and
// sets the global level. An empty level means info.
func Configure(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	out.set(consoleWriter(w))
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// ParseLevel accepts zerolog level names plus the "warning" and "critical"
// spellings used in .env files.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "critical":
		return zerolog.FatalLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.NoLevel, errors.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// Get returns the logger registered under name, creating it on first use.
func Get(name string) *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}
	l := zerolog.New(out).With().Timestamp().Str("component", name).Logger()
	loggers[name] = &l
	return &l
}
