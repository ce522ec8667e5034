// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index persists the set of note files that have been fully
// processed, keyed by base filename. The index is the only record the
// pipeline consults to decide whether a file needs work.
package index

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gitlab.com/tozd/go/errors"

	"github.com/pdiddy/study-assistant/internal/logging"
	"github.com/pdiddy/study-assistant/pkg/types"
)

// ErrIndexLocked is returned by Lock when another process owns the index.
var ErrIndexLocked = errors.New("index is locked by another process")

// timestampLayout is ISO-8601 with microseconds and the local UTC offset.
const timestampLayout = "2006-01-02T15:04:05.000000-07:00"

// Store reads and writes a ProcessedIndex at a fixed path.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore returns a Store bound to path. The file need not exist.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the index file location.
func (s *Store) Path() string { return s.path }

// Load reads the index from disk. A missing file yields an empty index. An
// unreadable or malformed file is logged and also yields an empty index, so
// every file will be reprocessed.
func (s *Store) Load() types.ProcessedIndex {
	log := logging.Get("index")

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Str("path", s.path).Msg("reading processed index, starting empty")
		}
		return types.ProcessedIndex{}
	}

	idx := types.ProcessedIndex{}
	if err := json.Unmarshal(data, &idx); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("processed index is corrupt, starting empty")
		return types.ProcessedIndex{}
	}
	if idx == nil {
		// A file containing the JSON literal null.
		idx = types.ProcessedIndex{}
	}
	log.Debug().Int("entries", len(idx)).Msg("loaded processed index")
	return idx
}

// Save writes the index as two-space indented JSON with sorted keys. The
// data goes to a temp file in the same directory which is then renamed over
// the target.
func (s *Store) Save(idx types.ProcessedIndex) error {
	if idx == nil {
		idx = types.ProcessedIndex{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(idx); err != nil {
		return errors.Errorf("encoding processed index: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Errorf("creating index directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp index file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Errorf("writing temp index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("closing temp index file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Errorf("replacing processed index %s: %w", s.path, err)
	}

	logging.Get("index").Debug().Int("entries", len(idx)).Str("path", s.path).Msg("saved processed index")
	return nil
}

// IsProcessed reports whether name has an entry in idx.
func IsProcessed(name string, idx types.ProcessedIndex) bool {
	_, ok := idx[name]
	return ok
}

// MarkProcessed records name in idx with the current local time. An
// existing entry is overwritten.
func (s *Store) MarkProcessed(name string, idx types.ProcessedIndex) {
	idx[name] = s.now().Format(timestampLayout)
}

// Lock takes an exclusive advisory lock on "<index>.lock". The returned
// func releases it. The kernel drops the lock if the process dies.
func (s *Store) Lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, errors.Errorf("creating index directory: %w", err)
	}

	fl := flock.New(s.path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Errorf("locking %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrIndexLocked, fl.Path())
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			logging.Get("index").Warn().Err(err).Msg("releasing index lock")
		}
	}, nil
}
