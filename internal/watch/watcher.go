// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch feeds newly created or modified notes to a handler one at a
// time as filesystem events arrive.
//
// A path that is queued or being handled is in flight. Notifications for an
// in-flight path are dropped. After handling, the path stays in flight for
// a release grace period so the duplicate events that editors and copy
// tools emit for a single logical write are absorbed.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/study-assistant/internal/logging"
)

const (
	defaultModifyGrace  = time.Second
	defaultReleaseGrace = 2 * time.Second
	queueSize           = 256
)

// Config holds the parameters for a Watcher.
type Config struct {
	// Dir is observed non-recursively.
	Dir string

	// Extensions selects which files are handled, e.g. ".pdf". Matching is
	// case-insensitive.
	Extensions []string

	// ModifyGrace is the wait before handling a modification, so a file is
	// not read mid-write. Zero selects one second.
	ModifyGrace time.Duration

	// ReleaseGrace is how long a handled path stays in flight. Zero selects
	// two seconds.
	ReleaseGrace time.Duration

	// Handle processes one file. Errors are logged and do not stop the loop.
	Handle func(ctx context.Context, path string) error
}

type event struct {
	path     string
	modified bool
}

// Watcher observes a directory and dispatches matching files to Handle.
// Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	patterns []string
	queue    chan event
	started  atomic.Bool

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New starts observing cfg.Dir. It fails if the directory does not exist or
// cannot be watched.
func New(cfg Config) (*Watcher, error) {
	if cfg.Handle == nil {
		return nil, errors.New("watch: handler is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, errors.Errorf("watch: resolve directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("watch: %s is not a directory", dir)
	}
	cfg.Dir = dir

	if cfg.ModifyGrace <= 0 {
		cfg.ModifyGrace = defaultModifyGrace
	}
	if cfg.ReleaseGrace <= 0 {
		cfg.ReleaseGrace = defaultReleaseGrace
	}

	patterns := make([]string, len(cfg.Extensions))
	for i, ext := range cfg.Extensions {
		patterns[i] = "*" + strings.ToLower(ext)
		if !doublestar.ValidatePattern(patterns[i]) {
			return nil, errors.Errorf("watch: invalid extension %q", ext)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, errors.Errorf("watch: observe %s: %w", dir, err)
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: patterns,
		queue:    make(chan event, queueSize),
		inFlight: map[string]struct{}{},
	}, nil
}

// Dir returns the absolute observed directory.
func (w *Watcher) Dir() string { return w.cfg.Dir }

// Run dispatches events until ctx is cancelled, then stops observing and
// returns nil. Files are handled strictly one at a time in arrival order.
// An in-flight file may be abandoned when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}
	defer w.fsw.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.receive(gctx) })
	g.Go(func() error { return w.work(gctx) })

	err := g.Wait()
	if ctx.Err() != nil {
		logging.Get("watch").Info().Str("dir", w.cfg.Dir).Msg("stopped watching")
		return nil
	}
	return err
}

// receive turns fsnotify events into notifications.
func (w *Watcher) receive(ctx context.Context) error {
	log := logging.Get("watch")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			switch {
			case ev.Has(fsnotify.Create):
				w.notify(ev.Name, false)
			case ev.Has(fsnotify.Write):
				w.notify(ev.Name, true)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			log.Error().Err(err).Msg("watcher error")
		}
	}
}

// work handles queued paths one at a time.
func (w *Watcher) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.queue:
			w.handle(ctx, ev)
		}
	}
}

// notify queues path unless it is filtered out or already in flight. It
// reports whether the path was queued.
func (w *Watcher) notify(path string, modified bool) bool {
	log := logging.Get("watch")
	if !w.matches(path) {
		return false
	}

	w.mu.Lock()
	if _, busy := w.inFlight[path]; busy {
		w.mu.Unlock()
		log.Debug().Str("path", path).Msg("already in flight, dropping event")
		return false
	}
	w.inFlight[path] = struct{}{}
	w.mu.Unlock()

	select {
	case w.queue <- event{path: path, modified: modified}:
		return true
	default:
		w.release(path)
		log.Warn().Str("path", path).Msg("event queue full, dropping event")
		return false
	}
}

func (w *Watcher) handle(ctx context.Context, ev event) {
	log := logging.Get("watch")
	defer time.AfterFunc(w.cfg.ReleaseGrace, func() { w.release(ev.path) })

	if ev.modified {
		t := time.NewTimer(w.cfg.ModifyGrace)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	info, err := os.Stat(ev.path)
	if err != nil || info.IsDir() {
		log.Debug().Str("path", ev.path).Msg("not a regular file anymore, ignoring")
		return
	}

	if ev.modified {
		log.Info().Str("file", filepath.Base(ev.path)).Msg("file modified")
	} else {
		log.Info().Str("file", filepath.Base(ev.path)).Msg("new file detected")
	}
	if err := w.cfg.Handle(ctx, ev.path); err != nil {
		log.Error().Err(err).Str("path", ev.path).Msg("handling file")
	}
}

func (w *Watcher) release(path string) {
	w.mu.Lock()
	delete(w.inFlight, path)
	w.mu.Unlock()
}

func (w *Watcher) matches(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, pat := range w.patterns {
		if ok, _ := doublestar.Match(pat, name); ok {
			return true
		}
	}
	return false
}
