// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noteExts = []string{".txt", ".md", ".pdf"}

// recorder counts handler invocations per path.
type recorder struct {
	mu    sync.Mutex
	calls map[string]int
	total atomic.Int32
}

func newRecorder() *recorder { return &recorder{calls: map[string]int{}} }

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	r.calls[path]++
	r.mu.Unlock()
	r.total.Add(1)
	return nil
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

func newWatcher(t *testing.T, dir string, h func(context.Context, string) error, release time.Duration) *Watcher {
	t.Helper()
	w, err := New(Config{
		Dir:          dir,
		Extensions:   noteExts,
		ModifyGrace:  10 * time.Millisecond,
		ReleaseGrace: release,
		Handle:       h,
	})
	require.NoError(t, err)
	return w
}

// start runs w until the test ends and returns Run's result channel.
func start(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing"), Handle: newRecorder().handle})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(Config{Dir: file, Handle: newRecorder().handle})
	assert.Error(t, err)

	_, err = New(Config{Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestNotify_DropsInFlight(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t, dir, newRecorder().handle, time.Minute)
	defer w.fsw.Close()

	path := filepath.Join(dir, "math_l1.txt")
	assert.True(t, w.notify(path, false))
	assert.False(t, w.notify(path, true))
	assert.False(t, w.notify(path, false))
	assert.Len(t, w.queue, 1)

	other := filepath.Join(dir, "math_l2.txt")
	assert.True(t, w.notify(other, false))
	assert.Len(t, w.queue, 2)
}

func TestNotify_Filters(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t, dir, newRecorder().handle, time.Minute)
	defer w.fsw.Close()

	tests := []struct {
		name string
		want bool
	}{
		{"math_l1.txt", true},
		{"math_l1.MD", true},
		{"slides.pdf", true},
		{"photo.png", false},
		{".math_l1.txt.swp", false},
		{"archive.doc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.notify(filepath.Join(dir, tt.name), false))
		})
	}
}

func TestRun_DuplicateNotificationsHandledOnce(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w := newWatcher(t, dir, rec.handle, 200*time.Millisecond)
	start(t, w)

	path := filepath.Join(dir, "math_l1.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w.notify(path, false)
	w.notify(path, true)

	require.Eventually(t, func() bool { return rec.count(path) == 1 }, time.Second, 5*time.Millisecond)

	// Still inside the release grace period.
	w.notify(path, true)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count(path))

	// After the grace period the path is accepted again.
	require.Eventually(t, func() bool { return w.notify(path, false) }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return rec.count(path) == 2 }, time.Second, 5*time.Millisecond)
}

func TestRun_ModifyGrace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "math_l1.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	handled := make(chan time.Time, 1)
	w, err := New(Config{
		Dir:          dir,
		Extensions:   noteExts,
		ModifyGrace:  100 * time.Millisecond,
		ReleaseGrace: time.Minute,
		Handle: func(context.Context, string) error {
			handled <- time.Now()
			return nil
		},
	})
	require.NoError(t, err)
	start(t, w)

	sent := time.Now()
	require.True(t, w.notify(path, true))

	select {
	case at := <-handled:
		assert.GreaterOrEqual(t, at.Sub(sent), 100*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("modified file was not handled")
	}
}

func TestRun_HandlerErrorDoesNotStopLoop(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := newWatcher(t, dir, func(context.Context, string) error {
		calls.Add(1)
		return errors.New("generation exhausted")
	}, time.Minute)
	start(t, w)

	for _, name := range []string{"a_1.txt", "b_2.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		w.notify(path, false)
	}
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestRun_FilesystemCreate(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w := newWatcher(t, dir, rec.handle, time.Minute)
	start(t, w)

	path := filepath.Join(w.Dir(), "bio_cells.md")
	require.NoError(t, os.WriteFile(path, []byte("mitochondria"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(w.Dir(), "photo.png"), []byte("png"), 0o644))

	require.Eventually(t, func() bool { return rec.count(path) == 1 }, 3*time.Second, 10*time.Millisecond)

	// The write events that follow the create are absorbed while in flight.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), rec.total.Load())
}

func TestRun_CancelReturnsNil(t *testing.T) {
	w := newWatcher(t, t.TempDir(), newRecorder().handle, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Error(t, w.Run(context.Background()), "second Run must fail")
}
