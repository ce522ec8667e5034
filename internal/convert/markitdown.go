// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"os"
	"sync"

	"gitlab.com/tozd/go/errors"

	"github.com/pdiddy/study-assistant/internal/container"
)

const imageMarkitdown = "markitdown:latest"

// MarkitdownBackend pipes PDFs through the markitdown container image. It
// is the fallback PDF backend: slower, and page layout is flattened.
type MarkitdownBackend struct {
	detect func(ctx context.Context) (container.Runtime, error)

	mu      sync.Mutex
	runtime container.Runtime
}

// NewMarkitdownBackend returns a backend that detects docker or podman when
// probed.
func NewMarkitdownBackend() *MarkitdownBackend {
	return &MarkitdownBackend{detect: container.DetectRuntime}
}

func (m *MarkitdownBackend) Name() string { return "markitdown" }

// Probe requires an operational container runtime with the markitdown image
// present locally.
func (m *MarkitdownBackend) Probe(ctx context.Context) error {
	rt, err := m.detect(ctx)
	if err != nil {
		return err
	}
	if err := rt.ImageExists(ctx, imageMarkitdown); err != nil {
		return errors.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	m.mu.Lock()
	m.runtime = rt
	m.mu.Unlock()
	return nil
}

func (m *MarkitdownBackend) Extract(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	rt := m.runtime
	m.mu.Unlock()
	if rt == nil {
		if err := m.Probe(ctx); err != nil {
			return "", err
		}
		m.mu.Lock()
		rt = m.runtime
		m.mu.Unlock()
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := rt.Run(ctx, imageMarkitdown, f, &out); err != nil {
		return "", errors.Errorf("converting with markitdown: %w", err)
	}
	if out.Len() == 0 {
		return "", errors.New("markitdown produced empty output")
	}
	return joinPages(out.String()), nil
}
