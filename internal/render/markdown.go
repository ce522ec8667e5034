// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render writes generated study material to disk: the primary
// Markdown document and an optional rendered PDF next to it.
package render

import (
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrMaterialization matches *MaterializationError.
	ErrMaterialization = errors.New("writing study material failed")

	// ErrRender matches *RenderError.
	ErrRender = errors.New("rendering study document failed")
)

// MaterializationError reports that the primary Markdown output could not
// be written. The note is not marked processed.
type MaterializationError struct {
	Path string
	Err  error
}

func (e *MaterializationError) Error() string {
	return "writing " + e.Path + ": " + e.Err.Error()
}

func (e *MaterializationError) Unwrap() error { return e.Err }

func (e *MaterializationError) Is(target error) bool { return target == ErrMaterialization }

// RenderError reports that the secondary document could not be produced.
// It never fails a note.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return "rendering " + e.Path + ": " + e.Err.Error()
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRender }

// WriteMarkdown writes content to path, creating parent directories. Readers
// see either the previous file or the complete new one.
func WriteMarkdown(path, content string) error {
	if err := writeAtomic(path, []byte(content)); err != nil {
		return &MaterializationError{Path: path, Err: err}
	}
	return nil
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errors.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Errorf("renaming into place: %w", err)
	}
	return nil
}
