// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"os"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// TextBackend reads plain text and Markdown notes verbatim.
type TextBackend struct{}

func (TextBackend) Name() string { return "text" }

func (TextBackend) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}
