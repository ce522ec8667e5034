// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"path/filepath"
	"strings"

	"github.com/pdiddy/study-assistant/internal/logging"
)

// Result describes what Materialize wrote.
type Result struct {
	MarkdownPath string
	DocumentPath string // empty when rendering is disabled or failed
	RenderErr    error  // *RenderError, never fatal
}

// Materializer writes the Markdown document and, when a Renderer is set,
// a PDF with the same stem next to it.
type Materializer struct {
	renderer Renderer
}

// NewMaterializer returns a Materializer. A nil renderer disables the
// secondary document.
func NewMaterializer(r Renderer) *Materializer {
	return &Materializer{renderer: r}
}

// Materialize writes content to markdownPath. A failed Markdown write is
// returned as *MaterializationError. A failed render is logged and reported
// in Result.RenderErr only.
func (m *Materializer) Materialize(markdownPath, content, title string) (Result, error) {
	if err := WriteMarkdown(markdownPath, content); err != nil {
		return Result{}, err
	}
	res := Result{MarkdownPath: markdownPath}
	if m.renderer == nil {
		return res, nil
	}

	docPath := strings.TrimSuffix(markdownPath, filepath.Ext(markdownPath)) + ".pdf"
	if err := m.renderer.Render(content, docPath, title); err != nil {
		res.RenderErr = &RenderError{Path: docPath, Err: err}
		logging.Get("render").Warn().Err(err).Str("path", docPath).Msg("rendering study document failed, markdown kept")
		return res, nil
	}
	res.DocumentPath = docPath
	return res, nil
}
