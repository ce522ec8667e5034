// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"
	"net/http"

	"github.com/pdiddy/study-assistant/internal/config"
	"github.com/pdiddy/study-assistant/internal/convert"
	"github.com/pdiddy/study-assistant/internal/generate"
	"github.com/pdiddy/study-assistant/internal/history"
	"github.com/pdiddy/study-assistant/internal/index"
	"github.com/pdiddy/study-assistant/internal/logging"
	"github.com/pdiddy/study-assistant/internal/pipeline"
	"github.com/pdiddy/study-assistant/internal/render"
)

// buildPipeline validates cfg and wires a Pipeline writing progress to out.
// It holds the index lock until the returned release func is called.
func buildPipeline(out io.Writer) (*pipeline.Pipeline, func(), error) {
	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}

	store := index.NewStore(cfg.Paths.IndexPath)
	unlock, err := store.Lock()
	if err != nil {
		return nil, nil, err
	}

	backend := &generate.OpenAIBackend{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Client:  &http.Client{Timeout: cfg.AI.Timeout},
	}
	gen := generate.NewClient(backend, generate.Options{
		MaxAttempts:          cfg.AI.MaxAttempts,
		MaxRequestsPerMinute: cfg.AI.MaxRequestsPerMinute,
	})

	var renderer render.Renderer
	if cfg.Render.Enabled {
		renderer = render.PDFRenderer{}
	}

	opts := pipeline.Options{
		Extractor:    convert.NewExtractor(convert.DefaultPDFBackends()...),
		Generator:    gen,
		Materializer: render.NewMaterializer(renderer),
		Index:        store,
		IncomingDir:  cfg.Paths.IncomingDir,
		OutputDir:    cfg.Paths.OutputDir,
		Out:          out,
	}

	release := unlock
	if cfg.History.Path != "" {
		ledger, err := history.Open(cfg.History.Path)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		opts.History = ledger
		release = func() {
			if err := ledger.Close(); err != nil {
				logging.Get("history").Warn().Err(err).Msg("closing history ledger")
			}
			unlock()
		}
	}

	p := pipeline.New(opts)
	logging.Get("cli").Debug().
		Str("run_id", p.RunID()).
		Str("model", cfg.AI.Model).
		Str("incoming", cfg.Paths.IncomingDir).
		Str("index", store.Path()).
		Str("output", p.OutputDir()).
		Msg("pipeline ready")
	return p, release, nil
}
