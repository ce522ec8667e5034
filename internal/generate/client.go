// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate turns extracted note text into study material by calling
// a chat-completion model. The Client owns the retry policy; a Backend owns
// one request/response exchange with a provider.
package generate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/time/rate"

	"github.com/pdiddy/study-assistant/internal/logging"
)

const (
	defaultMaxAttempts = 3
	defaultMaxTokens   = 2000
	defaultTemperature = 0.7
)

var (
	// ErrExhausted means every attempt failed with a provider error or an
	// empty response.
	ErrExhausted = errors.New("generation attempts exhausted")

	// ErrNonRetryable means an attempt failed in a way retrying cannot fix.
	ErrNonRetryable = errors.New("generation failed")

	errEmptyContent = errors.New("provider returned empty content")
)

// Request is one chat completion call.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Completion is the provider's answer plus token accounting.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Backend abstracts the model provider so tests can supply a mock.
type Backend interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// ProviderError is a failure reported by, or on the way to, the provider.
// The Client retries these.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("provider error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// attemptError ties a terminal outcome to the cause of the last attempt.
type attemptError struct {
	kind     error
	attempts int
	err      error
}

func (e *attemptError) Error() string {
	if e.kind == ErrExhausted {
		return fmt.Sprintf("%s after %d attempts: %s", e.kind, e.attempts, e.err)
	}
	return e.kind.Error() + ": " + e.err.Error()
}

func (e *attemptError) Is(target error) bool { return target == e.kind }

func (e *attemptError) Unwrap() error { return e.err }

// backoffBase and maxBackoff shape the wait between attempts. Tests
// override them to avoid real sleeps.
var (
	backoffBase = time.Second
	maxBackoff  = 30 * time.Second
)

// jitter picks a wait in [d/2, d]. Tests replace it for determinism.
var jitter = func(d time.Duration) time.Duration {
	if d < 2 {
		return d
	}
	half := d / 2
	return half + rand.N(d-half+1)
}

// backoff returns the wait before retry number n (n >= 1).
func backoff(n int) time.Duration {
	d := maxBackoff
	if n-1 < 32 {
		if s := backoffBase << (n - 1); s > 0 && s < maxBackoff {
			d = s
		}
	}
	return jitter(d)
}

// Options tune a Client. Zero values select the defaults.
type Options struct {
	MaxAttempts          int
	MaxRequestsPerMinute int
	MaxTokens            int
	Temperature          float64
}

// Client generates study material with bounded retries.
type Client struct {
	backend     Backend
	maxAttempts int
	maxTokens   int
	temperature float64
	limiter     *rate.Limiter
}

// NewClient wraps backend with the retry policy described by opts.
func NewClient(backend Backend, opts Options) *Client {
	c := &Client{
		backend:     backend,
		maxAttempts: opts.MaxAttempts,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.temperature <= 0 {
		c.temperature = defaultTemperature
	}
	if opts.MaxRequestsPerMinute > 0 {
		every := time.Minute / time.Duration(opts.MaxRequestsPerMinute)
		c.limiter = rate.NewLimiter(rate.Every(every), 1)
	}
	return c
}

// Generate returns study material for note. Provider errors and empty
// responses are retried up to the attempt limit and then reported as
// ErrExhausted. Anything else fails immediately with ErrNonRetryable.
func (c *Client) Generate(ctx context.Context, note string) (string, error) {
	log := logging.Get("generate")

	prompt, err := BuildPrompt(note)
	if err != nil {
		return "", &attemptError{kind: ErrNonRetryable, attempts: 0, err: errors.Errorf("rendering prompt: %w", err)}
	}
	req := Request{
		System:      SystemPrompt,
		User:        prompt,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := backoff(attempt - 1)
			log.Debug().Dur("wait", wait).Int("attempt", attempt).Msg("backing off")
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return "", &attemptError{kind: ErrNonRetryable, attempts: attempt - 1, err: ctx.Err()}
			case <-t.C:
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", &attemptError{kind: ErrNonRetryable, attempts: attempt - 1, err: err}
			}
		}

		comp, err := c.backend.Complete(ctx, req)
		if err != nil {
			var pe *ProviderError
			if !errors.As(err, &pe) {
				return "", &attemptError{kind: ErrNonRetryable, attempts: attempt, err: err}
			}
			log.Error().Err(err).Int("attempt", attempt).Int("max", c.maxAttempts).Msg("provider call failed")
			lastErr = err
			continue
		}

		if strings.TrimSpace(comp.Content) == "" {
			log.Warn().Int("attempt", attempt).Int("max", c.maxAttempts).Msg("received empty response")
			lastErr = errEmptyContent
			continue
		}

		log.Info().
			Int("chars", len([]rune(comp.Content))).
			Int("prompt_tokens", comp.PromptTokens).
			Int("completion_tokens", comp.CompletionTokens).
			Int("total_tokens", comp.TotalTokens).
			Msg("generated study material")
		return comp.Content, nil
	}

	log.Error().Int("attempts", c.maxAttempts).Msg("max attempts reached, giving up")
	return "", &attemptError{kind: ErrExhausted, attempts: c.maxAttempts, err: lastErr}
}
