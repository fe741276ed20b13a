// Package summarizer produces bounded-length abstractive summaries with a
// pretrained sequence-to-sequence model.
//
// A Summarizer is built once at startup and shared by reference; decoding
// parameters are fixed at construction so that identical input yields
// identical output across runs.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports"
)

// EmptyContentSummary is returned for blank input without consulting the model.
const EmptyContentSummary = "No content available to summarize."

const defaultTimeout = 60 * time.Second

// ErrGeneration marks a failed model invocation for a single text.
var ErrGeneration = errors.New("summary generation failed")

// DefaultParams is the decoding configuration every call uses: beam search
// without sampling, so output is a pure function of input and weights.
var DefaultParams = domain.GenerationParams{
	MaxInputTokens: 512,
	MaxLength:      150,
	MinLength:      40,
	NumBeams:       4,
	LengthPenalty:  2.0,
	EarlyStopping:  true,
	DoSample:       false,
}

// Summarizer wraps a model backend with the fixed decoding configuration.
type Summarizer struct {
	backend ports.TextGenerator
	params  domain.GenerationParams
	timeout time.Duration
}

var _ ports.Summarizer = (*Summarizer)(nil)

// Option customises construction.
type Option func(*Summarizer)

// WithTimeout bounds each model call in wall-clock time.
func WithTimeout(d time.Duration) Option {
	return func(s *Summarizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New builds a Summarizer around backend.
func New(backend ports.TextGenerator, opts ...Option) (*Summarizer, error) {
	if backend == nil {
		return nil, fmt.Errorf("summarizer: model backend is required")
	}
	s := &Summarizer{
		backend: backend,
		params:  DefaultParams,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Params returns the decoding configuration in use.
func (s *Summarizer) Params() domain.GenerationParams {
	return s.params
}

// Summarize returns a summary of text. Blank text yields EmptyContentSummary;
// longer text is cut to the first MaxInputTokens whitespace-separated tokens.
// A backend failure or an empty generation is reported as an error wrapping
// ErrGeneration.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyContentSummary, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.backend.Generate(callCtx, truncateTokens(text, s.params.MaxInputTokens), s.params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: model returned empty output", ErrGeneration)
	}
	return out, nil
}

// truncateTokens keeps the first limit whitespace-separated tokens of text.
// Text within the budget is returned unchanged.
func truncateTokens(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	fields := strings.Fields(text)
	if len(fields) <= limit {
		return text
	}
	return strings.Join(fields[:limit], " ")
}
