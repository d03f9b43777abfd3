// Package advice turns a HealthRecord into life-improvement recommendations.
package advice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jun/fitadvice/internal/metrics"
	"github.com/jun/fitadvice/internal/model"
)

// GenerationError wraps any failure to produce advice.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("advice generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Generator builds the prompt and calls a TextGenerator once per record.
type Generator struct {
	text    TextGenerator
	count   int
	timeout time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder
}

type Option func(*Generator)

// WithAdviceCount sets how many recommendations are requested.
func WithAdviceCount(n int) Option {
	return func(g *Generator) { g.count = n }
}

// WithTimeout bounds the generation call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(g *Generator) { g.metrics = m }
}

func NewGenerator(text TextGenerator, opts ...Option) *Generator {
	g := &Generator{
		text:    text,
		count:   DefaultAdviceCount,
		timeout: 60 * time.Second,
		logger:  slog.Default(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Diagnose returns the generated advice verbatim. There is no retry.
func (g *Generator) Diagnose(ctx context.Context, record model.HealthRecord) (model.AdviceResult, error) {
	prompt, err := BuildPrompt(record, g.count)
	if err != nil {
		return model.AdviceResult{}, &GenerationError{Err: err}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.text.Generate(ctx, prompt)
	elapsed := time.Since(start)
	if err != nil {
		err = model.AsTimeout("advice generation", err)
		outcome := metrics.OutcomeError
		if model.IsTimeout(err) {
			outcome = metrics.OutcomeTimeout
		}
		g.metrics.ObserveGeneration(outcome, elapsed)
		g.logger.ErrorContext(ctx, "advice generation failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return model.AdviceResult{}, &GenerationError{Err: err}
	}
	if text == "" {
		g.metrics.ObserveGeneration(metrics.OutcomeError, elapsed)
		return model.AdviceResult{}, &GenerationError{Err: ErrEmptyResponse}
	}

	g.metrics.ObserveGeneration(metrics.OutcomeSuccess, elapsed)
	g.logger.InfoContext(ctx, "advice generated", "prompt_bytes", len(prompt), "advice_bytes", len(text), "duration_ms", elapsed.Milliseconds())
	return model.AdviceResult{Text: text}, nil
}
