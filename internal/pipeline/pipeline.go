// Package pipeline collects every configured Fitbit category for one
// reference date and merges them into a single HealthRecord.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jun/fitadvice/internal/fitbit"
	"github.com/jun/fitadvice/internal/metrics"
	"github.com/jun/fitadvice/internal/model"
)

// ErrMissingToken is returned before any upstream call when the credential has no access token.
var ErrMissingToken = errors.New("credential has no access token")

// AggregationError wraps the first failure of a collection run.
type AggregationError struct {
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed: %v", e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

// Fetcher is implemented by *fitbit.Client.
type Fetcher interface {
	Fetch(ctx context.Context, category fitbit.Category, accessToken string, p fitbit.Params) (json.RawMessage, error)
}

// Aggregator fans out one fetch task per step and fans the results back in.
type Aggregator struct {
	fetcher  Fetcher
	optional []fitbit.Category
	loc      *time.Location
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithOptionalCategories enables extra categories on top of the core set.
func WithOptionalCategories(cats ...fitbit.Category) Option {
	return func(a *Aggregator) { a.optional = append(a.optional, cats...) }
}

// WithLocation sets the zone used to derive the reference date.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) { a.loc = loc }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func NewAggregator(f Fetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetcher: f,
		loc:     time.UTC,
		logger:  slog.Default(),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Categories returns the keys a successful Collect produces.
func (a *Aggregator) Categories() []fitbit.Category {
	return append(fitbit.Core(), a.optional...)
}

type step []fitbit.Category

func (a *Aggregator) steps() []step {
	steps := []step{
		{fitbit.Profile},
		{fitbit.SleepToday},
		{fitbit.SleepList},
		{fitbit.HeartRate},
		{fitbit.Activity, fitbit.HeartZones},
	}
	for _, c := range a.optional {
		steps = append(steps, step{c})
	}
	return steps
}

// Collect fetches all categories for refDate. Either every key is present
// or an *AggregationError is returned and nothing else.
func (a *Aggregator) Collect(ctx context.Context, cred model.Credential, refDate time.Time) (model.HealthRecord, error) {
	if cred.AccessToken == "" {
		return nil, &AggregationError{Err: ErrMissingToken}
	}

	y, m, d := refDate.In(a.loc).Date()
	params := fitbit.ParamsFor(time.Date(y, m, d, 0, 0, 0, 0, a.loc))

	start := time.Now()
	var (
		mu     sync.Mutex
		record = make(model.HealthRecord)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range a.steps() {
		g.Go(func() error {
			// Categories within a step are fetched in order.
			for _, cat := range s {
				raw, err := a.fetcher.Fetch(gctx, cat, cred.AccessToken, params)
				if err != nil {
					return err
				}
				mu.Lock()
				record[string(cat)] = raw
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		outcome := metrics.OutcomeError
		if model.IsTimeout(err) {
			outcome = metrics.OutcomeTimeout
		}
		a.metrics.ObserveAggregation(outcome, time.Since(start))
		a.logger.WarnContext(ctx, "aggregation failed", "user_id", cred.UserID, "error", err)
		return nil, &AggregationError{Err: err}
	}

	a.metrics.ObserveAggregation(metrics.OutcomeSuccess, time.Since(start))
	a.logger.InfoContext(ctx, "aggregation complete",
		"user_id", cred.UserID,
		"date", params.Date.Format(fitbit.DateLayout),
		"categories", len(record),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return record, nil
}
