package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/goconfigurator/internal/catalog"
	"github.com/TimurManjosov/goconfigurator/internal/telemetry"
)

var (
	// ErrProductNotFound is returned when the requested product id or slug is
	// not in the current snapshot.
	ErrProductNotFound = errors.New("product not found")
	// ErrNoCatalog is returned when no snapshot has been loaded yet.
	ErrNoCatalog = errors.New("no catalog loaded")
)

// DefaultConcurrency bounds EvaluateBatch when Settings.Concurrency is unset.
const DefaultConcurrency = 4

// SnapshotSource hands out the current catalog snapshot. *catalog.Holder
// implements it.
type SnapshotSource interface {
	Load() *catalog.Snapshot
}

// Settings configure an Evaluator.
type Settings struct {
	MaxPasses   int
	Concurrency int
}

// Response is a Result plus the data needed to correlate it.
type Response struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	ETag        string    `json:"etag"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
	Result
}

// BatchItem is one entry of EvaluateBatch. Exactly one of Response and Error
// is set.
type BatchItem struct {
	Response *Response `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Evaluator evaluates requests against whatever snapshot src currently holds.
// It is safe for concurrent use.
type Evaluator struct {
	src      SnapshotSource
	log      zerolog.Logger
	settings Settings
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(src SnapshotSource, log zerolog.Logger, settings Settings) *Evaluator {
	if settings.Concurrency < 1 {
		settings.Concurrency = DefaultConcurrency
	}
	return &Evaluator{src: src, log: log, settings: settings}
}

// Evaluate resolves req.Product in the current snapshot and evaluates req.
// Inactive products are still evaluated; filtering them is a catalog concern.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := e.src.Load()
	if snap == nil {
		return nil, ErrNoCatalog
	}
	product, ok := snap.Product(req.Product)
	if !ok {
		telemetry.ObserveEvaluation("", telemetry.OutcomeNotFound, 0, 0)
		return nil, fmt.Errorf("%w: %q", ErrProductNotFound, req.Product)
	}

	id := uuid.NewString()
	start := time.Now()
	res := Evaluate(snap, product, req, Options{MaxPasses: e.settings.MaxPasses})
	elapsed := time.Since(start)

	outcome := telemetry.OutcomeOK
	switch {
	case !res.Converged:
		outcome = telemetry.OutcomeUnconverged
	case !res.Valid():
		outcome = telemetry.OutcomeInvalid
	}
	telemetry.ObserveEvaluation(product.Type, outcome, elapsed.Seconds(), res.Passes)

	logger := e.log.With().Str("evaluation_id", id).Str("product", product.ID).Logger()
	if !res.Converged {
		logger.Warn().Int("passes", res.Passes).Msg("rules did not converge")
	}
	logger.Debug().
		Str("etag", snap.ETag).
		Str("outcome", outcome).
		Int("passes", res.Passes).
		Int("validation_errors", len(res.ValidationErrors)).
		Str("total_incl", res.Pricing.TotalIncl.StringFixed(2)).
		Dur("elapsed", elapsed).
		Msg("evaluated")

	return &Response{
		ID:          id,
		ProductID:   product.ID,
		ETag:        snap.ETag,
		EvaluatedAt: start.UTC(),
		Result:      res,
	}, nil
}

// EvaluateBatch evaluates reqs concurrently, at most Settings.Concurrency at a
// time. Items keep the order of reqs. Per-request failures are reported in the
// item; the returned error is only set when ctx ends first.
func (e *Evaluator) EvaluateBatch(ctx context.Context, reqs []Request) ([]BatchItem, error) {
	items := make([]BatchItem, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.settings.Concurrency)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			resp, err := e.Evaluate(gctx, req)
			switch {
			case err == nil:
				items[i].Response = resp
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				items[i].Error = err.Error()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
