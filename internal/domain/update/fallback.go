package update

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Fallback reasons reported in metrics.
const (
	reasonModelUnavailable = "model_unavailable"
	reasonError            = "error"
)

// FallbackOption configures a Fallback.
type FallbackOption func(*Fallback)

// WithFallbackLogger sets the logger used to report fallbacks.
func WithFallbackLogger(l logger.Logger) FallbackOption {
	return func(f *Fallback) {
		if l != nil {
			f.logger = l
		}
	}
}

// Fallback runs primary and switches to secondary when primary fails.
// Cancellation is returned as is.
type Fallback struct {
	primary   Strategy
	secondary Strategy
	logger    logger.Logger
	count     atomic.Int64
}

// NewFallback wraps primary with secondary.
func NewFallback(primary, secondary Strategy, opts ...FallbackOption) *Fallback {
	f := &Fallback{primary: primary, secondary: secondary}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Get().Named("rating")
	}
	return f
}

// Name implements Strategy.
func (f *Fallback) Name() string { return f.primary.Name() }

// Fallbacks returns how many games used the secondary strategy.
func (f *Fallback) Fallbacks() int64 { return f.count.Load() }

// ComputeAdjustments implements Strategy.
func (f *Fallback) ComputeAdjustments(ctx context.Context, g Game) (map[string]float64, error) {
	deltas, err := f.primary.ComputeAdjustments(ctx, g)
	if err == nil {
		return deltas, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}

	reason := reasonError
	if errors.Is(err, model.ErrModelUnavailable) {
		reason = reasonModelUnavailable
	}
	f.count.Add(1)
	metrics.RecordRatingFallback(reason)
	f.logger.Warn(ctx, "rating strategy fell back",
		logger.String("game_id", g.Result.ID),
		logger.String("from", f.primary.Name()),
		logger.String("to", f.secondary.Name()),
		logger.String("reason", reason),
		logger.Error(err),
	)
	return f.secondary.ComputeAdjustments(ctx, g)
}
