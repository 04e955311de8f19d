// Package ratelimit enforces the global outbound budget toward the upstream
// museum API: a sliding window of request timestamps kept in the shared store
// so every worker process counts against the same ceiling.
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/artfetch/artfetch/types"
	"github.com/artfetch/artfetch/utils"
)

// WindowKey is the single shared rate-window entry.
const WindowKey = "met_api_rate_limit"

type Limiter struct {
	logger  types.Logger
	store   types.Store
	metrics types.MetricsManager
	config  *types.RateLimitConfig
}

func NewLimiter(logger types.Logger, store types.Store, metrics types.MetricsManager, config *types.RateLimitConfig) *Limiter {
	return &Limiter{
		logger:  logger,
		store:   store,
		metrics: metrics,
		config:  config,
	}
}

// AcquireSlot delays the caller until one more request fits inside the
// rolling window, then records the request. Soft limiting: it always
// eventually proceeds, only context cancellation aborts the wait.
func (l *Limiter) AcquireSlot(ctx context.Context) error {
	now := time.Now()
	stamps := l.prune(l.load(ctx), now)

	if len(stamps) >= l.config.MaxRequests {
		wait := l.waitFor(stamps, now)

		l.logger.Debug("Rate window full, delaying request",
			zap.Int("in_window", len(stamps)),
			zap.Int("ceiling", l.config.MaxRequests),
			zap.Duration("wait", wait))
		l.observeWait(wait)

		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}

		now = time.Now()
		stamps = l.prune(l.load(ctx), now)
	}

	stamps = append(stamps, now.UnixNano())
	l.persist(ctx, stamps)
	l.countAcquire()

	return nil
}

// waitFor computes how long until the oldest in-window request ages out. A
// burst of identical timestamps caps the wait at window+buffer.
func (l *Limiter) waitFor(stamps []int64, now time.Time) time.Duration {
	oldest := stamps[0]
	for _, ts := range stamps[1:] {
		if ts < oldest {
			oldest = ts
		}
	}

	wait := l.config.Window - now.Sub(time.Unix(0, oldest)) + l.config.Buffer
	if max := l.config.Window + l.config.Buffer; wait > max {
		wait = max
	}
	if wait < 0 {
		wait = 0
	}

	return wait
}

func (l *Limiter) prune(stamps []int64, now time.Time) []int64 {
	cutoff := now.Add(-l.config.Window).UnixNano()

	kept := stamps[:0]
	for _, ts := range stamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}

	return kept
}

func (l *Limiter) load(ctx context.Context) []int64 {
	data, ok := l.store.Get(ctx, WindowKey)
	if !ok {
		return nil
	}

	var stamps []int64
	if err := utils.Unmarshal(data, &stamps); err != nil {
		l.logger.Warn("Discarding unreadable rate window entry", zap.Error(err))
		return nil
	}

	return stamps
}

func (l *Limiter) persist(ctx context.Context, stamps []int64) {
	data, err := utils.Marshal(stamps)
	if err != nil {
		l.logger.Error("Failed to marshal rate window", zap.Error(err))
		return
	}

	if err := l.store.Set(ctx, WindowKey, data, l.config.EntryTTL); err != nil {
		l.logger.Error("Failed to persist rate window", zap.Error(err))
	}
}

func (l *Limiter) countAcquire() {
	if l.metrics == nil {
		return
	}
	l.metrics.Counter("ratelimit_slots_acquired_total", nil).Inc()
}

func (l *Limiter) observeWait(wait time.Duration) {
	if l.metrics == nil {
		return
	}
	l.metrics.Histogram("ratelimit_wait_seconds",
		[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		nil,
	).Observe(wait.Seconds())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return types.WrapError(ctx.Err(), "rate limit wait interrupted")
	}
}
