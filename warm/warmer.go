// Package warm keeps the browse pages hot. WarmFirst fills the leading pages
// of both the full listing and the highlights listing on demand; the scheduled
// sweep warms those pages first and then paces through the rest of the catalog
// so every page eventually lands in cache.
package warm

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/artfetch/artfetch/types"
)

const jobName = "cache_prewarm"

type Warmer struct {
	logger   types.Logger
	provider types.ArtworkProvider
	cron     types.CronManager
	metrics  types.MetricsManager
	config   *types.WarmConfig
	sweeping int32
	started  int32
}

func NewWarmer(logger types.Logger, provider types.ArtworkProvider, cronManager types.CronManager, metrics types.MetricsManager, config *types.WarmConfig) *Warmer {
	return &Warmer{
		logger:   logger,
		provider: provider,
		cron:     cronManager,
		metrics:  metrics,
		config:   config,
	}
}

func (w *Warmer) Start() error {
	if !atomic.CompareAndSwapInt32(&w.started, 0, 1) {
		return types.ErrServiceIsRunning
	}

	if !w.config.Enabled {
		w.logger.Debug("Cache prewarm disabled")
		return nil
	}

	err := w.cron.Add(jobName, w.config.Schedule, func() {
		if err := w.Sweep(context.Background()); err != nil {
			w.logger.Warn("Prewarm sweep skipped", zap.Error(err))
		}
	})
	if err != nil {
		atomic.StoreInt32(&w.started, 0)
		return types.WrapError(err, "failed to schedule prewarm sweep")
	}

	return nil
}

func (w *Warmer) Stop() error {
	if !atomic.CompareAndSwapInt32(&w.started, 1, 0) {
		return types.ErrServiceIsNotRunning
	}
	return nil
}

func (w *Warmer) IsRunning() bool {
	return atomic.LoadInt32(&w.started) == 1
}

// WarmFirst warms the leading pages of both listings immediately, without
// pacing. It is the on-demand entry point; the scheduled Sweep additionally
// continues through the rest of the catalog.
func (w *Warmer) WarmFirst(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&w.sweeping, 0, 1) {
		return types.ErrWarmerIsRunning
	}
	defer atomic.StoreInt32(&w.sweeping, 0)

	warmed, _, err := w.warmPages(ctx, 1, w.config.FirstPages, false)
	w.countWarmed(warmed)
	if err != nil {
		return err
	}

	w.logger.Info("Prewarm first pages completed",
		zap.Int("pages", w.config.FirstPages),
		zap.Int("artworks", warmed))

	return nil
}

// Sweep warms the first configured pages immediately, then walks the rest of
// the catalog paced by the page delay so the sweep never competes with
// interactive traffic for the rate window. Only one sweep runs at a time.
func (w *Warmer) Sweep(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&w.sweeping, 0, 1) {
		return types.ErrWarmerIsRunning
	}
	defer atomic.StoreInt32(&w.sweeping, 0)

	start := time.Now()

	warmed := 0
	defer func() { w.countWarmed(warmed) }()

	first, lastPage, err := w.warmPages(ctx, 1, w.config.FirstPages, false)
	warmed += first
	if err != nil {
		return err
	}

	if lastPage > w.config.FirstPages {
		if err := sleepCtx(ctx, w.config.PageDelay); err != nil {
			return err
		}

		rest, _, err := w.warmPages(ctx, w.config.FirstPages+1, lastPage, true)
		warmed += rest
		if err != nil {
			return err
		}
	}

	pages := w.config.FirstPages
	if lastPage > pages {
		pages = lastPage
	}

	w.logger.Info("Prewarm sweep completed",
		zap.Int("pages", pages),
		zap.Int("artworks", warmed),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// warmPages walks pages from..to of both listings and returns the artwork
// count together with the highest last-page either listing reported. Pages
// past a listing's own end come back as cheap empty pages.
func (w *Warmer) warmPages(ctx context.Context, from, to int, paced bool) (warmed, lastPage int, err error) {
	for page := from; page <= to; page++ {
		for _, highlightsOnly := range []bool{true, false} {
			if err := ctx.Err(); err != nil {
				return warmed, lastPage, types.WrapError(err, "prewarm sweep interrupted")
			}

			result, err := w.provider.GetObjects(ctx, page, w.config.PerPage, highlightsOnly, nil)
			if err != nil {
				w.logger.Warn("Prewarm page failed",
					zap.Int("page", page),
					zap.Bool("highlights_only", highlightsOnly),
					zap.Error(err))
				continue
			}

			warmed += len(result.Data)
			if result.LastPage > lastPage {
				lastPage = result.LastPage
			}
		}

		if paced && page < to {
			if err := sleepCtx(ctx, w.config.PageDelay); err != nil {
				return warmed, lastPage, err
			}
		}
	}

	return warmed, lastPage, nil
}

func (w *Warmer) countWarmed(count int) {
	if w.metrics == nil {
		return
	}
	w.metrics.Counter("prewarm_artworks_total", nil).Add(float64(count))
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
		return types.WrapError(ctx.Err(), "prewarm delay interrupted")
	}
}
