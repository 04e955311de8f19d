// Package artwork is the coordination core: it fronts the upstream museum API
// with a read-through object cache, a negative-result cache, per-key fetch
// locks and a bounded retry policy. Upstream errors are absorbed here; callers
// see a missing artwork as nil, never as a hard error.
package artwork

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/artfetch/artfetch/types"
	"github.com/artfetch/artfetch/utils"
)

type Provider struct {
	logger   types.Logger
	store    types.Store
	locks    types.LockManager
	failures types.NegativeCache
	upstream types.UpstreamClient
	metrics  types.MetricsManager
	fetchCfg *types.FetchConfig
	lockCfg  *types.LockConfig
}

func NewProvider(
	logger types.Logger,
	store types.Store,
	locks types.LockManager,
	failures types.NegativeCache,
	upstream types.UpstreamClient,
	metrics types.MetricsManager,
	fetchCfg *types.FetchConfig,
	lockCfg *types.LockConfig,
) *Provider {
	return &Provider{
		logger:   logger,
		store:    store,
		locks:    locks,
		failures: failures,
		upstream: upstream,
		metrics:  metrics,
		fetchCfg: fetchCfg,
		lockCfg:  lockCfg,
	}
}

// GetObject resolves one artwork through the cache, the failure record check
// and the per-key lock. A nil artwork with a nil error means the object is not
// available right now: suppressed by a recent failure, lost the lock race, or
// the fetch itself failed and was recorded.
func (p *Provider) GetObject(ctx context.Context, objectID int, forceRetry bool) (*types.Artwork, error) {
	if cached := p.readCached(ctx, objectID); cached != nil {
		p.countLookup("cache_hit")
		return cached, nil
	}

	if p.failures.ShouldSuppress(ctx, objectID, forceRetry) {
		p.countLookup("suppressed")
		return nil, nil
	}

	if forceRetry {
		if err := p.failures.ClearFailure(ctx, objectID); err != nil {
			p.logger.Warn("Failed to clear failure record for forced retry",
				zap.Int("object_id", objectID),
				zap.Error(err))
		}
	}

	handle, err := p.locks.TryAcquire(ctx, lockKey(objectID), p.lockCfg.Lease)
	if err != nil {
		return nil, err
	}

	if handle == nil {
		// Another worker is fetching. Give it a moment to populate the
		// cache, then take one more look and give up.
		p.countLookup("lock_wait")
		if err := sleepCtx(ctx, p.lockCfg.Wait); err != nil {
			return nil, err
		}
		return p.readCached(ctx, objectID), nil
	}

	defer func() {
		if err := p.locks.Release(ctx, handle); err != nil {
			p.logger.Warn("Failed to release fetch lock",
				zap.Int("object_id", objectID),
				zap.Error(err))
		}
	}()

	// The cache may have been filled between the first check and the
	// lock grant.
	if cached := p.readCached(ctx, objectID); cached != nil {
		p.countLookup("cache_hit")
		return cached, nil
	}

	p.countLookup("fetch")

	return p.fetchWithRetry(ctx, objectID), nil
}

// fetchWithRetry drives the bounded retry loop around a single-object fetch.
// Only not-found and forbidden outcomes retry; the delay escalates per
// attempt and no delay follows the final one. The last observed failure is
// what stays recorded.
func (p *Provider) fetchWithRetry(ctx context.Context, objectID int) *types.Artwork {
	for attempt := 0; attempt < p.fetchCfg.MaxAttempts; attempt++ {
		object, failure := p.upstream.FetchObject(ctx, objectID)

		if failure == nil {
			artwork := normalize(object)
			p.storeArtwork(ctx, objectID, artwork)

			if err := p.failures.ClearFailure(ctx, objectID); err != nil {
				p.logger.Warn("Failed to clear failure record after success",
					zap.Int("object_id", objectID),
					zap.Error(err))
			}

			return artwork
		}

		p.logger.Info("Object fetch failed",
			zap.Int("object_id", objectID),
			zap.Int("status", failure.Status),
			zap.String("class", failure.Class.String()),
			zap.Int("attempt", attempt+1),
			zap.Error(failure.Err))

		if failure.Class == types.FailureMalformed {
			// A data problem, not a transient fault. Nothing is
			// recorded so a later call may try again immediately.
			return nil
		}

		if err := p.failures.RecordFailure(ctx, objectID, failure.Status); err != nil {
			p.logger.Warn("Failed to record fetch failure",
				zap.Int("object_id", objectID),
				zap.Error(err))
		}

		if !failure.Class.Retriable() {
			return nil
		}

		if attempt+1 < p.fetchCfg.MaxAttempts {
			if err := p.failures.ClearFailure(ctx, objectID); err != nil {
				p.logger.Warn("Failed to clear failure record before retry",
					zap.Int("object_id", objectID),
					zap.Error(err))
			}

			if err := sleepCtx(ctx, p.retryDelay(attempt)); err != nil {
				return nil
			}
		}
	}

	return nil
}

func (p *Provider) retryDelay(attempt int) time.Duration {
	delays := p.fetchCfg.RetryDelays
	if len(delays) == 0 {
		return 0
	}
	if attempt >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[attempt]
}

func (p *Provider) Departments(ctx context.Context) ([]types.Department, error) {
	if data, ok := p.store.Get(ctx, departmentsKey); ok {
		var departments []types.Department
		if err := utils.Unmarshal(data, &departments); err == nil {
			return departments, nil
		}
		_ = p.store.Delete(ctx, departmentsKey)
	}

	departments, err := p.upstream.FetchDepartments(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := utils.Marshal(departments); err == nil {
		if err := p.store.Set(ctx, departmentsKey, data, p.fetchCfg.ListingTTL); err != nil {
			p.logger.Warn("Failed to cache departments", zap.Error(err))
		}
	}

	return departments, nil
}

// ClearObject removes the cache entry, the failure record and any held lock
// for one object id. Administrative path; clearing a missing id is a no-op.
func (p *Provider) ClearObject(ctx context.Context, objectID int) error {
	if err := p.store.Delete(ctx, objectKey(objectID)); err != nil {
		return types.WrapError(err, "failed to clear object cache entry")
	}

	if err := p.failures.ClearFailure(ctx, objectID); err != nil {
		return types.WrapError(err, "failed to clear failure record")
	}

	if err := p.locks.ForceRelease(ctx, lockKey(objectID)); err != nil {
		return types.WrapError(err, "failed to release fetch lock")
	}

	return nil
}

func (p *Provider) readCached(ctx context.Context, objectID int) *types.Artwork {
	data, ok := p.store.Get(ctx, objectKey(objectID))
	if !ok {
		return nil
	}

	var artwork types.Artwork
	if err := utils.Unmarshal(data, &artwork); err != nil {
		p.logger.Warn("Discarding unreadable cached artwork",
			zap.Int("object_id", objectID),
			zap.Error(err))
		_ = p.store.Delete(ctx, objectKey(objectID))
		return nil
	}

	return &artwork
}

func (p *Provider) storeArtwork(ctx context.Context, objectID int, artwork *types.Artwork) {
	data, err := utils.Marshal(artwork)
	if err != nil {
		p.logger.Error("Failed to marshal artwork",
			zap.Int("object_id", objectID),
			zap.Error(err))
		return
	}

	if err := p.store.Set(ctx, objectKey(objectID), data, p.fetchCfg.ObjectTTL); err != nil {
		p.logger.Error("Failed to cache artwork",
			zap.Int("object_id", objectID),
			zap.Error(err))
	}
}

func (p *Provider) countLookup(outcome string) {
	if p.metrics == nil {
		return
	}
	p.metrics.Counter("artwork_lookups_total", map[string]string{
		"outcome": outcome,
	}).Inc()
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
		return types.WrapError(ctx.Err(), "wait interrupted")
	}
}

var _ types.ArtworkProvider = (*Provider)(nil)
