// Package negcache records recent per-object fetch failures so the upstream
// API is not hammered for items likely to fail again. Storage TTL and
// retry-eligibility are separate knobs: a record may outlive the point where
// retries become allowed.
package negcache

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/artfetch/artfetch/types"
	"github.com/artfetch/artfetch/utils"
)

const (
	// Storage TTLs per failure class.
	notFoundTTL = 300 * time.Second
	blockedTTL  = 120 * time.Second
	defaultTTL  = 300 * time.Second

	// Retry-eligibility windows. Not-found and blocked entries become
	// retriable before their record expires.
	transientRetryWindow = 120 * time.Second
	defaultRetryWindow   = 300 * time.Second
)

type Cache struct {
	logger  types.Logger
	store   types.Store
	metrics types.MetricsManager
}

func NewCache(logger types.Logger, store types.Store, metrics types.MetricsManager) *Cache {
	return &Cache{
		logger:  logger,
		store:   store,
		metrics: metrics,
	}
}

func (c *Cache) RecordFailure(ctx context.Context, objectID, status int) error {
	record := &types.FailureRecord{
		Status:   status,
		FailedAt: time.Now().Unix(),
	}

	data, err := utils.Marshal(record)
	if err != nil {
		return types.WrapError(err, "failed to marshal failure record")
	}

	err = c.store.Set(ctx, failureKey(objectID), data, storageTTL(status))
	if err != nil {
		return err
	}

	c.countRecorded(record.Class())

	return nil
}

func (c *Cache) GetFailure(ctx context.Context, objectID int) (*types.FailureRecord, bool) {
	data, ok := c.store.Get(ctx, failureKey(objectID))
	if !ok {
		return nil, false
	}

	var record types.FailureRecord
	if err := utils.Unmarshal(data, &record); err != nil {
		c.logger.Warn("Discarding unreadable failure record",
			zap.Int("object_id", objectID),
			zap.Error(err))
		_ = c.store.Delete(ctx, failureKey(objectID))
		return nil, false
	}

	return &record, true
}

func (c *Cache) ClearFailure(ctx context.Context, objectID int) error {
	return c.store.Delete(ctx, failureKey(objectID))
}

// ShouldSuppress reports whether a new fetch for the object must be skipped.
// A recorded failure suppresses fetches while it is younger than its
// retry-eligibility window; forceRetry bypasses the record.
func (c *Cache) ShouldSuppress(ctx context.Context, objectID int, forceRetry bool) bool {
	if forceRetry {
		return false
	}

	record, ok := c.GetFailure(ctx, objectID)
	if !ok {
		return false
	}

	return record.Age(time.Now()) < retryWindow(record.Status)
}

func failureKey(objectID int) string {
	return fmt.Sprintf("met_object_failed_%d", objectID)
}

func storageTTL(status int) time.Duration {
	switch status {
	case http.StatusNotFound:
		return notFoundTTL
	case http.StatusForbidden:
		return blockedTTL
	default:
		return defaultTTL
	}
}

func retryWindow(status int) time.Duration {
	switch status {
	case http.StatusNotFound, http.StatusForbidden:
		return transientRetryWindow
	default:
		return defaultRetryWindow
	}
}

func (c *Cache) countRecorded(class types.FailureClass) {
	if c.metrics == nil {
		return
	}
	c.metrics.Counter("negative_cache_recorded_total", map[string]string{
		"class": class.String(),
	}).Inc()
}
