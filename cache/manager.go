package cache

import (
	"context"
	"time"

	"github.com/artfetch/artfetch/types"
)

var customStoreCreators = make(map[string]types.StoreCreator)

func RegisterStore(storeName string, creator types.StoreCreator) {
	customStoreCreators[storeName] = creator
}

func NewStore(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) (types.Store, error) {
	storeConfig := config.GetConfig().Store

	var impl types.Store
	var err error

	switch storeConfig.Type {
	case "memory":
		impl, err = NewMemoryStore(ctx, logger, storeConfig)
	case "redis":
		impl, err = NewRedisStore(ctx, logger, storeConfig)
	default:
		if creator, exists := customStoreCreators[storeConfig.Type]; exists {
			impl, err = creator(storeConfig)
		} else {
			return nil, types.Errorf(types.ErrStoreTypeUnknown, "type: %s", storeConfig.Type)
		}
	}

	if err != nil {
		return nil, err
	}

	if metrics == nil {
		return impl, nil
	}

	return newInstrumentedStore(metrics, impl), nil
}

type instrumentedStore struct {
	impl    types.Store
	metrics types.MetricsManager
}

func newInstrumentedStore(metrics types.MetricsManager, impl types.Store) types.Store {
	return &instrumentedStore{
		impl:    impl,
		metrics: metrics,
	}
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, bool) {
	start := time.Now()
	value, exists := s.impl.Get(ctx, key)

	result := "miss"
	if exists {
		result = "hit"
	}

	s.recordMetric("get", result, time.Since(start))
	return value, exists
}

func (s *instrumentedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := s.impl.Set(ctx, key, value, ttl)
	s.recordMetric("set", resultLabel(err), time.Since(start))
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.impl.Delete(ctx, key)
	s.recordMetric("delete", resultLabel(err), time.Since(start))
	return err
}

func (s *instrumentedStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	start := time.Now()
	acquired, err := s.impl.SetNX(ctx, key, value, ttl)
	s.recordMetric("setnx", resultLabel(err), time.Since(start))
	return acquired, err
}

func (s *instrumentedStore) DeleteIfEquals(ctx context.Context, key, expected string) (bool, error) {
	start := time.Now()
	deleted, err := s.impl.DeleteIfEquals(ctx, key, expected)
	s.recordMetric("delete_if_equals", resultLabel(err), time.Since(start))
	return deleted, err
}

func (s *instrumentedStore) Start() error {
	return s.impl.Start()
}

func (s *instrumentedStore) Stop() error {
	return s.impl.Stop()
}

func (s *instrumentedStore) IsRunning() bool {
	return s.impl.IsRunning()
}

func (s *instrumentedStore) recordMetric(operation, result string, duration time.Duration) {
	s.metrics.Counter("store_operations_total", map[string]string{
		"operation": operation,
		"result":    result,
	}).Inc()

	s.metrics.Histogram("store_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
