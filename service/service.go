// Package service assembles the engine: shared store, rate limiter, lock
// coordinator, negative cache, upstream client, artwork provider and the
// prewarm scheduler, with ordered startup and reverse-order shutdown.
package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/artfetch/artfetch/artwork"
	"github.com/artfetch/artfetch/cache"
	"github.com/artfetch/artfetch/client"
	"github.com/artfetch/artfetch/config"
	"github.com/artfetch/artfetch/cron"
	"github.com/artfetch/artfetch/lock"
	"github.com/artfetch/artfetch/logger"
	"github.com/artfetch/artfetch/metrics"
	"github.com/artfetch/artfetch/negcache"
	"github.com/artfetch/artfetch/ratelimit"
	"github.com/artfetch/artfetch/types"
	"github.com/artfetch/artfetch/warm"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type component struct {
	name    string
	manager types.LifecycleManager
}

type Service struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     types.Logger
	configMgr  types.ConfigManager
	store      types.Store
	metricsMgr types.MetricsManager
	upstream   *client.MetClient
	provider   *artwork.Provider
	cronMgr    *cron.Manager
	warmer     *warm.Warmer
	components []component
	state      atomic.Value
}

// NewService loads configuration from a file and wires all components.
func NewService(ctx context.Context, configPath string) (*Service, error) {
	configMgr, err := config.NewManager(configPath)
	if err != nil {
		return nil, err
	}

	return build(ctx, configMgr)
}

// NewServiceWithConfig wires all components from an in-memory configuration,
// for embedding and tests.
func NewServiceWithConfig(ctx context.Context, cfg *types.ServiceConfig) (*Service, error) {
	configMgr, err := config.NewManagerFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return build(ctx, configMgr)
}

func build(ctx context.Context, configMgr types.ConfigManager) (*Service, error) {
	cfg := configMgr.GetConfig()

	log, err := logger.NewDefaultLogger(cfg.Logger)
	if err != nil {
		return nil, types.WrapError(err, "failed to build logger")
	}

	serviceCtx, cancel := context.WithCancel(ctx)

	metricsMgr, err := metrics.NewMetricsManager(log, cfg.Metrics)
	if err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to build metrics manager")
	}

	store, err := cache.NewStore(serviceCtx, configMgr, log, metricsMgr)
	if err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to build store")
	}

	limiter := ratelimit.NewLimiter(log, store, metricsMgr, cfg.RateLimit)
	locks := lock.NewManager(log, store, metricsMgr)
	failures := negcache.NewCache(log, store, metricsMgr)
	upstream := client.NewMetClient(log, limiter, metricsMgr, cfg.Upstream)
	provider := artwork.NewProvider(log, store, locks, failures, upstream, metricsMgr, cfg.Fetch, cfg.Locks)
	cronMgr := cron.NewManager(serviceCtx, log, metricsMgr)
	warmer := warm.NewWarmer(log, provider, cronMgr, metricsMgr, cfg.Warm)

	service := &Service{
		ctx:        serviceCtx,
		cancel:     cancel,
		logger:     log,
		configMgr:  configMgr,
		store:      store,
		metricsMgr: metricsMgr,
		upstream:   upstream,
		provider:   provider,
		cronMgr:    cronMgr,
		warmer:     warmer,
	}

	if metricsMgr != nil {
		service.components = append(service.components, component{"metrics", metricsMgr})
	}
	service.components = append(service.components,
		component{"store", store},
		component{"upstream_client", upstream},
		component{"cron", cronMgr},
		component{"warmer", warmer},
	)

	service.state.Store(StateStopped)

	return service, nil
}

func (s *Service) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrServiceIsRunning
	}

	s.logger.Info("Starting service",
		zap.String("name", s.configMgr.GetConfig().Name),
		zap.String("version", s.configMgr.GetConfig().Version))

	for i, c := range s.components {
		if err := c.manager.Start(); err != nil {
			s.logger.Error("Component failed to start",
				zap.String("component", c.name),
				zap.Error(err))
			s.stopComponents(i)
			s.state.Store(StateStopped)
			return types.WrapError(err, "failed to start "+c.name)
		}

		s.logger.Debug("Component started", zap.String("component", c.name))
	}

	s.state.Store(StateRunning)
	s.logger.Info("Service started")

	return nil
}

func (s *Service) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrServiceIsNotRunning
	}

	defer func() {
		s.state.Store(StateStopped)
		s.cancel()
	}()

	failed := s.stopComponents(len(s.components))

	s.logger.Info("Service stopped")

	if failed > 0 {
		return types.Errorf(types.ErrComponentStopFailed, "%d components", failed)
	}

	return nil
}

// stopComponents stops the first n components in reverse start order and
// returns how many failed.
func (s *Service) stopComponents(n int) int {
	failed := 0

	for i := n - 1; i >= 0; i-- {
		c := s.components[i]
		if !c.manager.IsRunning() {
			continue
		}

		if err := c.manager.Stop(); err != nil {
			failed++
			s.logger.Error("Component failed to stop",
				zap.String("component", c.name),
				zap.Error(err))
			continue
		}

		s.logger.Debug("Component stopped", zap.String("component", c.name))
	}

	return failed
}

func (s *Service) IsRunning() bool {
	return s.getState() == StateRunning
}

func (s *Service) getState() State {
	return s.state.Load().(State)
}

func (s *Service) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}

// Provider is the consumer surface of the engine.
func (s *Service) Provider() types.ArtworkProvider {
	return s.provider
}

func (s *Service) Store() types.Store {
	return s.store
}

func (s *Service) Logger() types.Logger {
	return s.logger
}

func (s *Service) Metrics() types.MetricsManager {
	return s.metricsMgr
}

func (s *Service) Config() *types.ServiceConfig {
	return s.configMgr.GetConfig()
}

// Warmer exposes the prewarmer so callers can trigger an immediate sweep.
func (s *Service) Warmer() *warm.Warmer {
	return s.warmer
}

func (s *Service) Context() context.Context {
	return s.ctx
}
