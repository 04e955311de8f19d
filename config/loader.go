package config

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/artfetch/artfetch/types"
)

type Loader struct {
	validator *validator.Validate
}

func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (l *Loader) LoadFromFile(configPath string) (config *types.ServiceConfig, err error) {
	if configPath == "" {
		return config, types.ErrConfigNotFound
	}

	if _, err = os.Stat(configPath); os.IsNotExist(err) {
		return config, types.WrapError(err, "file not found: "+configPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := l.ReadFileWithTimeout(ctx, configPath)
	if err != nil {
		return config, types.WrapError(err, "failed to read config file")
	}

	config = l.Defaults()

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, types.WrapError(err, "failed to parse YAML config")
	}

	if err := l.validator.Struct(config); err != nil {
		return config, types.WrapError(err, "config validation failed")
	}

	return config, nil
}

func (l *Loader) ReadFileWithTimeout(ctx context.Context, filepath string) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}

	resultChan := make(chan result, 1)

	go func() {
		data, err := os.ReadFile(filepath)
		resultChan <- result{data: data, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.data, res.err
	case <-ctx.Done():
		return nil, types.WrapError(ctx.Err(), "file read timeout")
	}
}

// Defaults carries the documented upstream budget: 70 requests per rolling
// second with a 50ms safety buffer, 10s object timeout, 30s listing timeout,
// three fetch attempts spaced 1/2/4s.
func (l *Loader) Defaults() *types.ServiceConfig {
	return &types.ServiceConfig{
		Name:    "artfetch",
		Version: "dev",
		Logger: &types.LoggerConfig{
			Level: "info",
		},
		Store: &types.StoreConfig{
			Type:      "memory",
			KeyPrefix: "artfetch",
		},
		Upstream: &types.UpstreamConfig{
			BaseURL:        "https://collectionapi.metmuseum.org/public/collection/v1",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: 10 * time.Second,
			ListingTimeout: 30 * time.Second,
			CircuitBreaker: &types.CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 10,
				RecoveryTimeout:  30 * time.Second,
				HalfOpenRequests: 3,
			},
		},
		RateLimit: &types.RateLimitConfig{
			MaxRequests: 70,
			Window:      time.Second,
			Buffer:      50 * time.Millisecond,
			EntryTTL:    2 * time.Second,
		},
		Locks: &types.LockConfig{
			Lease: 30 * time.Second,
			Wait:  100 * time.Millisecond,
		},
		Fetch: &types.FetchConfig{
			ObjectTTL:     time.Hour,
			ListingTTL:    24 * time.Hour,
			PageTTL:       time.Hour,
			MaxAttempts:   3,
			RetryDelays:   []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
			MaxConcurrent: 50,
			Oversample:    1.5,
		},
		Warm: &types.WarmConfig{
			Enabled:    false,
			Schedule:   "0 0 3 * * *",
			FirstPages: 5,
			PerPage:    20,
			PageDelay:  time.Second,
		},
		Metrics: &types.MetricsConfig{
			Enabled: false,
			Type:    "prometheus",
			Prefix:  "artfetch",
		},
	}
}
