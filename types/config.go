package types

import (
	"time"
)

type ConfigManager interface {
	Load() error
	GetConfig() *ServiceConfig
}

type ServiceConfig struct {
	Name      string           `yaml:"name" json:"name" validate:"required"`
	Version   string           `yaml:"version" json:"version"`
	Logger    *LoggerConfig    `yaml:"logger" json:"logger"`
	Store     *StoreConfig     `yaml:"store" json:"store"`
	Upstream  *UpstreamConfig  `yaml:"upstream" json:"upstream"`
	RateLimit *RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Locks     *LockConfig      `yaml:"locks" json:"locks"`
	Fetch     *FetchConfig     `yaml:"fetch" json:"fetch"`
	Warm      *WarmConfig      `yaml:"warm" json:"warm"`
	Metrics   *MetricsConfig   `yaml:"metrics" json:"metrics"`
}

type LoggerConfig struct {
	Type   string      `yaml:"type" json:"type"`
	Level  string      `yaml:"level" json:"level"`
	Config interface{} `yaml:"config" json:"config"`
}

type StoreConfig struct {
	Type      string      `yaml:"type" json:"type" validate:"required,oneof=memory redis"`
	KeyPrefix string      `yaml:"key_prefix" json:"key_prefix"`
	Config    interface{} `yaml:"config" json:"config"`
}

type UpstreamConfig struct {
	BaseURL        string                `yaml:"base_url" json:"base_url" validate:"required,url"`
	UserAgent      string                `yaml:"user_agent" json:"user_agent"`
	RequestTimeout time.Duration         `yaml:"request_timeout" json:"request_timeout" validate:"min=0"`
	ListingTimeout time.Duration         `yaml:"listing_timeout" json:"listing_timeout" validate:"min=0"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold" validate:"min=0"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" json:"recovery_timeout" validate:"min=0"`
	HalfOpenRequests int           `yaml:"half_open_requests" json:"half_open_requests" validate:"min=0"`
}

type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests" json:"max_requests" validate:"min=1"`
	Window      time.Duration `yaml:"window" json:"window" validate:"min=0"`
	Buffer      time.Duration `yaml:"buffer" json:"buffer" validate:"min=0"`
	EntryTTL    time.Duration `yaml:"entry_ttl" json:"entry_ttl" validate:"min=0"`
}

type LockConfig struct {
	Lease time.Duration `yaml:"lease" json:"lease" validate:"min=0"`
	Wait  time.Duration `yaml:"wait" json:"wait" validate:"min=0"`
}

type FetchConfig struct {
	ObjectTTL     time.Duration   `yaml:"object_ttl" json:"object_ttl" validate:"min=0"`
	ListingTTL    time.Duration   `yaml:"listing_ttl" json:"listing_ttl" validate:"min=0"`
	PageTTL       time.Duration   `yaml:"page_ttl" json:"page_ttl" validate:"min=0"`
	MaxAttempts   int             `yaml:"max_attempts" json:"max_attempts" validate:"min=1"`
	RetryDelays   []time.Duration `yaml:"retry_delays" json:"retry_delays"`
	MaxConcurrent int             `yaml:"max_concurrent" json:"max_concurrent" validate:"min=1"`
	Oversample    float64         `yaml:"oversample" json:"oversample" validate:"min=1"`
}

type WarmConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	Schedule   string        `yaml:"schedule" json:"schedule"`
	FirstPages int           `yaml:"first_pages" json:"first_pages" validate:"min=0"`
	PerPage    int           `yaml:"per_page" json:"per_page" validate:"min=1"`
	PageDelay  time.Duration `yaml:"page_delay" json:"page_delay" validate:"min=0"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Type    string `yaml:"type" json:"type"`
	Prefix  string `yaml:"prefix" json:"prefix"`
}
