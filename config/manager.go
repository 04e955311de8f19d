package config

import (
	"sync"

	"github.com/artfetch/artfetch/types"
)

type Manager struct {
	path   string
	loader *Loader
	config *types.ServiceConfig
	mu     sync.RWMutex
}

// NewManager builds a config manager for the given file path. An empty path
// yields the built-in defaults.
func NewManager(path string) (types.ConfigManager, error) {
	m := &Manager{
		path:   path,
		loader: NewLoader(),
	}

	if err := m.Load(); err != nil {
		return nil, err
	}

	return m, nil
}

// NewManagerFromConfig wraps an already assembled config, used by tests and
// embedded callers.
func NewManagerFromConfig(cfg *types.ServiceConfig) (types.ConfigManager, error) {
	if cfg == nil {
		return nil, types.ErrConfigIsNil
	}

	return &Manager{
		loader: NewLoader(),
		config: cfg,
	}, nil
}

func (m *Manager) Load() error {
	var (
		cfg *types.ServiceConfig
		err error
	)

	if m.path == "" {
		cfg = m.loader.Defaults()
	} else {
		cfg, err = m.loader.LoadFromFile(m.path)
		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	return nil
}

func (m *Manager) GetConfig() *types.ServiceConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.config
}

// Defaults exposes the loader defaults so callers can tweak a copy before
// wrapping it with NewManagerFromConfig.
func Defaults() *types.ServiceConfig {
	return NewLoader().Defaults()
}
