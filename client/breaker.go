package client

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/artfetch/artfetch/types"
)

type CircuitBreakerState int32

const (
	StateBreakerClosed CircuitBreakerState = iota
	StateBreakerOpen
	StateBreakerHalfOpen
	StateBreakerDisabled
)

// CircuitBreaker guards the upstream API against sustained failure. Forbidden
// responses count as failures alongside server errors and timeouts: the API
// answers 403 when it decides a caller is misbehaving, and backing off hard is
// the fastest way to get unblocked.
type CircuitBreaker struct {
	config    *types.CircuitBreakerConfig
	logger    types.Logger
	state     atomic.Value
	failures  atomic.Int32
	successes atomic.Int32
	lastFail  atomic.Int64
	mutex     sync.Mutex
}

func NewCircuitBreaker(config *types.CircuitBreakerConfig, logger types.Logger) *CircuitBreaker {
	cb := &CircuitBreaker{
		logger: logger,
	}

	if config == nil || !config.Enabled {
		cb.config = &types.CircuitBreakerConfig{Enabled: false}
		cb.state.Store(StateBreakerDisabled)
		return cb
	}

	cb.config = config
	cb.state.Store(StateBreakerClosed)

	return cb
}

func (cb *CircuitBreaker) CanExecute() bool {
	if cb == nil || !cb.config.Enabled {
		return true
	}

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.getStateUnsafe() {
	case StateBreakerClosed, StateBreakerHalfOpen:
		return true
	case StateBreakerOpen:
		if time.Since(time.Unix(0, cb.lastFail.Load())) > cb.config.RecoveryTimeout {
			cb.transitionToHalfOpen()
			return true
		}
		return false
	default:
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	if cb == nil || !cb.config.Enabled {
		return
	}

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.getStateUnsafe() {
	case StateBreakerClosed:
		cb.failures.Store(0)
	case StateBreakerHalfOpen:
		successes := cb.successes.Add(1)
		if successes >= int32(cb.config.HalfOpenRequests) {
			cb.transitionToClosed()
		}
	case StateBreakerOpen:
		cb.logger.Warn("Success recorded while circuit breaker open")
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	if cb == nil || !cb.config.Enabled {
		return
	}

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.lastFail.Store(time.Now().UnixNano())

	switch cb.getStateUnsafe() {
	case StateBreakerClosed:
		failures := cb.failures.Add(1)
		if failures >= int32(cb.config.FailureThreshold) {
			cb.transitionToOpen()
		}
	case StateBreakerHalfOpen:
		cb.transitionToOpen()
	case StateBreakerOpen:
	}
}

func (cb *CircuitBreaker) GetStateString() string {
	if cb == nil || !cb.config.Enabled {
		return "disabled"
	}

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.stateToString(cb.getStateUnsafe())
}

func (cb *CircuitBreaker) Reset() {
	if cb == nil || !cb.config.Enabled {
		return
	}

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	oldState := cb.getStateUnsafe()
	cb.transitionToClosed()

	cb.logger.Info("Circuit breaker manually reset",
		zap.String("old_state", cb.stateToString(oldState)))
}

func (cb *CircuitBreaker) getStateUnsafe() CircuitBreakerState {
	state := cb.state.Load()
	if state == nil {
		return StateBreakerClosed
	}
	return state.(CircuitBreakerState)
}

func (cb *CircuitBreaker) transitionToClosed() {
	cb.state.Store(StateBreakerClosed)
	cb.failures.Store(0)
	cb.successes.Store(0)
	cb.lastFail.Store(0)
	cb.logger.Info("Circuit breaker closed")
}

func (cb *CircuitBreaker) transitionToOpen() {
	cb.state.Store(StateBreakerOpen)
	cb.successes.Store(0)
	cb.logger.Warn("Circuit breaker opened",
		zap.Int32("failures", cb.failures.Load()),
		zap.Int("threshold", cb.config.FailureThreshold))
}

func (cb *CircuitBreaker) transitionToHalfOpen() {
	cb.state.Store(StateBreakerHalfOpen)
	cb.successes.Store(0)
	cb.logger.Info("Circuit breaker transitioned to half-open")
}

func (cb *CircuitBreaker) stateToString(state CircuitBreakerState) string {
	switch state {
	case StateBreakerClosed:
		return "closed"
	case StateBreakerOpen:
		return "open"
	case StateBreakerHalfOpen:
		return "half-open"
	case StateBreakerDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// IsCircuitBreakerFailure reports whether one outcome feeds the failure
// counter. 403 is included: the upstream uses it for throttling.
func IsCircuitBreakerFailure(statusCode int, err error) bool {
	if err != nil {
		return true
	}

	switch statusCode {
	case 403, 429, 408, 502, 503, 504:
		return true
	default:
		return statusCode >= 500
	}
}
