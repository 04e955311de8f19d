package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrStoreNotFound         = errors.New("store entry not found")
	ErrStoreKeyEmpty         = errors.New("store key empty")
	ErrStoreConnectionFailed = errors.New("store connection failed")
	ErrStoreTypeUnknown      = errors.New("store type unknown")
	ErrStoreOperationFailed  = errors.New("store operation failed")
)

var (
	ErrLockNotHeld     = errors.New("lock not held")
	ErrLockHandleIsNil = errors.New("lock handle is nil")
)

var (
	ErrUpstreamRequestFailed   = errors.New("upstream request failed")
	ErrUpstreamResponseInvalid = errors.New("upstream response invalid")
	ErrUpstreamTimeout         = errors.New("upstream timeout")
	ErrCircuitBreakerOpen      = errors.New("circuit breaker open")
	ErrListingUnavailable      = errors.New("object listing unavailable")
)

var (
	ErrWarmerIsRunning  = errors.New("warmer is running")
	ErrCronJobNotFound  = errors.New("cron job not found")
	ErrCronIsRunning    = errors.New("cron is running")
	ErrCronJobExists    = errors.New("cron job exists")
	ErrCronJobIsNil     = errors.New("cron job is nil")
	ErrCronJobNameEmpty = errors.New("cron job name is empty")
	ErrCronSpecInvalid  = errors.New("cron expression invalid")
)

var (
	ErrMetricsTypeUnknown = errors.New("metrics type unknown")
	ErrMetricsIsDisabled  = errors.New("metrics manager is disabled")
)

var (
	ErrLogFileIsEmpty     = errors.New("log file is empty")
	ErrLogFileWrongFormat = errors.New("log file wrong format")
)

var (
	ErrServiceIsRunning    = errors.New("service is running")
	ErrServiceIsNotRunning = errors.New("service is not running")
	ErrComponentStopFailed = errors.New("component stop failed")
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrContextCancelled = errors.New("context cancelled")
	ErrInvalidState     = errors.New("invalid state")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}
