// Package cron schedules recurring background work, currently only the cache
// prewarm sweep. Specs use the six-field form with a leading seconds column.
package cron

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/artfetch/artfetch/types"
)

type Manager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	logger  types.Logger
	metrics types.MetricsManager
	cron    *cron.Cron
	jobs    map[string]*types.JobEntry
	mu      sync.RWMutex
	running int32
}

func NewManager(ctx context.Context, logger types.Logger, metrics types.MetricsManager) *Manager {
	managerCtx, cancel := context.WithCancel(ctx)

	cronOptions := []cron.Option{
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(safeCronLogger{logger: logger})),
	}

	return &Manager{
		ctx:     managerCtx,
		cancel:  cancel,
		logger:  logger,
		metrics: metrics,
		cron:    cron.New(cronOptions...),
		jobs:    make(map[string]*types.JobEntry),
	}
}

func (m *Manager) Add(jobName, spec string, job func()) error {
	if jobName == "" {
		return types.ErrCronJobNameEmpty
	}
	if spec == "" {
		return types.ErrCronSpecInvalid
	}
	if job == nil {
		return types.ErrCronJobIsNil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[jobName]; exists {
		return types.ErrCronJobExists
	}

	wrapped := m.wrapJob(jobName, job)

	entryID, err := m.cron.AddFunc(spec, wrapped)
	if err != nil {
		return types.Errorf(types.ErrCronSpecInvalid, "%s: %v", spec, err)
	}

	m.jobs[jobName] = &types.JobEntry{
		ID:      entryID,
		Name:    jobName,
		Spec:    spec,
		Job:     wrapped,
		AddedAt: time.Now(),
	}

	m.logger.Info("Cron job added",
		zap.String("job_name", jobName),
		zap.String("spec", spec))

	return nil
}

func (m *Manager) Start() error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return types.ErrCronIsRunning
	}

	m.cron.Start()
	m.logger.Info("Cron manager started")

	return nil
}

func (m *Manager) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return types.ErrServiceIsNotRunning
	}

	defer m.cancel()

	stopCtx := m.cron.Stop()
	select {
	case <-stopCtx.Done():
		m.logger.Info("Cron scheduler stopped gracefully")
	case <-time.After(10 * time.Second):
		m.logger.Warn("Cron scheduler stop timeout, a job may still be running")
	}

	return nil
}

func (m *Manager) IsRunning() bool {
	return atomic.LoadInt32(&m.running) == 1
}

func (m *Manager) wrapJob(jobName string, job func()) func() {
	return func() {
		start := time.Now()

		var failed bool
		func() {
			defer func() {
				if r := recover(); r != nil {
					failed = true
					m.logger.Error("Cron job panicked",
						zap.String("job_name", jobName),
						zap.Any("panic", r))
				}
			}()
			job()
		}()

		duration := time.Since(start)

		m.mu.Lock()
		if entry, exists := m.jobs[jobName]; exists {
			entry.LastRun = start
			entry.RunCount++
			if cronEntry := m.cron.Entry(entry.ID); cronEntry.ID != 0 {
				entry.NextRun = cronEntry.Next
			}
		}
		m.mu.Unlock()

		result := "success"
		if failed {
			result = "error"
		}
		m.countExecution(jobName, result)
		m.observeDuration(jobName, duration)

		m.logger.Info("Cron job completed",
			zap.String("job_name", jobName),
			zap.String("result", result),
			zap.Duration("duration", duration))
	}
}

func (m *Manager) countExecution(jobName, result string) {
	if m.metrics == nil {
		return
	}
	m.metrics.Counter("cron_job_executions_total", map[string]string{
		"job_name": jobName,
		"result":   result,
	}).Inc()
}

func (m *Manager) observeDuration(jobName string, duration time.Duration) {
	if m.metrics == nil {
		return
	}
	m.metrics.Histogram("cron_job_duration_seconds",
		[]float64{0.1, 1.0, 10.0, 60.0, 300.0, 1800.0},
		map[string]string{"job_name": jobName},
	).Observe(duration.Seconds())
}

type safeCronLogger struct {
	logger types.Logger
}

func (l safeCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, kvFields(keysAndValues)...)
}

func (l safeCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(kvFields(keysAndValues), zap.Error(err))
	l.logger.Error(msg, fields...)
}

func kvFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}

var _ types.CronManager = (*Manager)(nil)
