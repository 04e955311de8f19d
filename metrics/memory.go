package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artfetch/artfetch/types"
	"github.com/artfetch/artfetch/utils"
)

// MemoryMetrics keeps plain in-process counters. Useful in tests for
// asserting that a code path recorded what it should.
type MemoryMetrics struct {
	logger   types.Logger
	counters map[string]*memoryCounter
	gauges   map[string]*memoryGauge
	mu       sync.Mutex
	running  int32
}

func NewMemoryMetrics(logger types.Logger) *MemoryMetrics {
	return &MemoryMetrics{
		logger:   logger,
		counters: make(map[string]*memoryCounter),
		gauges:   make(map[string]*memoryGauge),
	}
}

func (m *MemoryMetrics) Start() error {
	if !atomic.CompareAndSwapInt32(&m.running, 0, 1) {
		return types.ErrServiceIsRunning
	}
	return nil
}

func (m *MemoryMetrics) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.running, 1, 0) {
		return types.ErrServiceIsNotRunning
	}
	return nil
}

func (m *MemoryMetrics) IsRunning() bool {
	return atomic.LoadInt32(&m.running) == 1
}

func (m *MemoryMetrics) Counter(name string, labels map[string]string) types.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := name + utils.HashKey(flatten(labels)...)
	if counter, exists := m.counters[key]; exists {
		return counter
	}

	counter := &memoryCounter{name: name, labels: labels}
	m.counters[key] = counter
	return counter
}

func (m *MemoryMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := name + utils.HashKey(flatten(labels)...)
	if gauge, exists := m.gauges[key]; exists {
		return gauge
	}

	gauge := &memoryGauge{name: name, labels: labels}
	m.gauges[key] = gauge
	return gauge
}

func (m *MemoryMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	return &memoryHistogram{}
}

func (m *MemoryMetrics) GetMetrics() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var values []types.MetricValue
	now := time.Now()

	for _, counter := range m.counters {
		values = append(values, types.MetricValue{
			Name:      counter.name,
			Type:      "counter",
			Value:     counter.value.Load(),
			Labels:    counter.labels,
			Timestamp: now,
		})
	}
	for _, gauge := range m.gauges {
		values = append(values, types.MetricValue{
			Name:      gauge.name,
			Type:      "gauge",
			Value:     gauge.value.Load(),
			Labels:    gauge.labels,
			Timestamp: now,
		})
	}

	return utils.Marshal(values)
}

// CounterValue returns the current value of a counter, matching by name and
// exact label set.
func (m *MemoryMetrics) CounterValue(name string, labels map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := name + utils.HashKey(flatten(labels)...)
	if counter, exists := m.counters[key]; exists {
		return counter.value.Load()
	}
	return 0
}

func flatten(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(labels)*2)
	for _, k := range keys {
		parts = append(parts, k, labels[k])
	}
	return parts
}

type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Add(delta float64) {
	for {
		old := f.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if f.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (f *atomicFloat) Store(value float64) {
	f.bits.Store(math.Float64bits(value))
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}

type memoryCounter struct {
	name   string
	labels map[string]string
	value  atomicFloat
}

func (c *memoryCounter) Inc()              { c.value.Add(1) }
func (c *memoryCounter) Add(value float64) { c.value.Add(value) }

type memoryGauge struct {
	name   string
	labels map[string]string
	value  atomicFloat
}

func (g *memoryGauge) Set(value float64) { g.value.Store(value) }
func (g *memoryGauge) Inc()              { g.value.Add(1) }
func (g *memoryGauge) Dec()              { g.value.Add(-1) }

type memoryHistogram struct{}

func (h *memoryHistogram) Observe(float64)            {}
func (h *memoryHistogram) ObserveDuration(time.Time) {}
