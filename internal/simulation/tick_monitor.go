package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "driftpursuit/corridor/internal/simulation"

// TickMetricsSnapshot summarises observed frame durations.
type TickMetricsSnapshot struct {
	Samples int
	Average time.Duration
	Max     time.Duration
	Last    time.Duration
}

// AverageFPS derives the frames-per-second equivalent of the sampled tick duration.
func (s TickMetricsSnapshot) AverageFPS() float64 {
	if s.Average <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.Average)
}

// TickMonitor accumulates timing statistics for the simulation loop.
type TickMonitor struct {
	mu      sync.Mutex
	samples int
	total   time.Duration
	max     time.Duration
	last    time.Duration

	durations metric.Float64Histogram
	ticks     metric.Int64Counter
}

// NewTickMonitor constructs an empty monitor ready to collect samples.
func NewTickMonitor() *TickMonitor {
	return &TickMonitor{}
}

// NewInstrumentedTickMonitor also mirrors every sample to the global meter provider.
func NewInstrumentedTickMonitor() (*TickMonitor, error) {
	meter := otel.Meter(instrumentationName)
	durations, err := meter.Float64Histogram(
		"simulation.tick.duration",
		metric.WithDescription("Wall time spent advancing one frame"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("tick duration histogram: %w", err)
	}
	ticks, err := meter.Int64Counter(
		"simulation.ticks",
		metric.WithDescription("Frames advanced by the simulation loop"),
	)
	if err != nil {
		return nil, fmt.Errorf("tick counter: %w", err)
	}
	return &TickMonitor{durations: durations, ticks: ticks}, nil
}

// Wrap times every invocation of step.
func (m *TickMonitor) Wrap(step StepFunc) StepFunc {
	return func(dt time.Duration) {
		started := time.Now()
		step(dt)
		m.Observe(time.Since(started))
	}
}

// Observe records the duration of a completed simulation tick.
func (m *TickMonitor) Observe(duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.mu.Lock()
	//1.- Accumulate the sample count and aggregate duration for average calculations.
	m.samples++
	m.total += duration
	//2.- Track the worst-case tick so spikes stand out.
	if duration > m.max {
		m.max = duration
	}
	m.last = duration
	m.mu.Unlock()

	ctx := context.Background()
	if m.durations != nil {
		m.durations.Record(ctx, float64(duration)/float64(time.Millisecond))
	}
	if m.ticks != nil {
		m.ticks.Add(ctx, 1)
	}
}

// Snapshot returns a copy of the aggregated tick statistics.
func (m *TickMonitor) Snapshot() TickMetricsSnapshot {
	if m == nil {
		return TickMetricsSnapshot{}
	}
	m.mu.Lock()
	samples := m.samples
	total := m.total
	max := m.max
	last := m.last
	m.mu.Unlock()

	average := time.Duration(0)
	if samples > 0 {
		average = total / time.Duration(samples)
	}
	return TickMetricsSnapshot{Samples: samples, Average: average, Max: max, Last: last}
}

// Reset clears the accumulated statistics so a fresh run starts from scratch.
func (m *TickMonitor) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.samples = 0
	m.total = 0
	m.max = 0
	m.last = 0
	m.mu.Unlock()
}
