package sim

const (
	metricsSampleIntervalUs = 200 * 1000 // 200ms virtual, spec §4.5
	metricsEWMAAlpha        = 0.1
)

// MetricPoint is one sample taken by the MetricsCollector (spec §4.5).
type MetricPoint struct {
	SimTimeUs  int64
	P99Ms      float64
	SuccessRps float64
	FailureRps float64
}

// MetricsCollector is external to Simulation and polled by the driver. It
// tracks EWMA-smoothed success/failure rates and keeps a bounded ring of
// MetricPoint samples for a time-series display.
//
// Not part of the deterministic replay path itself (it is read-only over
// Simulation state), but its own EWMA state evolves each time Sample is
// called, so the *sequence* of Sample calls must match across runs for the
// displayed series to match — the underlying counters it reads always
// match regardless (spec §5 determinism covers Simulation, not the UI's
// polling cadence).
type MetricsCollector struct {
	ring []MetricPoint

	lastSampleUs     int64
	lastSuccessCount int64
	lastFailureCount int64

	displayedSuccessRps float64
	displayedFailureRps float64
	initialized         bool

	maxRingLen int
}

// NewMetricsCollector creates a collector with a bounded ring capacity.
func NewMetricsCollector(maxRingLen int) *MetricsCollector {
	if maxRingLen <= 0 {
		maxRingLen = 1024
	}
	return &MetricsCollector{maxRingLen: maxRingLen}
}

// ShouldSample reports whether at least one sample interval (200ms virtual)
// has elapsed since the last sample.
func (m *MetricsCollector) ShouldSample(nowUs int64) bool {
	return !m.initialized || nowUs-m.lastSampleUs >= metricsSampleIntervalUs
}

// Sample takes one reading from sim at the given window size (0 = use the
// cumulative histogram, >0 = exact windowed percentile) and records it.
func (m *MetricsCollector) Sample(sim *Simulation, windowUs int64) MetricPoint {
	now := sim.NowUs
	deltaT := now - m.lastSampleUs
	if !m.initialized {
		deltaT = metricsSampleIntervalUs
	}
	deltaTs := float64(deltaT) / 1e6
	if deltaTs <= 0 {
		deltaTs = float64(metricsSampleIntervalUs) / 1e6
	}

	deltaSuccess := sim.SuccessCount - m.lastSuccessCount
	deltaFailure := sim.FailureCount - m.lastFailureCount

	rawSuccessRps := float64(deltaSuccess) / deltaTs
	rawFailureRps := float64(deltaFailure) / deltaTs

	if !m.initialized {
		m.displayedSuccessRps = rawSuccessRps
		m.displayedFailureRps = rawFailureRps
		m.initialized = true
	} else {
		m.displayedSuccessRps = (1-metricsEWMAAlpha)*m.displayedSuccessRps + metricsEWMAAlpha*rawSuccessRps
		m.displayedFailureRps = (1-metricsEWMAAlpha)*m.displayedFailureRps + metricsEWMAAlpha*rawFailureRps
	}

	p99 := sim.Histogram.Percentile(99, windowUs, now) / 1000.0 // us -> ms

	point := MetricPoint{
		SimTimeUs:  now,
		P99Ms:      p99,
		SuccessRps: m.displayedSuccessRps,
		FailureRps: m.displayedFailureRps,
	}

	m.ring = append(m.ring, point)
	if len(m.ring) > m.maxRingLen {
		m.ring = m.ring[len(m.ring)-m.maxRingLen:]
	}

	m.lastSampleUs = now
	m.lastSuccessCount = sim.SuccessCount
	m.lastFailureCount = sim.FailureCount

	return point
}

// Points returns the current ring, oldest first. The returned slice is a
// copy; mutating it does not affect the collector.
func (m *MetricsCollector) Points() []MetricPoint {
	out := make([]MetricPoint, len(m.ring))
	copy(out, m.ring)
	return out
}
