package sim

import "testing"

func TestMetricsCollector_ShouldSampleGatesOnInterval(t *testing.T) {
	m := NewMetricsCollector(8)
	if !m.ShouldSample(0) {
		t.Fatal("first call should always sample")
	}
	s := NewSimulation(1)
	m.Sample(s, 0)
	if m.ShouldSample(metricsSampleIntervalUs - 1) {
		t.Fatal("should not sample before a full interval elapses")
	}
	if !m.ShouldSample(metricsSampleIntervalUs) {
		t.Fatal("should sample once a full interval has elapsed")
	}
}

func TestMetricsCollector_TracksEWMARate(t *testing.T) {
	m := NewMetricsCollector(8)
	s := NewSimulation(1)

	s.SuccessCount = 20
	s.NowUs = metricsSampleIntervalUs
	first := m.Sample(s, 0)
	if first.SuccessRps <= 0 {
		t.Fatalf("expected positive success rps, got %v", first.SuccessRps)
	}

	s.SuccessCount = 20 // no new successes this interval
	s.NowUs = 2 * metricsSampleIntervalUs
	second := m.Sample(s, 0)
	if second.SuccessRps >= first.SuccessRps {
		t.Fatalf("EWMA should decay toward zero when no new successes arrive: first=%v second=%v",
			first.SuccessRps, second.SuccessRps)
	}
}

func TestMetricsCollector_RingIsBounded(t *testing.T) {
	m := NewMetricsCollector(2)
	s := NewSimulation(1)
	for i := int64(1); i <= 5; i++ {
		s.NowUs = i * metricsSampleIntervalUs
		m.Sample(s, 0)
	}
	if got := len(m.Points()); got != 2 {
		t.Fatalf("ring len = %d, want bounded to 2", got)
	}
}
