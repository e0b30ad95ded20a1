package sim

import "testing"

func TestLatencyHistogram_PercentileOrdering(t *testing.T) {
	h := NewLatencyHistogram()
	for _, v := range []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100} {
		h.Record(v, v)
	}
	p50 := h.Percentile(50, 0, 100)
	p99 := h.Percentile(99, 0, 100)
	if p50 <= 0 {
		t.Fatalf("p50 = %v, want > 0", p50)
	}
	if p99 < p50 {
		t.Fatalf("p99 (%v) should be >= p50 (%v)", p99, p50)
	}
}

func TestLatencyHistogram_WindowedPercentileExcludesOldSamples(t *testing.T) {
	h := NewLatencyHistogram()
	h.Record(0, 5) // far in the past relative to later queries
	h.Record(60_000_000, 1000)

	// At now = 60_100_000 with a 1s window, only the second sample (at
	// 60_000_000) is in range.
	got := h.Percentile(50, 1_000_000, 60_100_000)
	if got != 1000 {
		t.Fatalf("windowed p50 = %v, want 1000 (only in-window sample)", got)
	}
}

func TestLatencyHistogram_ResetClearsState(t *testing.T) {
	h := NewLatencyHistogram()
	h.Record(0, 100)
	h.Reset()
	if len(h.ring) != 0 {
		t.Fatalf("expected ring cleared after reset, len=%d", len(h.ring))
	}
}
