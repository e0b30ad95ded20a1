package sim

import (
	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

const (
	histogramMinUs       = 1
	histogramMaxUs       = 60 * 1000 * 1000
	histogramSigFigures  = 3
	latencyRingWindowUs  = 60 * 1000 * 1000
)

// LatencyHistogram wraps an HdrHistogram covering [1µs, 60s] at 3
// significant digits (spec §3), plus a bounded ring of raw (time, elapsed)
// samples over the trailing 60 seconds of virtual time so that
// GetPercentile can answer an exact, non-approximate query over a
// caller-chosen window (spec §4.5) in addition to the cumulative
// HdrHistogram query.
type LatencyHistogram struct {
	hist *hdrhistogram.Histogram
	ring []latencySample
}

type latencySample struct {
	atUs      int64
	elapsedUs int64
}

// NewLatencyHistogram creates an empty histogram and sample ring.
func NewLatencyHistogram() *LatencyHistogram {
	return &LatencyHistogram{
		hist: hdrhistogram.New(histogramMinUs, histogramMaxUs, histogramSigFigures),
	}
}

// Record adds one terminal success's elapsed latency, observed at virtual
// time nowUs, to both the cumulative histogram and the windowed ring.
func (l *LatencyHistogram) Record(nowUs, elapsedUs int64) {
	clamped := elapsedUs
	if clamped < histogramMinUs {
		clamped = histogramMinUs
	}
	if clamped > histogramMaxUs {
		clamped = histogramMaxUs
	}
	_ = l.hist.RecordValue(clamped)
	l.ring = append(l.ring, latencySample{atUs: nowUs, elapsedUs: elapsedUs})
	l.trim(nowUs)
}

// trim drops ring entries older than the trailing 60s window relative to now.
func (l *LatencyHistogram) trim(nowUs int64) {
	cutoff := nowUs - latencyRingWindowUs
	i := 0
	for i < len(l.ring) && l.ring[i].atUs < cutoff {
		i++
	}
	if i > 0 {
		l.ring = l.ring[i:]
	}
}

// Percentile returns the cumulative-histogram value at percentile p
// (0..100) in microseconds. windowUs, if > 0, restricts the query to the
// sample ring instead of the full cumulative histogram — an exact
// nearest-rank computation rather than HdrHistogram's bucketed estimate
// (spec §4.5: "window size is advisory for display" — callers that want
// the exact windowed figure pass windowUs; callers happy with the
// cumulative approximation pass 0).
func (l *LatencyHistogram) Percentile(p float64, windowUs int64, nowUs int64) float64 {
	if windowUs <= 0 {
		return float64(l.hist.ValueAtQuantile(p))
	}
	cutoff := nowUs - windowUs
	vals := make([]float64, 0, len(l.ring))
	for _, s := range l.ring {
		if s.atUs >= cutoff {
			vals = append(vals, float64(s.elapsedUs))
		}
	}
	return quantileNearestRank(vals, p/100.0)
}

// Reset clears both the cumulative histogram and the sample ring, leaving
// topology untouched (spec §6 reset_stats).
func (l *LatencyHistogram) Reset() {
	l.hist.Reset()
	l.ring = l.ring[:0]
}
