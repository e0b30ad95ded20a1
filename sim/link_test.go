package sim

import (
	"math/rand"
	"testing"
)

func TestLinkTable_DefaultsToZeroForUnknownPair(t *testing.T) {
	lt := NewLinkTable()
	edge := lt.Get(1, 2)
	if edge.LatencyUs != 0 || edge.JitterUs != 0 || edge.PacketLossRate != 0 {
		t.Fatalf("expected zero-value edge, got %+v", edge)
	}
}

func TestLinkTable_DirectionalStorageUnderCanonicalKey(t *testing.T) {
	lt := NewLinkTable()
	lt.Set(1, 2, EdgeConfig{LatencyUs: 100})
	lt.Set(2, 1, EdgeConfig{LatencyUs: 200})

	if got := lt.Get(1, 2).LatencyUs; got != 100 {
		t.Fatalf("1->2 latency = %d, want 100", got)
	}
	if got := lt.Get(2, 1).LatencyUs; got != 200 {
		t.Fatalf("2->1 latency = %d, want 200", got)
	}
}

func TestLinkTable_RemovePurgesIncidentLinks(t *testing.T) {
	lt := NewLinkTable()
	lt.Set(1, 2, EdgeConfig{LatencyUs: 100})
	lt.Set(2, 3, EdgeConfig{LatencyUs: 50})
	lt.Remove(2)

	if got := lt.Get(1, 2).LatencyUs; got != 0 {
		t.Fatalf("expected link 1-2 purged, got latency %d", got)
	}
	if got := lt.Get(2, 3).LatencyUs; got != 0 {
		t.Fatalf("expected link 2-3 purged, got latency %d", got)
	}
}

func TestLinkTable_ApplyAddsJitterWithinBounds(t *testing.T) {
	lt := NewLinkTable()
	lt.Set(1, 2, EdgeConfig{LatencyUs: 100, JitterUs: 10})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		delay, dropped := lt.Apply(1, 2, rng)
		if dropped {
			t.Fatal("did not expect a drop with zero loss rate")
		}
		if delay < 100 || delay > 110 {
			t.Fatalf("delay %d out of expected [100,110] range", delay)
		}
	}
}

func TestLinkTable_ApplyDropsAtFullLossRate(t *testing.T) {
	lt := NewLinkTable()
	lt.Set(1, 2, EdgeConfig{LatencyUs: 100, PacketLossRate: 1.0})
	rng := rand.New(rand.NewSource(1))

	_, dropped := lt.Apply(1, 2, rng)
	if !dropped {
		t.Fatal("expected a drop at packet_loss_rate=1.0")
	}
}
