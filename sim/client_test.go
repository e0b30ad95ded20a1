package sim

import (
	"math/rand"
	"testing"
)

func TestClient_StaleGenerationNoOps(t *testing.T) {
	c := NewClient(1, ClientConfig{ArrivalRate: 10, TimeoutMs: 1000, GenerationID: 5})
	c.Seed(rand.New(rand.NewSource(1)))
	c.AddTarget(2)

	insp := healthSnapshot{1: true, 2: true}
	cmds := c.HandleEvent(Event{Kind: EventKind{Tag: KindGenerateNext, GenerationID: 4}}, insp)
	if cmds != nil {
		t.Fatalf("expected stale generation to no-op, got %+v", cmds)
	}
}

func TestClient_EmitsSelfTickAndArrivalWhenTargeted(t *testing.T) {
	c := NewClient(1, ClientConfig{ArrivalRate: 10, TimeoutMs: 1000})
	c.Seed(rand.New(rand.NewSource(1)))
	c.AddTarget(2)

	insp := healthSnapshot{1: true, 2: true}
	cmds := c.HandleEvent(Event{Timestamp: 100, Kind: EventKind{Tag: KindGenerateNext}}, insp)
	if len(cmds) != 2 {
		t.Fatalf("expected self-tick + arrival, got %d commands", len(cmds))
	}

	var sawSelfTick, sawArrival bool
	for _, cmd := range cmds {
		switch cmd.Kind.Tag {
		case KindGenerateNext:
			sawSelfTick = true
			if cmd.Target != 1 {
				t.Fatalf("self-tick should target self, got %v", cmd.Target)
			}
		case KindArrival:
			sawArrival = true
			if cmd.Target != 2 {
				t.Fatalf("arrival should target configured target, got %v", cmd.Target)
			}
			if len(cmd.Kind.Path) != 1 || cmd.Kind.Path[0] != 1 {
				t.Fatalf("arrival path should start as [self], got %+v", cmd.Kind.Path)
			}
		}
	}
	if !sawSelfTick || !sawArrival {
		t.Fatalf("missing expected command kinds: selfTick=%v arrival=%v", sawSelfTick, sawArrival)
	}
}

func TestClient_NoArrivalWithoutTarget(t *testing.T) {
	c := NewClient(1, ClientConfig{ArrivalRate: 10, TimeoutMs: 1000})
	c.Seed(rand.New(rand.NewSource(1)))

	insp := healthSnapshot{1: true}
	cmds := c.HandleEvent(Event{Timestamp: 100, Kind: EventKind{Tag: KindGenerateNext}}, insp)
	if len(cmds) != 1 {
		t.Fatalf("expected only the self-tick without a target, got %+v", cmds)
	}
}

func TestClient_ApplyConfigSanitizesNegativeRate(t *testing.T) {
	c := NewClient(1, ClientConfig{ArrivalRate: 10, TimeoutMs: 1000})
	c.ApplyConfig([]byte(`{"arrival_rate": -5, "timeout": 1000}`))
	if c.config.ArrivalRate != 0 {
		t.Fatalf("ArrivalRate = %v, want clamped to 0", c.config.ArrivalRate)
	}
}
