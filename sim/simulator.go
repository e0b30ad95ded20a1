package sim

import (
	"encoding/json"
)

// Simulation owns the components, links, event queue, RNG, and aggregate
// counters for one simulation run (spec §3 "Simulation state").
type Simulation struct {
	Seed int64

	NowUs        int64
	SuccessCount int64
	FailureCount int64

	Histogram *LatencyHistogram

	components map[NodeId]Component
	order      []NodeId // insertion order, for stable enumeration
	links      *LinkTable
	queue      *EventHeap
	rng        *PartitionedRNG
	sequence   uint64
}

// NewSimulation creates a Simulation seeded deterministically from seed
// (driver operation `new(seed)`, spec §6).
func NewSimulation(seed int64) *Simulation {
	return &Simulation{
		Seed:       seed,
		Histogram:  NewLatencyHistogram(),
		components: make(map[NodeId]Component),
		links:      NewLinkTable(),
		queue:      NewEventHeap(),
		rng:        NewPartitionedRNG(seed),
	}
}

// AddComponent inserts c under id and seeds its private RNG from the
// kernel's root RNG (spec §6 `add_component`, §4.1, §5). Callers add
// components in the order they want reproduced across runs, since RNG
// derivation is order-dependent.
func (s *Simulation) AddComponent(c Component) {
	id := c.ID()
	if _, exists := s.components[id]; !exists {
		s.order = append(s.order, id)
	}
	c.Seed(s.rng.Derive())
	s.components[id] = c
}

// Component returns the component registered under id, if any.
func (s *Simulation) Component(id NodeId) (Component, bool) {
	c, ok := s.components[id]
	return c, ok
}

// Components returns all registered components in insertion order.
func (s *Simulation) Components() []Component {
	out := make([]Component, 0, len(s.order))
	for _, id := range s.order {
		if c, ok := s.components[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// RemoveNode purges the component, its outbound references from every
// peer, and all links incident to it (spec §6 `remove_node`, §3
// "Lifecycle"). Events already queued against the removed node silently
// no-op on dispatch since the target lookup then fails.
func (s *Simulation) RemoveNode(id NodeId) {
	delete(s.components, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for _, c := range s.components {
		c.RemoveTarget(id)
	}
	s.links.Remove(id)
}

// Connect registers from's outbound reference to to and stores the
// canonical link entry between them (spec §6 `connect`).
func (s *Simulation) Connect(from, to NodeId, link EdgeConfig) {
	if c, ok := s.components[from]; ok {
		c.AddTarget(to)
	}
	s.links.Set(from, to, link)
}

// ApplyConfig hot-reconfigures a component and schedules whatever
// ScheduleCmds it returns (spec §6 `apply_config`). Invalid JSON, or an
// unknown target id, is a no-op.
func (s *Simulation) ApplyConfig(id NodeId, raw json.RawMessage) {
	c, ok := s.components[id]
	if !ok {
		return
	}
	cmds := c.ApplyConfig(raw)
	s.enqueueCmds(id, cmds)
}

// Schedule inserts a raw event directly onto the queue (spec §6
// `schedule`, used by the driver for initial kick-offs like a Client's
// first GenerateNext).
func (s *Simulation) Schedule(atUs int64, target NodeId, kind EventKind) {
	s.sequence++
	s.queue.Schedule(Event{
		Timestamp:  atUs,
		Sequence:   s.sequence,
		TargetNode: target,
		Kind:       kind,
	})
}

// healthSnapshotNow captures is_healthy() for every registered component,
// for use as the read-only Inspector passed into a single handler
// invocation (spec §4.1 step 4).
func (s *Simulation) healthSnapshotNow() healthSnapshot {
	h := make(healthSnapshot, len(s.components))
	for id, c := range s.components {
		h[id] = c.IsHealthy()
	}
	return h
}

// Step dispatches the single earliest-queued event and returns false when
// the queue is empty (spec §4.1, §6 `step`).
func (s *Simulation) Step() bool {
	ev, ok := s.queue.PopNext()
	if !ok {
		return false
	}
	s.NowUs = ev.Timestamp

	if ev.Kind.Tag == KindResponse && len(ev.Kind.Path) == 1 {
		s.recordTerminal(ev)
	}

	insp := s.healthSnapshotNow()

	c, ok := s.components[ev.TargetNode]
	if !ok {
		return true
	}

	cmds := c.HandleEvent(ev, insp)
	s.enqueueCmds(ev.TargetNode, cmds)
	return true
}

// recordTerminal applies the counter/histogram bookkeeping for a response
// that has walked all the way back to its originating Client (spec §4.1
// step 3, §7 failure taxonomy).
func (s *Simulation) recordTerminal(ev Event) {
	elapsed := s.NowUs - ev.Kind.StartTime
	switch {
	case elapsed > ev.Kind.Timeout:
		s.FailureCount++
	case ev.Kind.Success:
		s.SuccessCount++
		s.Histogram.Record(s.NowUs, elapsed)
	default:
		s.FailureCount++
	}
}

// enqueueCmds applies link physics to each command whose target differs
// from the handler node, drops packets per edge packet_loss_rate
// (incrementing FailureCount immediately), and inserts survivors onto the
// queue at now + delay (spec §4.1 steps 6-7).
func (s *Simulation) enqueueCmds(from NodeId, cmds []ScheduleCmd) {
	for _, cmd := range cmds {
		delay := cmd.DelayUs

		isPathHop := cmd.Kind.Tag == KindArrival || cmd.Kind.Tag == KindResponse
		if isPathHop && cmd.Target != from {
			linkDelay, dropped := s.links.Apply(from, cmd.Target, s.rng.Root())
			if dropped {
				s.FailureCount++
				continue
			}
			delay += linkDelay
		}

		s.Schedule(s.NowUs+int64(delay), cmd.Target, cmd.Kind)
	}
}

// AdvanceUntil repeatedly steps while the next queued event is at or
// before tUs, then sets now to tUs (spec §6 `advance_until`).
func (s *Simulation) AdvanceUntil(tUs int64) {
	for {
		ev, ok := s.queue.Peek()
		if !ok || ev.Timestamp > tUs {
			break
		}
		s.Step()
	}
	if s.NowUs < tUs {
		s.NowUs = tUs
	}
}

// GetPercentile reads the histogram value at percentile p (0..100),
// optionally restricted to the trailing windowUs of virtual time (spec §6
// `get_percentile`).
func (s *Simulation) GetPercentile(p float64, windowUs int64) float64 {
	return s.Histogram.Percentile(p, windowUs, s.NowUs)
}

// ResetStats zeroes the counters and histogram, preserving topology (spec
// §6 `reset_stats`).
func (s *Simulation) ResetStats() {
	s.SuccessCount = 0
	s.FailureCount = 0
	s.Histogram.Reset()
}
