package sim

import "math/rand"

// EdgeConfig describes one direction of a link: fixed latency, uniform
// jitter added on top of it, and the probability a command crossing this
// edge is dropped in transit.
type EdgeConfig struct {
	LatencyUs      uint64  `json:"latency_us" yaml:"latency_us"`
	JitterUs       uint64  `json:"jitter_us" yaml:"jitter_us"`
	PacketLossRate float32 `json:"packet_loss_rate" yaml:"packet_loss_rate"`
}

// Link holds the two directional EdgeConfigs for a canonical node pair.
// MinToMax applies to traffic flowing from the lower NodeId to the higher
// one; MaxToMin applies to the reverse direction.
type Link struct {
	MinToMax EdgeConfig
	MaxToMin EdgeConfig
}

// linkKey returns the canonical (min(a,b), max(a,b)) key for a node pair.
func linkKey(a, b NodeId) (NodeId, NodeId) {
	if a <= b {
		return a, b
	}
	return b, a
}

// LinkTable stores bidirectional per-edge latency/jitter/loss keyed by the
// canonical node pair. Missing entries default to zero-latency,
// zero-jitter, zero-loss (spec §3).
type LinkTable struct {
	links map[NodeId]map[NodeId]*Link
}

// NewLinkTable creates an empty link table.
func NewLinkTable() *LinkTable {
	return &LinkTable{links: make(map[NodeId]map[NodeId]*Link)}
}

// Set registers (or replaces) the link between a and b. fwd is applied to
// traffic traveling from->to as passed; the table derives the reverse
// direction's storage internally via the canonical key.
func (lt *LinkTable) Set(from, to NodeId, fwd EdgeConfig) {
	lo, hi := linkKey(from, to)
	m, ok := lt.links[lo]
	if !ok {
		m = make(map[NodeId]*Link)
		lt.links[lo] = m
	}
	link, ok := m[hi]
	if !ok {
		link = &Link{}
		m[hi] = link
	}
	if from <= to {
		link.MinToMax = fwd
	} else {
		link.MaxToMin = fwd
	}
}

// Get returns the EdgeConfig to apply to traffic traveling from->to. Missing
// links return the zero-value EdgeConfig (no latency, no jitter, no loss).
func (lt *LinkTable) Get(from, to NodeId) EdgeConfig {
	lo, hi := linkKey(from, to)
	m, ok := lt.links[lo]
	if !ok {
		return EdgeConfig{}
	}
	link, ok := m[hi]
	if !ok {
		return EdgeConfig{}
	}
	if from <= to {
		return link.MinToMax
	}
	return link.MaxToMin
}

// Remove purges all links incident to node id.
func (lt *LinkTable) Remove(id NodeId) {
	delete(lt.links, id)
	for _, m := range lt.links {
		delete(m, id)
	}
}

// Apply consults the link from->to and returns the total extra delay to add
// (latency + uniform jitter) and whether the command should be dropped.
func (lt *LinkTable) Apply(from, to NodeId, rng *rand.Rand) (delayUs uint64, dropped bool) {
	edge := lt.Get(from, to)
	if edge.PacketLossRate > 0 && rng.Float32() < edge.PacketLossRate {
		return 0, true
	}
	delayUs = edge.LatencyUs
	if edge.JitterUs > 0 {
		delayUs += uint64(rng.Int63n(int64(edge.JitterUs) + 1))
	}
	return delayUs, false
}
