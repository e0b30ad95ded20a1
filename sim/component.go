package sim

import (
	"encoding/json"
	"math/rand"
)

// ComponentKind identifies one of the closed set of component variants
// (spec §9: "variants are closed to {Client, Server, LoadBalancer}").
type ComponentKind string

const (
	KindClient      ComponentKind = "Client"
	KindServer      ComponentKind = "Server"
	KindLoadBalancer ComponentKind = "LoadBalancer"
)

// Component is the capability set every node in the topology graph
// implements: receive events, expose/apply configuration, expose a
// display snapshot, expose health, manage outbound targets, and be
// seedable from the simulation's root RNG (spec §3, §9).
//
// Implementations never reach into other components directly; all
// cross-component effects are expressed as ScheduleCmd values returned
// from HandleEvent/ApplyConfig and applied by the Simulation kernel.
type Component interface {
	// ID returns this component's node id.
	ID() NodeId

	// Kind returns the component's registry kind.
	Kind() ComponentKind

	// HandleEvent processes one event addressed to this component and
	// returns the schedule commands it wishes to emit. insp is a
	// read-only snapshot of all components' health, valid only for the
	// duration of this call (spec §4.1 step 4, §9).
	HandleEvent(ev Event, insp Inspector) []ScheduleCmd

	// EncodeConfig returns the component's current configuration as the
	// JSON shape from spec §6.
	EncodeConfig() json.RawMessage

	// ApplyConfig hot-reconfigures the component from the spec §6 JSON
	// shape. Invalid JSON is a no-op returning a nil slice (spec §7).
	ApplyConfig(raw json.RawMessage) []ScheduleCmd

	// Snapshot returns the read-only display snapshot JSON from spec §6.
	Snapshot() json.RawMessage

	// IsHealthy reports whether the component is currently eligible to
	// serve/route traffic (used to build the per-step Inspector view).
	IsHealthy() bool

	// Targets returns this component's outbound target node ids, in
	// registration order (order matters for RoundRobin/LeastConnections
	// tie-breaking, spec §9).
	Targets() []NodeId

	// AddTarget registers an outbound target, if not already present.
	AddTarget(id NodeId)

	// RemoveTarget purges an outbound target and any bookkeeping keyed by it.
	RemoveTarget(id NodeId)

	// Seed derives this component's private RNG from the simulation's
	// root RNG at insertion time (spec §4.1, §5).
	Seed(rng *rand.Rand)
}

// Inspector is the read-only health view passed into HandleEvent during
// dispatch, preventing a handler from re-entrantly mutating other
// components (spec §4.1 step 4, §9).
type Inspector interface {
	IsNodeHealthy(id NodeId) bool
}

// healthSnapshot is the Simulation's concrete Inspector implementation: a
// plain map captured once per Step before the handler runs.
type healthSnapshot map[NodeId]bool

func (h healthSnapshot) IsNodeHealthy(id NodeId) bool {
	healthy, ok := h[id]
	return ok && healthy
}

// ComponentKindInfo describes one entry in the component kind registry,
// used both for construction dispatch and for UI palette enumeration
// (spec §9) — the palette widget itself is out of scope, but the
// enumerable registry it reads from is core surface.
type ComponentKindInfo struct {
	Kind        ComponentKind
	DisplayName string
}

// Registry lists the closed set of component kinds, in a stable order
// suitable for palette enumeration.
func Registry() []ComponentKindInfo {
	return []ComponentKindInfo{
		{Kind: KindClient, DisplayName: "Client"},
		{Kind: KindServer, DisplayName: "Server"},
		{Kind: KindLoadBalancer, DisplayName: "Load Balancer"},
	}
}
