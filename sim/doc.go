// Package sim provides the core discrete-event simulation engine for
// topology-sim.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go: Event/EventKind and the ScheduleCmd contract components emit
//   - event_heap.go: the deterministic (time, sequence) priority queue
//   - simulator.go: Simulation, the event loop (Step/AdvanceUntil), link physics
//   - component.go: the Component capability set shared by Client/Server/LoadBalancer
//
// # Architecture
//
// The graph a user assembles is a set of Components connected by directed
// outbound references plus a Link table keyed on the canonical
// (min(a,b), max(a,b)) node pair. Components never call each other directly;
// all interaction is through events scheduled on the Simulation's EventHeap
// and dispatched one at a time by Step.
//
//   - client.go: open-loop arrival generator (deterministic interval
//     1e6/arrival_rate, jittered)
//   - server.go: bounded-concurrency queueing station with saturation penalty
//   - loadbalancer.go: target selection + retry budget state machine
//   - histogram.go: the [1µs, 60s] 3-significant-digit latency histogram
//   - metrics.go: the EWMA rate + windowed percentile Metrics Collector
//   - component.go: Inspector, the read-only health view passed into handlers
//   - topology/: YAML topology loading, kept as a sub-package so the core
//     has no file-format dependency of its own
package sim
