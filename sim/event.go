package sim

// EventKindTag identifies the variant carried by an Event, used for
// dispatch switches. It plays no part in heap ordering.
type EventKindTag int

const (
	KindGenerateNext EventKindTag = iota
	KindArrival
	KindProcessComplete
	KindResponse
	KindMaintenanceComplete
)

// EventKind is the tagged union of payloads an Event can carry (spec §3).
// Only the fields of the variant selected by Tag are meaningful.
type EventKind struct {
	Tag EventKindTag

	// GenerateNext
	GenerationID uint64

	// Arrival / ProcessComplete / Response (shared request-path fields)
	RequestID RequestId
	Path      []NodeId
	StartTime int64
	Timeout   int64

	// ProcessComplete / Response
	Success bool
}

// Event is a single scheduled occurrence: a virtual time, a target node,
// and a payload. Ordering is by Timestamp ascending, with FIFO tie-break on
// equal timestamps via Sequence (spec §3, §4.1).
type Event struct {
	Timestamp  int64
	Sequence   uint64
	TargetNode NodeId
	Kind       EventKind
}

// ScheduleCmd is what a component handler returns: an instruction for the
// kernel to enqueue a follow-on event delay_us from now, at the given
// target, carrying the given kind. The kernel (not the component) applies
// link physics and inserts the command into the EventHeap (spec §4.1 step 6-7).
type ScheduleCmd struct {
	DelayUs uint64
	Target  NodeId
	Kind    EventKind
}
