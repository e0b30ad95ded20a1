package sim

import "container/heap"

// EventHeap implements a priority queue with deterministic ordering.
// Ordering: timestamp, then insertion sequence. The heap uses each event's
// Sequence as given; Simulation.Schedule assigns it monotonically, which is
// what makes equal-timestamp dispatch FIFO and reproducible.
type EventHeap struct {
	events []Event
}

// NewEventHeap creates a new, empty event heap.
func NewEventHeap() *EventHeap {
	h := &EventHeap{events: make([]Event, 0)}
	heap.Init(h)
	return h
}

// Len implements heap.Interface.
func (h *EventHeap) Len() int { return len(h.events) }

// Less implements heap.Interface with deterministic ordering.
func (h *EventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]

	if ei.Timestamp != ej.Timestamp {
		return ei.Timestamp < ej.Timestamp
	}
	return ei.Sequence < ej.Sequence
}

// Swap implements heap.Interface.
func (h *EventHeap) Swap(i, j int) { h.events[i], h.events[j] = h.events[j], h.events[i] }

// Push implements heap.Interface.
func (h *EventHeap) Push(x interface{}) { h.events = append(h.events, x.(Event)) }

// Pop implements heap.Interface.
func (h *EventHeap) Pop() interface{} {
	old := h.events
	n := len(old)
	item := old[n-1]
	h.events = old[:n-1]
	return item
}

// Schedule adds an event to the heap.
func (h *EventHeap) Schedule(e Event) { heap.Push(h, e) }

// PopNext removes and returns the earliest event, or false if the heap is empty.
func (h *EventHeap) PopNext() (Event, bool) {
	if h.Len() == 0 {
		return Event{}, false
	}
	return heap.Pop(h).(Event), true
}

// Peek returns the earliest event without removing it.
func (h *EventHeap) Peek() (Event, bool) {
	if h.Len() == 0 {
		return Event{}, false
	}
	return h.events[0], true
}
