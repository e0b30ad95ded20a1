package sim

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeId is an opaque identifier assigned monotonically by the driver.
type NodeId uint32

func (n NodeId) String() string { return fmt.Sprintf("node-%d", uint32(n)) }

// RequestId is a 128-bit identifier constructed as
// [origin_node_id:32 | random_salt:32 | per-client-counter:64].
// Unique within a single simulation run with overwhelming probability.
type RequestId struct {
	Origin  NodeId
	Salt    uint32
	Counter uint64
}

// NewRequestId builds a RequestId for a request emitted by origin, using a
// fresh random salt and the client's own monotonic counter. The salt is
// intentionally drawn from a process-wide random source (github.com/google/uuid),
// not the simulation's seeded RNG stream: per spec §3 the requirement is
// uniqueness within a run, not cross-run reproducibility of the ID's bit
// pattern, so the salt does not need to participate in the deterministic
// replay path (see DESIGN.md).
func NewRequestId(origin NodeId, counter uint64) RequestId {
	id := uuid.New()
	salt := uint32(id[0])<<24 | uint32(id[1])<<16 | uint32(id[2])<<8 | uint32(id[3])
	return RequestId{Origin: origin, Salt: salt, Counter: counter}
}

func (r RequestId) String() string {
	return fmt.Sprintf("%08x-%08x-%016x", uint32(r.Origin), r.Salt, r.Counter)
}
