package sim

import "math/rand"

// PartitionedRNG owns the simulation's single seeded RNG and hands out
// per-component RNGs seeded deterministically from it. Per spec §4.1/§5,
// the simulator owns a single root RNG seeded at construction; component
// RNGs are seeded from it at insertion time via a draw on the root
// (rng.next_u64() in the spec's terms), never independently, so the whole
// run is reproducible from one seed as long as components are added in the
// same order.
type PartitionedRNG struct {
	root *rand.Rand
}

// NewPartitionedRNG creates a root RNG from the given seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{root: rand.New(rand.NewSource(seed))}
}

// Derive draws the next seed from the root RNG and returns a fresh,
// independently-seeded *rand.Rand for a newly-added component. Each call
// advances the root stream, so derivation order matters for determinism:
// components must be added in the same order across runs to reproduce
// results bit-for-bit (spec §5).
func (p *PartitionedRNG) Derive() *rand.Rand {
	seed := p.root.Int63()
	return rand.New(rand.NewSource(seed))
}

// Root returns the simulator's own RNG, used for dispatch-time draws
// (packet loss coin flips, jitter) that happen after a handler returns
// (spec §4.1 step 6, §5).
func (p *PartitionedRNG) Root() *rand.Rand { return p.root }
