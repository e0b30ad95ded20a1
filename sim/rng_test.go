package sim

import "testing"

func TestPartitionedRNG_DeriveIsOrderDependentButReproducible(t *testing.T) {
	a := NewPartitionedRNG(7)
	b := NewPartitionedRNG(7)

	a1, a2 := a.Derive(), a.Derive()
	b1, b2 := b.Derive(), b.Derive()

	x1, x2 := a1.Int63(), a2.Int63()
	y1, y2 := b1.Int63(), b2.Int63()
	if x1 != y1 || x2 != y2 {
		t.Fatalf("same seed + same derivation order must reproduce identical streams")
	}
	if x1 == x2 {
		t.Fatalf("first and second derived streams must differ, so derivation order matters")
	}
}

func TestPartitionedRNG_RootIsIndependentOfDerived(t *testing.T) {
	r := NewPartitionedRNG(7)
	root := r.Root()
	derived := r.Derive()
	if root.Int63() == derived.Int63() {
		t.Skip("draws happened to coincide; not a reliable signal on its own")
	}
}
