package smt

import (
	"testing"

	"github.com/muridata/zkstate/pkg/hashing"
)

func TestEmptyTreeRootIsDeterministic(t *testing.T) {
	a := New(8, hashing.SHA256Hasher{})
	b := New(8, hashing.SHA256Hasher{})
	if a.Root() != b.Root() {
		t.Fatalf("two empty trees of the same depth must share a root")
	}
}

func TestInsertChangesRoot(t *testing.T) {
	tree := New(8, hashing.SHA256Hasher{})
	before := tree.Root()
	tree.Insert([]byte("key"), []byte("value"))
	after := tree.Root()
	if before == after {
		t.Fatalf("inserting a new key must change the root")
	}
}

func TestInsertGetRoundTrip(t *testing.T) {
	tree := New(8, hashing.SHA256Hasher{})
	tree.Insert([]byte("key"), []byte("value"))

	got, ok := tree.Get([]byte("key"))
	if !ok {
		t.Fatalf("Get(key) returned ok=false after Insert")
	}
	if string(got) != "value" {
		t.Fatalf("Get(key) = %q, want value", got)
	}

	if _, ok := tree.Get([]byte("missing")); ok {
		t.Fatalf("Get(missing) returned ok=true, want false")
	}
}

func TestDeleteRestoresEmptyRoot(t *testing.T) {
	tree := New(8, hashing.SHA256Hasher{})
	empty := tree.Root()

	tree.Insert([]byte("key"), []byte("value"))
	tree.Delete([]byte("key"))

	if tree.Root() != empty {
		t.Fatalf("deleting the only leaf must restore the empty-tree root")
	}
	if tree.NumLeaves() != 0 {
		t.Fatalf("NumLeaves() = %d, want 0 after delete", tree.NumLeaves())
	}
}

func TestDeleteOfAbsentKeyIsNoop(t *testing.T) {
	tree := New(8, hashing.SHA256Hasher{})
	before := tree.Root()
	w := tree.Delete([]byte("never-inserted"))
	if tree.Root() != before {
		t.Fatalf("deleting an absent key must not change the root")
	}
	if !w.IsNoop() {
		t.Fatalf("witness for deleting an absent key must report IsNoop() = true")
	}
}

func TestUpdateWitnessChainsOldAndNewRoot(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := New(8, hasher)

	oldRoot := tree.Root()
	w := tree.Insert([]byte("key"), []byte("value"))
	newRoot := tree.Root()

	if got := w.ComputeOldRoot(hasher); got != oldRoot {
		t.Fatalf("ComputeOldRoot() = %v, want %v", got, oldRoot)
	}
	if got := w.ComputeNewRoot(hasher); got != newRoot {
		t.Fatalf("ComputeNewRoot() = %v, want %v", got, newRoot)
	}
}

func TestGetProofVerifiesAgainstRoot(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := New(8, hasher)
	tree.Insert([]byte("a"), []byte("1"))
	tree.Insert([]byte("b"), []byte("2"))
	tree.Insert([]byte("c"), []byte("3"))

	proof := tree.GetProof([]byte("b"))
	if !proof.Verify(tree.Root(), hasher) {
		t.Fatalf("proof for an existing key failed to verify against the current root")
	}

	nonMember := tree.GetProof([]byte("does-not-exist"))
	if nonMember.Value != nil {
		t.Fatalf("expected a non-membership proof to carry a nil value")
	}
	if !nonMember.Verify(tree.Root(), hasher) {
		t.Fatalf("non-membership proof failed to verify")
	}
}

func TestApplyBatchAppliesInOrder(t *testing.T) {
	tree := New(8, hashing.SHA256Hasher{})
	witnesses, err := tree.ApplyBatch([]Op{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
		{Key: []byte("a"), Delete: true},
	})
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	if len(witnesses) != 3 {
		t.Fatalf("len(witnesses) = %d, want 3", len(witnesses))
	}
	if _, ok := tree.Get([]byte("a")); ok {
		t.Fatalf("key 'a' should have been deleted by the batch's final op")
	}
	got, ok := tree.Get([]byte("b"))
	if !ok || string(got) != "2" {
		t.Fatalf("Get(b) = (%q, %v), want (2, true)", got, ok)
	}
}

func TestApplyBatchChainsWitnessRoots(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := New(8, hasher)
	start := tree.Root()

	witnesses, err := tree.ApplyBatch([]Op{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte("2")},
	})
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	running := start
	for i, w := range witnesses {
		if got := w.ComputeOldRoot(hasher); got != running {
			t.Fatalf("witness %d old root %v does not chain from %v", i, got, running)
		}
		running = w.ComputeNewRoot(hasher)
	}
	if running != tree.Root() {
		t.Fatalf("chained witness roots end at %v, want current root %v", running, tree.Root())
	}
}

func TestInsertOverwriteSetsOldValue(t *testing.T) {
	tree := New(8, hashing.SHA256Hasher{})
	tree.Insert([]byte("key"), []byte("first"))
	w := tree.Insert([]byte("key"), []byte("second"))

	if string(w.OldValue) != "first" {
		t.Fatalf("OldValue = %q, want first", w.OldValue)
	}
	if string(w.NewValue) != "second" {
		t.Fatalf("NewValue = %q, want second", w.NewValue)
	}
}

func TestGenerationIncrementsOnMutation(t *testing.T) {
	tree := New(8, hashing.SHA256Hasher{})
	g0 := tree.Generation()
	tree.Insert([]byte("key"), []byte("value"))
	g1 := tree.Generation()
	if g1 <= g0 {
		t.Fatalf("Generation() did not increase after Insert: %d -> %d", g0, g1)
	}

	tree.Delete([]byte("never-there"))
	g2 := tree.Generation()
	if g2 != g1 {
		t.Fatalf("Generation() must not change on a no-op delete: %d -> %d", g1, g2)
	}
}

func TestNewDefaultUsesDefaultDepthAndHasher(t *testing.T) {
	tree := NewDefault()
	if tree.Depth() != DefaultDepth {
		t.Fatalf("Depth() = %d, want %d", tree.Depth(), DefaultDepth)
	}
	if _, ok := tree.Hasher().(hashing.SHA256Hasher); !ok {
		t.Fatalf("NewDefault() hasher = %T, want hashing.SHA256Hasher", tree.Hasher())
	}
}
