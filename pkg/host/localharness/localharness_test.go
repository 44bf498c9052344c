package localharness

import (
	"context"
	"testing"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/smt"
	"github.com/muridata/zkstate/pkg/transition"
)

func testInput(t *testing.T) (transition.TransitionInput, hashing.Hash) {
	t.Helper()
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	prevRoot := tree.Root()
	w := tree.Insert([]byte("key"), []byte("value"))
	input := transition.NewTransitionInput(prevRoot, []byte("pub"), nil, []smt.UpdateWitness{w}, []transition.VerifiableOperation{
		{OpType: transition.OpSet, Key: []byte("key"), WitnessIndex: 0},
	})
	return input, tree.Root()
}

func TestExecuteProducesCorrectOutput(t *testing.T) {
	h := New()
	input, newRoot := testInput(t)

	output, err := h.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if output.NewRoot != newRoot {
		t.Fatalf("output.NewRoot = %v, want %v", output.NewRoot, newRoot)
	}
}

func TestExecuteRespectsCancelledContext(t *testing.T) {
	h := New()
	input, _ := testInput(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.Execute(ctx, input); err == nil {
		t.Fatalf("expected an error executing with an already-cancelled context")
	}
}

func TestProveThenVerifyRoundTrips(t *testing.T) {
	h := New()
	input, _ := testInput(t)

	result, err := h.Prove(context.Background(), input)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	output, err := h.Verify(context.Background(), result.ProofData)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if output != result.Output {
		t.Fatalf("Verify() output %+v != Prove() output %+v", output, result.Output)
	}
}

func TestVerifyRejectsGarbageProofData(t *testing.T) {
	h := New()
	if _, err := h.Verify(context.Background(), []byte("not a valid proof")); err == nil {
		t.Fatalf("expected an error verifying garbage proof data")
	}
}

func TestProgramHashIsStableAcrossInstances(t *testing.T) {
	a := New()
	b := New()
	if a.ProgramHash() != b.ProgramHash() {
		t.Fatalf("two localharness instances reported different program hashes")
	}
}

func TestNewWithHasherUsesGivenHasher(t *testing.T) {
	h := NewWithHasher(hashing.SHA256Hasher{})
	input, newRoot := testInput(t)

	output, err := h.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if output.NewRoot != newRoot {
		t.Fatalf("output.NewRoot = %v, want %v", output.NewRoot, newRoot)
	}
}
