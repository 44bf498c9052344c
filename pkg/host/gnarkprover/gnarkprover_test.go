package gnarkprover

import (
	"context"
	"testing"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/smt"
	"github.com/muridata/zkstate/pkg/transition"
)

func devHarness(t *testing.T) *Harness {
	t.Helper()
	h, err := DevSetup()
	if err != nil {
		t.Fatalf("DevSetup: %v", err)
	}
	return h
}

func testInput(t *testing.T) transition.TransitionInput {
	t.Helper()
	hasher := hashing.Poseidon2Hasher{}
	tree := smt.New(smt.DefaultDepth, hasher)
	prevRoot := tree.Root()
	w := tree.Insert([]byte("key"), []byte("value"))
	return transition.NewTransitionInput(prevRoot, []byte("pub"), nil, []smt.UpdateWitness{w}, nil)
}

func TestCompileCircuitSucceeds(t *testing.T) {
	ccs, err := CompileCircuit()
	if err != nil {
		t.Fatalf("CompileCircuit: %v", err)
	}
	if ccs.GetNbConstraints() == 0 {
		t.Fatalf("compiled circuit reports zero constraints")
	}
}

func TestDevSetupProgramHashDeterministic(t *testing.T) {
	a := devHarness(t)
	b := devHarness(t)
	if a.ProgramHash() != b.ProgramHash() {
		t.Fatalf("two independently-compiled circuits of the same shape reported different program hashes")
	}
}

func TestProveThenVerifyRoundTrips(t *testing.T) {
	h := devHarness(t)
	input := testInput(t)

	result, err := h.Prove(context.Background(), input)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	output, err := h.Verify(context.Background(), result.ProofData)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if output.NewRoot != result.Output.NewRoot {
		t.Fatalf("Verify() output %+v != Prove() output %+v", output, result.Output)
	}
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	h := devHarness(t)
	input := testInput(t)

	result, err := h.Prove(context.Background(), input)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	tampered := append([]byte(nil), result.ProofData...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := h.Verify(context.Background(), tampered); err == nil {
		t.Fatalf("expected an error verifying a tampered proof")
	}
}

func TestExportLoadKeysRoundTrips(t *testing.T) {
	h := devHarness(t)
	dir := t.TempDir()

	if err := h.ExportKeys(dir, "zkstate"); err != nil {
		t.Fatalf("ExportKeys: %v", err)
	}

	loaded, err := LoadKeys(dir, "zkstate")
	if err != nil {
		t.Fatalf("LoadKeys: %v", err)
	}

	input := testInput(t)
	result, err := h.Prove(context.Background(), input)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}
	if _, err := loaded.Verify(context.Background(), result.ProofData); err != nil {
		t.Fatalf("a key pair loaded back from disk failed to verify a proof made with the original: %v", err)
	}
}

func TestExecuteMatchesGuestOutput(t *testing.T) {
	h := devHarness(t)
	input := testInput(t)

	output, err := h.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if output.PrevRoot != input.PrevRoot {
		t.Fatalf("output.PrevRoot = %v, want %v", output.PrevRoot, input.PrevRoot)
	}
}
