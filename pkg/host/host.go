// Package host defines the harness boundary between the deterministic guest
// program (pkg/guest) and a concrete proving backend. A Harness can execute
// a transition without proving it (for dry runs and tests), prove it (for
// posting), and verify a previously generated proof.
package host

import (
	"context"
	"fmt"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/transition"
)

// ProofResult is what Prove returns: the guest's output plus an opaque,
// backend-specific proof blob ready to accompany a committed blob. ProofData
// alone is self-describing enough for the same backend's Verify to check it
// and recover Output, so a verifier reading proof bytes back from the DA
// layer (which carries no separate proof-type tag) only ever needs ProofData.
type ProofResult struct {
	Output    transition.TransitionOutput
	ProofData []byte
}

// Harness is the seam a node drives to turn a TransitionInput into a
// verified, provable TransitionOutput. Two implementations are provided:
// localharness (no cryptographic proof, just the guest replay — the
// default) and gnarkprover (a real Groth16 proof over pkg/guest/circuit).
type Harness interface {
	// Execute replays input without generating a proof.
	Execute(ctx context.Context, input transition.TransitionInput) (transition.TransitionOutput, error)

	// Prove executes input and additionally produces a proof binding the
	// output to input under this harness's backend.
	Prove(ctx context.Context, input transition.TransitionInput) (ProofResult, error)

	// Verify checks proof bytes produced by this harness's own Prove and
	// returns the output they attest to.
	Verify(ctx context.Context, proofData []byte) (transition.TransitionOutput, error)

	// ProgramHash identifies the exact guest program version this harness
	// proves against, so a verifier can detect a mismatched backend.
	ProgramHash() hashing.Hash
}

// ProverError wraps a Harness failure with the stage it occurred at, mirroring
// the four failure modes a zkVM host surfaces (execution, proof generation,
// verification, output decoding).
type ProverError struct {
	Stage string
	Err   error
}

func (e *ProverError) Error() string {
	return fmt.Sprintf("host: %s: %v", e.Stage, e.Err)
}

func (e *ProverError) Unwrap() error { return e.Err }
