// Package gnarkprover implements host.Harness as a real Groth16 backend over
// the pkg/guest/circuit rendering of the witness-chain check, grounded on
// the teacher's own setup/compile/prove/verify pipeline. It proves batches
// of up to circuit.MaxWitnesses chained leaf updates at a time; Prove
// returns an error for a transition with more witnesses, and splitting such
// a transition into several proofs is left to the caller.
package gnarkprover

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/muridata/zkstate/pkg/guest"
	"github.com/muridata/zkstate/pkg/guest/circuit"
	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/host"
	"github.com/muridata/zkstate/pkg/transition"
	"github.com/muridata/zkstate/pkg/zkerr"
)

// Harness is a Groth16 host.Harness over circuit.TransitionCircuit.
type Harness struct {
	hasher hashing.Hasher
	ccs    constraint.ConstraintSystem
	pk     groth16.ProvingKey
	vk     groth16.VerifyingKey
}

var _ host.Harness = (*Harness)(nil)

// CompileCircuit compiles circuit.TransitionCircuit into an R1CS constraint
// system, matching the teacher's own frontend.Compile invocation.
func CompileCircuit() (constraint.ConstraintSystem, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit.TransitionCircuit{})
	if err != nil {
		return nil, fmt.Errorf("gnarkprover: compile circuit: %w", err)
	}
	return ccs, nil
}

// DevSetup runs a single-party Groth16 setup suitable for development and
// tests, NOT production (no MPC ceremony). It mirrors the teacher's own
// dev-setup helper, minus the Solidity export this domain has no use for.
func DevSetup() (*Harness, error) {
	ccs, err := CompileCircuit()
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("gnarkprover: groth16 setup: %w", err)
	}
	return &Harness{hasher: hashing.Poseidon2Hasher{}, ccs: ccs, pk: pk, vk: vk}, nil
}

// LoadKeys loads a previously exported proving/verifying key pair from dir,
// named "<name>_prover.key"/"<name>_verifier.key", matching the teacher's
// own key-file naming convention.
func LoadKeys(dir, name string) (*Harness, error) {
	ccs, err := CompileCircuit()
	if err != nil {
		return nil, err
	}

	pk := groth16.NewProvingKey(ecc.BN254)
	f, err := os.Open(filepath.Join(dir, name+"_prover.key"))
	if err != nil {
		return nil, fmt.Errorf("gnarkprover: open proving key: %w", err)
	}
	_, err = pk.ReadFrom(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("gnarkprover: read proving key: %w", err)
	}

	vk := groth16.NewVerifyingKey(ecc.BN254)
	f, err = os.Open(filepath.Join(dir, name+"_verifier.key"))
	if err != nil {
		return nil, fmt.Errorf("gnarkprover: open verifying key: %w", err)
	}
	_, err = vk.ReadFrom(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("gnarkprover: read verifying key: %w", err)
	}

	return &Harness{hasher: hashing.Poseidon2Hasher{}, ccs: ccs, pk: pk, vk: vk}, nil
}

// ExportKeys persists h's proving and verifying keys to dir under the given
// name, for reuse by a later LoadKeys call.
func (h *Harness) ExportKeys(dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("gnarkprover: create output dir: %w", err)
	}
	pkFile, err := os.Create(filepath.Join(dir, name+"_prover.key"))
	if err != nil {
		return fmt.Errorf("gnarkprover: create proving key file: %w", err)
	}
	_, err = h.pk.WriteTo(pkFile)
	pkFile.Close()
	if err != nil {
		return fmt.Errorf("gnarkprover: write proving key: %w", err)
	}

	vkFile, err := os.Create(filepath.Join(dir, name+"_verifier.key"))
	if err != nil {
		return fmt.Errorf("gnarkprover: create verifying key file: %w", err)
	}
	_, err = h.vk.WriteTo(vkFile)
	vkFile.Close()
	if err != nil {
		return fmt.Errorf("gnarkprover: write verifying key: %w", err)
	}
	return nil
}

// ProgramHash identifies the compiled circuit this harness proves against.
func (h *Harness) ProgramHash() hashing.Hash {
	return h.hasher.HashKey([]byte(fmt.Sprintf("zkstate-circuit-v1:%d", h.ccs.GetNbConstraints())))
}

// Execute replays input through the plain-Go guest, without touching the
// circuit. Proving always re-derives the same output from the same guest
// logic, so execution does not need the constraint system at all.
func (h *Harness) Execute(ctx context.Context, input transition.TransitionInput) (transition.TransitionOutput, error) {
	select {
	case <-ctx.Done():
		return transition.TransitionOutput{}, ctx.Err()
	default:
	}
	return guest.VerifyWithHasher(h.hasher, input)
}

// Prove compiles input's witness chain into a circuit assignment, proves it
// with Groth16, and returns the serialized proof. Batches larger than
// circuit.MaxWitnesses are not supported by a single Prove call; split the
// transition's witnesses across multiple TransitionInputs chained by root
// before calling Prove on each.
func (h *Harness) Prove(ctx context.Context, input transition.TransitionInput) (host.ProofResult, error) {
	select {
	case <-ctx.Done():
		return host.ProofResult{}, ctx.Err()
	default:
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		return host.ProofResult{}, &host.ProverError{Stage: "execution", Err: err}
	}

	assignment, err := circuit.BuildAssignment(input.PrevRoot, output.NewRoot, input.Witnesses, h.hasher)
	if err != nil {
		return host.ProofResult{}, &host.ProverError{Stage: "proof generation", Err: err}
	}

	witness, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField())
	if err != nil {
		return host.ProofResult{}, &host.ProverError{Stage: "proof generation", Err: fmt.Errorf("build witness: %w", err)}
	}

	proof, err := groth16.Prove(h.ccs, h.pk, witness)
	if err != nil {
		return host.ProofResult{}, &host.ProverError{Stage: "proof generation", Err: err}
	}

	var proofBuf fileBuffer
	if _, err := proof.WriteTo(&proofBuf); err != nil {
		return host.ProofResult{}, &host.ProverError{Stage: "proof generation", Err: fmt.Errorf("serialize proof: %w", err)}
	}

	outputBytes, err := output.Encode()
	if err != nil {
		return host.ProofResult{}, &host.ProverError{Stage: "proof generation", Err: err}
	}

	proofData, err := packProof(outputBytes, proofBuf.Bytes())
	if err != nil {
		return host.ProofResult{}, &host.ProverError{Stage: "proof generation", Err: err}
	}

	return host.ProofResult{Output: output, ProofData: proofData}, nil
}

// Verify checks a Groth16 proof against h's verifying key and returns the
// output it attests to.
func (h *Harness) Verify(ctx context.Context, proofData []byte) (transition.TransitionOutput, error) {
	outputBytes, proofBytes, err := unpackProof(proofData)
	if err != nil {
		return transition.TransitionOutput{}, &host.ProverError{Stage: "output decode", Err: err}
	}

	output, err := transition.DecodeTransitionOutput(outputBytes)
	if err != nil {
		return transition.TransitionOutput{}, &host.ProverError{Stage: "output decode", Err: err}
	}

	assignment, err := circuit.BuildAssignment(output.PrevRoot, output.NewRoot, nil, h.hasher)
	if err != nil {
		return transition.TransitionOutput{}, &host.ProverError{Stage: "verification", Err: err}
	}
	publicWitness, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return transition.TransitionOutput{}, &host.ProverError{Stage: "verification", Err: fmt.Errorf("build public witness: %w", err)}
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(newByteReader(proofBytes)); err != nil {
		return transition.TransitionOutput{}, &host.ProverError{Stage: "verification", Err: fmt.Errorf("decode proof: %w", err)}
	}

	if err := groth16.Verify(proof, h.vk, publicWitness); err != nil {
		return transition.TransitionOutput{}, &host.ProverError{Stage: "verification", Err: fmt.Errorf("%w: %v", zkerr.ErrVerification, err)}
	}

	return output, nil
}
