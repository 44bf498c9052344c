// Package guest implements the deterministic, pure program a zkVM
// collaborator executes or proves: given a TransitionInput, replay its
// witnesses against PrevRoot, check every tagged VerifiableOperation's
// business-logic predicate, and emit the TransitionOutput a host
// harness is responsible for committing a proof to.
package guest

import (
	"fmt"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/smt"
	"github.com/muridata/zkstate/pkg/transition"
	"github.com/muridata/zkstate/pkg/zkerr"
)

// Verify re-derives a TransitionOutput from input, entirely in-process.
// From the outside this is "the program a zkVM runs"; on the inside it
// is ordinary deterministic Go, since there is nothing about the
// computation itself that depends on being inside a prover.
func Verify(input transition.TransitionInput) (transition.TransitionOutput, error) {
	return VerifyWithHasher(hashing.SHA256Hasher{}, input)
}

// VerifyWithHasher is Verify parameterized over the hasher the trie
// this transition is against was built with.
func VerifyWithHasher(hasher hashing.Hasher, input transition.TransitionInput) (transition.TransitionOutput, error) {
	newRoot, err := transition.VerifyWitnessChain(hasher, input.PrevRoot, input.Witnesses)
	if err != nil {
		return transition.TransitionOutput{}, fmt.Errorf("guest: witness chain: %w", err)
	}

	for i, op := range input.Operations {
		if err := verifyOperation(hasher, input, op); err != nil {
			return transition.TransitionOutput{}, fmt.Errorf("guest: operation %d (%s): %w", i, op.OpType, err)
		}
	}

	return transition.TransitionOutput{
		PrevRoot:         input.PrevRoot,
		NewRoot:          newRoot,
		PublicInputsHash: input.PublicInputsHash(),
		PublicOutputs:    nil,
	}, nil
}

// witnessAt bounds-checks and returns the witness a VerifiableOperation
// points at, failing closed (as zkerr.ErrInvalidProof) rather than
// panicking on a malformed index, since input is adversarial.
func witnessAt(input transition.TransitionInput, idx int) (smt.UpdateWitness, error) {
	if idx < 0 || idx >= len(input.Witnesses) {
		return smt.UpdateWitness{}, fmt.Errorf("%w: witness index %d out of range (have %d)", zkerr.ErrInvalidProof, idx, len(input.Witnesses))
	}
	return input.Witnesses[idx], nil
}
