package circuit

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/smt"
)

// BuildAssignment renders a chain of up to MaxWitnesses UpdateWitnesses into
// a TransitionCircuit assignment. Fewer than MaxWitnesses witnesses are
// padded with no-op steps (a step whose old and new value/root are
// identical) pinned to the chain's final root, mirroring how the teacher's
// PoI circuit pads unused openings with an all-zero sibling path rather
// than varying the circuit's shape per proof.
func BuildAssignment(prevRoot, newRoot hashing.Hash, witnesses []smt.UpdateWitness, hasher hashing.Hasher) (TransitionCircuit, error) {
	if len(witnesses) > MaxWitnesses {
		return TransitionCircuit{}, fmt.Errorf("circuit: %d witnesses exceeds batch size %d", len(witnesses), MaxWitnesses)
	}
	for i, w := range witnesses {
		if len(w.Siblings) != Depth {
			return TransitionCircuit{}, fmt.Errorf("circuit: witness %d has %d siblings, want %d", i, len(w.Siblings), Depth)
		}
	}

	assignment := TransitionCircuit{
		PrevRoot: hashToField(prevRoot),
		NewRoot:  hashToField(newRoot),
	}

	running := prevRoot
	for i := 0; i < MaxWitnesses; i++ {
		if i < len(witnesses) {
			w := witnesses[i]
			assignment.Steps[i] = stepFromWitness(running, w, hasher)
			running = w.ComputeNewRoot(hasher)
		} else {
			assignment.Steps[i] = noopStep(running)
		}
	}
	return assignment, nil
}

func stepFromWitness(oldRoot hashing.Hash, w smt.UpdateWitness, hasher hashing.Hasher) MerkleStepCircuit {
	step := MerkleStepCircuit{
		KeyHash:  hashToField(w.KeyHash),
		OldValue: bytesToField(w.OldValue),
		NewValue: bytesToField(w.NewValue),
		OldRoot:  hashToField(oldRoot),
		NewRoot:  hashToField(w.ComputeNewRoot(hasher)),
	}
	for i, sib := range w.Siblings {
		step.Siblings[i] = hashToField(sib)
	}
	return step
}

// noopStep pins a padding slot to root so it contributes nothing to the
// chain: its old and new value are both empty, so its old and new root are
// equal (a rehash of the same leaf value along the same path), and that
// shared root is pinned to the running root from the real steps before it.
func noopStep(root hashing.Hash) MerkleStepCircuit {
	keyHash := hashing.Zero
	step := MerkleStepCircuit{
		KeyHash:  hashToField(keyHash),
		OldValue: bytesToField(nil),
		NewValue: bytesToField(nil),
		OldRoot:  hashToField(root),
		NewRoot:  hashToField(root),
	}
	for i := range step.Siblings {
		step.Siblings[i] = hashToField(hashing.Zero)
	}
	return step
}

// hashToField reduces a 32-byte hash into the BN254 scalar field.
func hashToField(h hashing.Hash) frontend.Variable {
	var e fr.Element
	e.SetBytes(h[:])
	v := new(big.Int)
	e.BigInt(v)
	return v
}

// bytesToField reduces an arbitrary-length byte value into the scalar
// field. Values wider than the field (most application payloads are not)
// would need chunking; this circuit's worked predicates (balances, nonces)
// fit comfortably within a single field element.
func bytesToField(b []byte) frontend.Variable {
	var e fr.Element
	e.SetBytes(b)
	v := new(big.Int)
	e.BigInt(v)
	return v
}
