package circuit

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	"github.com/consensys/gnark/std/permutation/poseidon2"
)

const (
	leafTag = 0
	nodeTag = 1
)

// MerkleStepCircuit is one leaf update: it checks that OldValue hashed in at
// KeyHash recombines to OldRoot, and that NewValue hashed in at the same
// KeyHash and siblings recombines to NewRoot, using the same sibling path
// for both (an update changes exactly one leaf, so the path is shared).
type MerkleStepCircuit struct {
	KeyHash  frontend.Variable
	OldValue frontend.Variable
	NewValue frontend.Variable
	Siblings [Depth]frontend.Variable

	OldRoot frontend.Variable `gnark:",public"`
	NewRoot frontend.Variable `gnark:",public"`
}

// Define walks the sibling path twice — once recombining OldValue, once
// NewValue — and asserts each recombination matches the corresponding root.
// Both walks share the same per-level direction bits, taken from KeyHash,
// since replacing a leaf's value never changes which side of the tree it
// sits on.
func (m *MerkleStepCircuit) Define(api frontend.API) error {
	p, err := poseidon2.NewPoseidon2FromParameters(api, 2, 6, 50)
	if err != nil {
		return err
	}

	directionBits := api.ToBinary(m.KeyHash, api.Compiler().FieldBitLen())

	hashLeaf := func(keyHash, value frontend.Variable) frontend.Variable {
		h := hash.NewMerkleDamgardHasher(api, p, 0)
		h.Write(frontend.Variable(leafTag), keyHash, value)
		return h.Sum()
	}
	hashNodes := func(left, right frontend.Variable) frontend.Variable {
		h := hash.NewMerkleDamgardHasher(api, p, 0)
		h.Write(frontend.Variable(nodeTag), left, right)
		return h.Sum()
	}

	oldCur := hashLeaf(m.KeyHash, m.OldValue)
	newCur := hashLeaf(m.KeyHash, m.NewValue)

	for i := 0; i < Depth; i++ {
		// Position 0 is the root-side (most significant) bit; ToBinary
		// returns least-significant-bit first, so level i reads from the
		// far end of the bit slice.
		dir := directionBits[len(directionBits)-1-i]
		sib := m.Siblings[i]

		oldLeft := api.Select(dir, sib, oldCur)
		oldRight := api.Select(dir, oldCur, sib)
		oldCur = hashNodes(oldLeft, oldRight)

		newLeft := api.Select(dir, sib, newCur)
		newRight := api.Select(dir, newCur, sib)
		newCur = hashNodes(newLeft, newRight)
	}

	api.AssertIsEqual(oldCur, m.OldRoot)
	api.AssertIsEqual(newCur, m.NewRoot)
	return nil
}

// TransitionCircuit proves a batch of up to MaxWitnesses chained leaf
// updates: step k's OldRoot must equal step k-1's NewRoot, step 0's
// OldRoot must equal PrevRoot, and the final step's NewRoot must equal
// NewRoot. Unused trailing slots are filled with a no-op step (OldValue ==
// NewValue, OldRoot == NewRoot == the running root) by the witness builder.
type TransitionCircuit struct {
	PrevRoot frontend.Variable   `gnark:",public"`
	NewRoot  frontend.Variable   `gnark:",public"`
	Steps    [MaxWitnesses]MerkleStepCircuit
}

func (c *TransitionCircuit) Define(api frontend.API) error {
	running := c.PrevRoot
	for i := range c.Steps {
		api.AssertIsEqual(c.Steps[i].OldRoot, running)
		if err := c.Steps[i].Define(api); err != nil {
			return err
		}
		running = c.Steps[i].NewRoot
	}
	api.AssertIsEqual(running, c.NewRoot)
	return nil
}
