package smt

import (
	"bytes"

	"github.com/muridata/zkstate/pkg/hashing"
)

// MerkleProof attests to a key's value (or absence) against a specific
// root, without revealing anything else in the tree. Siblings are in
// root-to-leaf order, one per trie level.
type MerkleProof struct {
	KeyHash  hashing.Hash
	Value    []byte // nil => proof of non-membership
	Siblings []hashing.Hash
}

// Verify recomputes the root implied by the proof and compares it to
// root, using hasher for both leaf and internal hashing.
func (p MerkleProof) Verify(root hashing.Hash, hasher hashing.Hasher) bool {
	return recombine(p.KeyHash, p.Value, p.Siblings, hasher) == root
}

// UpdateWitness binds a single leaf change to both the root it was
// applied against (OldValue under Siblings reconstructs the pre-update
// root) and the root it produced (NewValue under the same Siblings
// reconstructs the post-update root). Because only one leaf changed,
// the sibling set is identical on both sides.
type UpdateWitness struct {
	KeyHash  hashing.Hash
	OldValue []byte // nil if the key did not previously exist
	NewValue []byte // nil if this update deletes the key
	Siblings []hashing.Hash
}

// ComputeOldRoot reconstructs the root the witness's OldValue implies.
func (w UpdateWitness) ComputeOldRoot(hasher hashing.Hasher) hashing.Hash {
	return recombine(w.KeyHash, w.OldValue, w.Siblings, hasher)
}

// ComputeNewRoot reconstructs the root the witness's NewValue implies.
func (w UpdateWitness) ComputeNewRoot(hasher hashing.Hasher) hashing.Hash {
	return recombine(w.KeyHash, w.NewValue, w.Siblings, hasher)
}

// IsNoop reports whether this witness represents a transition that left
// the tree unchanged (deleting an absent key, or inserting a value
// identical to the one already stored).
func (w UpdateWitness) IsNoop() bool {
	return bytes.Equal(w.OldValue, w.NewValue)
}

// recombine walks a leaf (or empty-leaf) hash up through siblings in
// leaf-to-root order to reconstruct the implied root.
func recombine(keyHash hashing.Hash, value []byte, siblings []hashing.Hash, hasher hashing.Hasher) hashing.Hash {
	var cur hashing.Hash
	if value == nil {
		cur = hashing.Zero
	} else {
		cur = hasher.HashLeaf(keyHash, value)
	}
	for pos := len(siblings) - 1; pos >= 0; pos-- {
		sib := siblings[pos]
		if hashing.Bit(keyHash, pos) {
			cur = hasher.HashNodes(sib, cur)
		} else {
			cur = hasher.HashNodes(cur, sib)
		}
	}
	return cur
}
