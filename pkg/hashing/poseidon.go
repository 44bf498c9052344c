package hashing

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"

	"github.com/muridata/zkstate/pkg/crypto"
)

// Poseidon2Hasher hashes over the BN254 scalar field using the same
// Poseidon2 Merkle-Damgard construction the gnark circuit backend
// verifies in-circuit. It exists so a trie whose proofs need to be
// consumed by pkg/guest/circuit (an arithmetic circuit) can be built
// with an arithmetic-friendly hash instead of SHA-256, which a circuit
// could only express at a steep constraint-count cost.
type Poseidon2Hasher struct{}

var _ Hasher = Poseidon2Hasher{}

// HashKey reduces an arbitrary key to a field-sized digest via
// Poseidon2, then serializes it to the canonical 32-byte hash type.
func (Poseidon2Hasher) HashKey(key []byte) Hash {
	v := crypto.HashWithDomainTag(crypto.DomainTagReal, key, big.NewInt(1), len(key), 1)
	return bigIntToHash(v)
}

// HashLeaf computes H(keyHash, value) over the field, domain-separated
// from internal nodes by a leading tag element.
func (Poseidon2Hasher) HashLeaf(keyHash Hash, value []byte) Hash {
	h := poseidon2.NewMerkleDamgardHasher()

	var tag fr.Element
	tag.SetInt64(int64(leafTag))
	tagBytes := tag.Bytes()
	h.Write(tagBytes[:])

	var keyElem fr.Element
	keyElem.SetBytes(keyHash[:])
	keyBytes := keyElem.Bytes()
	h.Write(keyBytes[:])

	valElemSize := len(value)
	if valElemSize == 0 {
		valElemSize = 1
	}
	valHash := crypto.HashWithDomainTag(crypto.DomainTagReal, value, big.NewInt(1), valElemSize, 1)
	var valElem fr.Element
	valElem.SetBigInt(valHash)
	valBytes := valElem.Bytes()
	h.Write(valBytes[:])

	return bigIntToHash(new(big.Int).SetBytes(h.Sum(nil)))
}

// HashNodes computes H(left, right) over the field, matching the
// teacher's own node-hashing construction.
func (Poseidon2Hasher) HashNodes(left, right Hash) Hash {
	h := poseidon2.NewMerkleDamgardHasher()

	var tag fr.Element
	tag.SetInt64(int64(nodeTag))
	tagBytes := tag.Bytes()
	h.Write(tagBytes[:])

	var lElem, rElem fr.Element
	lElem.SetBytes(left[:])
	rElem.SetBytes(right[:])
	lBytes := lElem.Bytes()
	rBytes := rElem.Bytes()
	h.Write(lBytes[:])
	h.Write(rBytes[:])

	return bigIntToHash(new(big.Int).SetBytes(h.Sum(nil)))
}

func bigIntToHash(v *big.Int) Hash {
	var elem fr.Element
	elem.SetBigInt(v)
	b := elem.Bytes()
	var out Hash
	copy(out[:], b[:])
	return out
}
