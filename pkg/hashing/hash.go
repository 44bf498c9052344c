// Package hashing implements the domain-separated hash primitives the
// sparse trie and transition format are built on: leaf hashing, internal
// node hashing, key hashing, and bit extraction over a hash's big-endian
// bit string (bit 0 is the most significant bit).
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash is a 32-byte digest.
type Hash [32]byte

// Zero is the all-zero hash, used as the empty-leaf marker. The genesis
// prev_root is not Zero but the root of the empty trie.
var Zero Hash

// String renders the hash as lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash decodes a hex string produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parse hash: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("parse hash: expected %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Bytes returns a copy of the hash's raw bytes.
func (h Hash) Bytes() []byte {
	out := make([]byte, len(h))
	copy(out, h[:])
	return out
}

// MarshalBinary implements encoding.BinaryMarshaler so CBOR (and any
// other binary-aware codec) encodes a Hash as a 32-byte string instead
// of a 32-element array of integers.
func (h Hash) MarshalBinary() ([]byte, error) {
	return h.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *Hash) UnmarshalBinary(data []byte) error {
	if len(data) != len(h) {
		return fmt.Errorf("hashing: unmarshal: expected %d bytes, got %d", len(h), len(data))
	}
	copy(h[:], data)
	return nil
}

// leafTag prefixes every leaf hash so that a leaf value can never be
// mistaken for a two-child internal hash, mirroring the teacher's
// per-purpose domain tags in pkg/crypto. SHA256Hasher hashes internal
// nodes untagged; nodeTag is used by Poseidon2Hasher.HashNodes.
const (
	leafTag byte = 0x00
	nodeTag byte = 0x01
)

// Hasher is the hash function contract the trie is built over. Callers
// supply one so pkg/smt stays independent of which concrete hash
// backs a given deployment (default SHA-256, or Poseidon2 for circuits
// that need an arithmetic-friendly hash).
type Hasher interface {
	HashLeaf(keyHash Hash, value []byte) Hash
	HashNodes(left, right Hash) Hash
	HashKey(key []byte) Hash
}

// SHA256Hasher is the default Hasher, matching the domain-separated
// scheme the trie's wire format commits to.
type SHA256Hasher struct{}

var _ Hasher = SHA256Hasher{}

// HashKey hashes an arbitrary-length key down to a fixed 32-byte digest
// used as the trie path.
func (SHA256Hasher) HashKey(key []byte) Hash {
	return sha256.Sum256(key)
}

// HashLeaf computes a leaf's commitment: H(0x00 || key_hash || value).
func (SHA256Hasher) HashLeaf(keyHash Hash, value []byte) Hash {
	h := sha256.New()
	h.Write([]byte{leafTag})
	h.Write(keyHash[:])
	h.Write(value)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashNodes computes an internal node's hash: H(left || right).
func (SHA256Hasher) HashNodes(left, right Hash) Hash {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Bit returns the bit at the given position (0 = most significant bit
// of h[0]) of a hash's bit string, used to walk the trie path from the
// root down to a leaf.
func Bit(h Hash, position int) bool {
	byteIdx := position / 8
	bitIdx := 7 - (position % 8)
	return (h[byteIdx]>>uint(bitIdx))&1 == 1
}
