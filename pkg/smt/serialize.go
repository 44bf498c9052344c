package smt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/muridata/zkstate/pkg/hashing"
)

// Serialize writes the tree's depth and live leaf set to a deterministic
// binary format:
//
//	uint32(depth) | uint32(numLeaves)
//	for each leaf, sorted by key hash:
//	  [32]byte(keyHash) | uint32(len(value)) | value bytes
//
// The hasher and empty-subtree hashes are not stored; they are supplied
// by the caller on Deserialize, matching the teacher's convention of
// recomputing the zero-hash chain from a caller-supplied seed rather
// than persisting it.
func (t *SparseMerkleTree) Serialize() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(t.depth)); err != nil {
		return nil, fmt.Errorf("smt: write depth: %w", err)
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(t.leaves))); err != nil {
		return nil, fmt.Errorf("smt: write leaf count: %w", err)
	}

	leaves := t.sortedLeavesLocked()
	for _, le := range leaves {
		if _, err := buf.Write(le.keyHash[:]); err != nil {
			return nil, fmt.Errorf("smt: write key hash: %w", err)
		}
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(le.value))); err != nil {
			return nil, fmt.Errorf("smt: write value length: %w", err)
		}
		if _, err := buf.Write(le.value); err != nil {
			return nil, fmt.Errorf("smt: write value: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// Deserialize reconstructs a tree from bytes produced by Serialize,
// using hasher for all subsequent root/proof computation.
func Deserialize(data []byte, hasher hashing.Hasher) (*SparseMerkleTree, error) {
	r := bytes.NewReader(data)

	var depth, numLeaves uint32
	if err := binary.Read(r, binary.BigEndian, &depth); err != nil {
		return nil, fmt.Errorf("smt: read depth: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &numLeaves); err != nil {
		return nil, fmt.Errorf("smt: read leaf count: %w", err)
	}

	t := New(int(depth), hasher)
	for i := uint32(0); i < numLeaves; i++ {
		var kh hashing.Hash
		if _, err := io.ReadFull(r, kh[:]); err != nil {
			return nil, fmt.Errorf("smt: read key hash %d: %w", i, err)
		}
		var valueLen uint32
		if err := binary.Read(r, binary.BigEndian, &valueLen); err != nil {
			return nil, fmt.Errorf("smt: read value length %d: %w", i, err)
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(r, value); err != nil {
			return nil, fmt.Errorf("smt: read value %d: %w", i, err)
		}
		t.leaves[kh] = value
	}
	return t, nil
}
