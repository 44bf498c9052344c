// Package smt implements a fixed-depth sparse Merkle trie keyed by an
// arbitrary byte string, hashed down to a 256-bit path and truncated to
// Depth bits. Only leaves that are actually present are stored; every
// other position is implicitly the precomputed hash of an empty
// subtree, so the tree's memory footprint tracks the number of real
// entries rather than 2^Depth.
package smt

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/muridata/zkstate/pkg/hashing"
)

// DefaultDepth is the trie depth used by the state store: a key hash
// is truncated to its first 160 bits, leaving a false-positive
// collision probability far below what 256 bits alone would need to
// guard against for this system's expected key volumes.
const DefaultDepth = 160

type leafEntry struct {
	keyHash hashing.Hash
	value   []byte
}

// SparseMerkleTree is a fixed-depth sparse Merkle trie over
// hash(key)-addressed leaves.
type SparseMerkleTree struct {
	mu     sync.RWMutex
	hasher hashing.Hasher
	depth  int
	leaves map[hashing.Hash][]byte

	rootValid bool
	rootCache hashing.Hash
	// generation increments on every mutation, letting callers outside
	// this package (pkg/smt.CheckpointedSMT) detect staleness of their
	// own derived caches without depending on rootValid's transient
	// true/false flips.
	generation uint64
}

// Generation returns a counter that increments on every mutation,
// usable by callers that maintain their own derived cache over this
// tree's leaf set.
func (t *SparseMerkleTree) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// New constructs an empty tree of the given depth using hasher.
func New(depth int, hasher hashing.Hasher) *SparseMerkleTree {
	return &SparseMerkleTree{
		hasher: hasher,
		depth:  depth,
		leaves: make(map[hashing.Hash][]byte),
	}
}

// NewDefault constructs an empty tree at DefaultDepth using the default
// SHA-256 hasher.
func NewDefault() *SparseMerkleTree {
	return New(DefaultDepth, hashing.SHA256Hasher{})
}

// Depth returns the trie's fixed depth.
func (t *SparseMerkleTree) Depth() int { return t.depth }

// Hasher returns the hasher this tree was constructed with.
func (t *SparseMerkleTree) Hasher() hashing.Hasher { return t.hasher }

// NumLeaves returns the number of real leaves currently stored.
func (t *SparseMerkleTree) NumLeaves() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.leaves)
}

// Root returns the current root hash, recomputing it from the live
// leaf set if a mutation has invalidated the cache.
func (t *SparseMerkleTree) Root() hashing.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rootLocked()
}

func (t *SparseMerkleTree) rootLocked() hashing.Hash {
	if t.rootValid {
		return t.rootCache
	}
	leaves := t.sortedLeavesLocked()
	t.rootCache = subtreeHash(t.hasher, leaves, 0, t.depth)
	t.rootValid = true
	return t.rootCache
}

func (t *SparseMerkleTree) sortedLeavesLocked() []*leafEntry {
	out := make([]*leafEntry, 0, len(t.leaves))
	for k, v := range t.leaves {
		out = append(out, &leafEntry{keyHash: k, value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		return lessHash(out[i].keyHash, out[j].keyHash)
	})
	return out
}

func lessHash(a, b hashing.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Get returns the raw value stored at key, if any.
func (t *SparseMerkleTree) Get(key []byte) ([]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	kh := t.hasher.HashKey(key)
	v, ok := t.leaves[kh]
	return v, ok
}

// GetProof returns a MerkleProof of membership (or non-membership) for
// key against the tree's current root.
func (t *SparseMerkleTree) GetProof(key []byte) MerkleProof {
	t.mu.Lock()
	defer t.mu.Unlock()
	kh := t.hasher.HashKey(key)
	leaves := t.sortedLeavesLocked()
	var siblings []hashing.Hash
	_ = subtreeHashAndProof(t.hasher, leaves, 0, t.depth, kh, &siblings)
	return MerkleProof{
		KeyHash:  kh,
		Value:    t.leaves[kh],
		Siblings: siblings,
	}
}

// Insert sets key to value, returning the UpdateWitness that binds the
// old and new roots to this single leaf change.
func (t *SparseMerkleTree) Insert(key, value []byte) UpdateWitness {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.insertLocked(key, value)
}

func (t *SparseMerkleTree) insertLocked(key, value []byte) UpdateWitness {
	return t.insertByHashLocked(t.hasher.HashKey(key), value)
}

func (t *SparseMerkleTree) insertByHashLocked(kh hashing.Hash, value []byte) UpdateWitness {
	leaves := t.sortedLeavesLocked()
	var siblings []hashing.Hash
	_ = subtreeHashAndProof(t.hasher, leaves, 0, t.depth, kh, &siblings)

	oldValue, existed := t.leaves[kh]

	stored := make([]byte, len(value))
	copy(stored, value)
	t.leaves[kh] = stored
	t.rootValid = false
	t.generation++

	w := UpdateWitness{KeyHash: kh, NewValue: stored, Siblings: siblings}
	if existed {
		w.OldValue = oldValue
	}
	return w
}

// Delete removes key, returning the UpdateWitness that binds the old
// and new roots to this single leaf change. Deleting an absent key is
// not an error: it is a well-defined no-op transition whose old and
// new roots are equal.
func (t *SparseMerkleTree) Delete(key []byte) UpdateWitness {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deleteLocked(key)
}

func (t *SparseMerkleTree) deleteLocked(key []byte) UpdateWitness {
	return t.deleteByHashLocked(t.hasher.HashKey(key))
}

func (t *SparseMerkleTree) deleteByHashLocked(kh hashing.Hash) UpdateWitness {
	leaves := t.sortedLeavesLocked()
	var siblings []hashing.Hash
	_ = subtreeHashAndProof(t.hasher, leaves, 0, t.depth, kh, &siblings)

	oldValue, existed := t.leaves[kh]
	if existed {
		delete(t.leaves, kh)
		t.rootValid = false
		t.generation++
	}

	w := UpdateWitness{KeyHash: kh, Siblings: siblings}
	if existed {
		w.OldValue = oldValue
	}
	return w
}

// Op is a single mutation to apply as part of a batch.
type Op struct {
	Key    []byte
	Value  []byte // nil means delete
	Delete bool
}

// ApplyBatch applies ops in order, returning one UpdateWitness per op.
// Key-hash computation for the batch is parallelized with an errgroup
// since it is pure and independent per op; the trie mutations
// themselves are applied sequentially because each witness's siblings
// depend on the tree state left by the previous op.
func (t *SparseMerkleTree) ApplyBatch(ops []Op) ([]UpdateWitness, error) {
	keyHashes := make([]hashing.Hash, len(ops))
	var g errgroup.Group
	for i := range ops {
		i := i
		g.Go(func() error {
			keyHashes[i] = t.hasher.HashKey(ops[i].Key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("apply batch: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	witnesses := make([]UpdateWitness, 0, len(ops))
	for i, op := range ops {
		var w UpdateWitness
		if op.Delete {
			w = t.deleteByHashLocked(keyHashes[i])
		} else {
			w = t.insertByHashLocked(keyHashes[i], op.Value)
		}
		witnesses = append(witnesses, w)
	}
	return witnesses, nil
}

// subtreeHash recursively computes the hash of the subtree rooted at
// position (0 = trie root, depth = leaf level) over the given
// (sorted, by key hash) leaf set restricted to that subtree.
func subtreeHash(hasher hashing.Hasher, leaves []*leafEntry, position, depth int) hashing.Hash {
	if len(leaves) == 0 {
		return emptySubtreeHash(hasher, depth-position)
	}
	if position == depth {
		return hasher.HashLeaf(leaves[0].keyHash, leaves[0].value)
	}

	splitAt := partition(leaves, position)
	left := leaves[:splitAt]
	right := leaves[splitAt:]

	lh := subtreeHash(hasher, left, position+1, depth)
	rh := subtreeHash(hasher, right, position+1, depth)
	return hasher.HashNodes(lh, rh)
}

// subtreeHashAndProof behaves like subtreeHash but additionally appends
// the sibling hash at each level along the path to target, in
// root-to-leaf order.
func subtreeHashAndProof(hasher hashing.Hasher, leaves []*leafEntry, position, depth int, target hashing.Hash, siblings *[]hashing.Hash) hashing.Hash {
	if len(leaves) == 0 {
		return emptySubtreeHash(hasher, depth-position)
	}
	if position == depth {
		return hasher.HashLeaf(leaves[0].keyHash, leaves[0].value)
	}

	splitAt := partition(leaves, position)
	left := leaves[:splitAt]
	right := leaves[splitAt:]

	if hashing.Bit(target, position) {
		siblingHash := subtreeHash(hasher, left, position+1, depth)
		*siblings = append(*siblings, siblingHash)
		myHash := subtreeHashAndProof(hasher, right, position+1, depth, target, siblings)
		return hasher.HashNodes(siblingHash, myHash)
	}
	siblingHash := subtreeHash(hasher, right, position+1, depth)
	*siblings = append(*siblings, siblingHash)
	myHash := subtreeHashAndProof(hasher, left, position+1, depth, target, siblings)
	return hasher.HashNodes(myHash, siblingHash)
}

// partition splits a slice sorted by key hash into the prefix whose bit
// at `position` is 0 (left) and the suffix whose bit is 1 (right), via
// binary search since the slice is sorted lexicographically by hash
// and the bit test is monotonic within a shared prefix.
func partition(leaves []*leafEntry, position int) int {
	return sort.Search(len(leaves), func(i int) bool {
		return hashing.Bit(leaves[i].keyHash, position)
	})
}

// emptySubtreeHash returns the hash of an empty subtree with `levels`
// levels below the current position (0 = this position is a leaf).
func emptySubtreeHash(hasher hashing.Hasher, levels int) hashing.Hash {
	h := hashing.Zero
	for i := 0; i < levels; i++ {
		h = hasher.HashNodes(h, h)
	}
	return h
}
