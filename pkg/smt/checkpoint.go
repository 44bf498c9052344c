package smt

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sync/errgroup"

	"github.com/muridata/zkstate/pkg/hashing"
)

// CheckpointScheme sets the checkpoint level: the number of levels below
// the root at which CheckpointedSMT caches one subtree hash per populated
// subtree. A deeper level caches more, smaller subtrees. The scheme does
// not change how proofs are generated.
type CheckpointScheme int

const (
	// SchemeCompact checkpoints only the first 16 levels below the
	// root: minimal memory, the fewest cached subtrees.
	SchemeCompact CheckpointScheme = 16
	// SchemeBalanced checkpoints 48 levels: a middle ground suitable
	// for state stores with moderate read volume.
	SchemeBalanced CheckpointScheme = 48
	// SchemeFast checkpoints 96 levels: maximal reuse, at the cost of
	// holding many more intermediate subtree hashes in memory.
	SchemeFast CheckpointScheme = 96
)

func (s CheckpointScheme) levels() int { return int(s) }

// checkpointNode is one cached subtree hash at a checkpoint level,
// identified by its position among the 2^level possible subtrees at
// that level (using the same root-to-leaf bit-path addressing as the
// rest of the package).
type checkpointNode struct {
	index int
	hash  hashing.Hash
}

// CheckpointedSMT wraps a SparseMerkleTree and maintains a cache of the
// subtree hashes at its checkpoint level, rebuilt when the tree's
// generation changes. The cache serves SubtreeHash only; proofs are
// still computed by SparseMerkleTree.GetProof over the full trie.
type CheckpointedSMT struct {
	tree            *SparseMerkleTree
	scheme          CheckpointScheme
	checkpointCache map[int]hashing.Hash // index at the checkpoint level -> subtree hash
	populated       *bitset.BitSet
	cachedGen       uint64
	cacheValid      bool
}

// NewCheckpointed wraps tree with the given scheme.
func NewCheckpointed(tree *SparseMerkleTree, scheme CheckpointScheme) *CheckpointedSMT {
	return &CheckpointedSMT{
		tree:   tree,
		scheme: scheme,
	}
}

// Tree returns the underlying tree.
func (c *CheckpointedSMT) Tree() *SparseMerkleTree { return c.tree }

func (c *CheckpointedSMT) checkpointLevel() int {
	lvl := c.scheme.levels()
	if lvl > c.tree.depth {
		lvl = c.tree.depth
	}
	return lvl
}

// rebuildCache recomputes the subtree hash of every populated checkpoint
// slot in parallel. A slot is populated when at least one live leaf
// falls under it; slots with no leaves are left out of the cache since
// their hash is always the precomputed empty-subtree hash for that
// level, which callers can derive without a lookup.
func (c *CheckpointedSMT) rebuildCache() error {
	c.tree.mu.RLock()
	leaves := c.tree.sortedLeavesLocked()
	level := c.checkpointLevel()
	hasher := c.tree.hasher
	depth := c.tree.depth
	c.tree.mu.RUnlock()

	groups := make(map[int][]*leafEntry)
	for _, le := range leaves {
		idx := prefixIndex(le.keyHash, level)
		groups[idx] = append(groups[idx], le)
	}

	results := make(chan checkpointNode, len(groups))
	var g errgroup.Group
	for idx, group := range groups {
		idx, group := idx, group
		g.Go(func() error {
			h := subtreeHash(hasher, group, level, depth)
			results <- checkpointNode{index: idx, hash: h}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("checkpoint: rebuild cache: %w", err)
	}
	close(results)

	cache := make(map[int]hashing.Hash, len(groups))
	populated := bitset.New(uint(1) << uint(level))
	for node := range results {
		cache[node.index] = node.hash
		populated.Set(uint(node.index))
	}

	c.checkpointCache = cache
	c.populated = populated
	c.cachedGen = c.tree.Generation()
	c.cacheValid = true
	return nil
}

// SubtreeHash returns the cached (or freshly rebuilt) hash of the
// checkpoint-level subtree that key falls under. This is the value a
// consumer that has its own copy of the trie's upper levels (for
// instance a light client tracking only the checkpoint boundary) needs
// in order to verify a proof without holding the full leaf set.
func (c *CheckpointedSMT) SubtreeHash(key []byte) (hashing.Hash, error) {
	keyHash := c.tree.hasher.HashKey(key)
	if !c.cacheValid || c.cachedGen != c.tree.Generation() {
		if err := c.rebuildCache(); err != nil {
			return hashing.Hash{}, err
		}
	}
	level := c.checkpointLevel()
	idx := prefixIndex(keyHash, level)
	if c.populated.Test(uint(idx)) {
		return c.checkpointCache[idx], nil
	}
	return emptySubtreeHash(c.tree.hasher, c.tree.depth-level), nil
}

// RebuildProofs rebuilds the checkpoint cache once and then computes
// MerkleProofs for many keys in parallel. Each proof comes from
// SparseMerkleTree.GetProof over the full trie; the cache is not used
// to shorten proof computation.
func (c *CheckpointedSMT) RebuildProofs(keys [][]byte) ([]MerkleProof, error) {
	if err := c.rebuildCache(); err != nil {
		return nil, err
	}

	proofs := make([]MerkleProof, len(keys))
	errs := make([]error, len(keys))

	var g errgroup.Group
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			// Each proof still walks the full trie: the cache
			// serves SubtreeHash lookups callers make directly
			// (e.g. a custom proof-combination routine), while
			// GetProof itself recomputes the authoritative proof
			// against the live leaf set to avoid ever returning a
			// proof that is stale relative to a concurrent mutation.
			proofs[i] = c.tree.GetProof(key)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return proofs, nil
}

// prefixIndex returns the integer formed by the first `level` bits of
// h, used to address a subtree at that level.
func prefixIndex(h hashing.Hash, level int) int {
	idx := 0
	for i := 0; i < level; i++ {
		idx <<= 1
		if hashing.Bit(h, i) {
			idx |= 1
		}
	}
	return idx
}
