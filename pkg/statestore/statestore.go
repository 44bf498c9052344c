// Package statestore implements the durable, Merkle-committed
// key-value store that every transition is applied against: a
// pkg/kv.Store for raw bytes, paired with a pkg/smt.SparseMerkleTree
// for the commitment, and a monotonic transition index.
package statestore

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/kv"
	"github.com/muridata/zkstate/pkg/smt"
	"github.com/muridata/zkstate/pkg/zkerr"
)

// Reserved keys the store uses for its own bookkeeping; application
// keys must never collide with these.
var (
	keyMerkleTree      = []byte("__merkle_tree__")
	keyTransitionIndex = []byte("__transition_index__")
)

// StateStore owns the durable byte map, the trie that commits to it,
// and the transition index.
type StateStore struct {
	db    kv.Store
	tree  *smt.SparseMerkleTree
	index uint64
}

// Open loads (or initializes) a state store backed by db. If db
// already contains a serialized trie and transition index under the
// reserved keys, they are restored; otherwise the store starts empty.
func Open(ctx context.Context, db kv.Store) (*StateStore, error) {
	s := &StateStore{db: db}

	if data, ok, err := db.Get(ctx, keyMerkleTree); err != nil {
		return nil, fmt.Errorf("statestore: load trie: %w", err)
	} else if ok {
		tree, err := smt.Deserialize(data, hashing.SHA256Hasher{})
		if err != nil {
			return nil, fmt.Errorf("statestore: decode trie: %w", err)
		}
		s.tree = tree
	} else {
		s.tree = smt.NewDefault()
	}

	if data, ok, err := db.Get(ctx, keyTransitionIndex); err != nil {
		return nil, fmt.Errorf("statestore: load transition index: %w", err)
	} else if ok && len(data) == 8 {
		s.index = binary.BigEndian.Uint64(data)
	}

	return s, nil
}

// InMemory constructs a state store with no durable backing, for tests
// and for nodes run without a data directory.
func InMemory() *StateStore {
	return &StateStore{db: kv.NewMemoryStore(), tree: smt.NewDefault()}
}

// Root returns the current commitment root.
func (s *StateStore) Root() hashing.Hash { return s.tree.Root() }

// TransitionIndex returns the number of transitions committed so far.
func (s *StateStore) TransitionIndex() uint64 { return s.index }

// GetRaw returns the raw bytes stored at key.
func (s *StateStore) GetRaw(ctx context.Context, key []byte) ([]byte, bool, error) {
	return s.db.Get(ctx, key)
}

// Get decodes a CBOR-encoded value of type V stored at key.
func Get[V any](ctx context.Context, s *StateStore, key []byte) (V, bool, error) {
	var zero V
	data, ok, err := s.db.Get(ctx, key)
	if err != nil {
		return zero, false, fmt.Errorf("statestore: get: %w", err)
	}
	if !ok {
		return zero, false, nil
	}
	var v V
	if err := cbor.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("%w: %v", zkerr.ErrEncoding, err)
	}
	return v, true, nil
}

// GetWithProof returns the raw value at key together with a Merkle
// proof of its (non-)membership against the current root.
func (s *StateStore) GetWithProof(ctx context.Context, key []byte) ([]byte, smt.MerkleProof, error) {
	value, _, err := s.db.Get(ctx, key)
	if err != nil {
		return nil, smt.MerkleProof{}, fmt.Errorf("statestore: get with proof: %w", err)
	}
	return value, s.tree.GetProof(key), nil
}

// GetProof returns a Merkle proof for key without fetching its value.
func (s *StateStore) GetProof(key []byte) smt.MerkleProof {
	return s.tree.GetProof(key)
}

// InsertRaw writes raw bytes to key in both the durable map and the
// trie, returning the witness binding the root change.
func (s *StateStore) InsertRaw(ctx context.Context, key, value []byte) (smt.UpdateWitness, error) {
	if err := s.db.Put(ctx, key, value); err != nil {
		return smt.UpdateWitness{}, fmt.Errorf("%w: %v", zkerr.ErrDatabase, err)
	}
	return s.tree.Insert(key, value), nil
}

// Insert CBOR-encodes value and writes it to key.
func Insert[V any](ctx context.Context, s *StateStore, key []byte, value V) (smt.UpdateWitness, error) {
	data, err := cbor.Marshal(value)
	if err != nil {
		return smt.UpdateWitness{}, fmt.Errorf("%w: %v", zkerr.ErrEncoding, err)
	}
	return s.InsertRaw(ctx, key, data)
}

// Delete removes key from both the durable map and the trie.
func (s *StateStore) Delete(ctx context.Context, key []byte) (smt.UpdateWitness, error) {
	if err := s.db.Delete(ctx, key); err != nil {
		return smt.UpdateWitness{}, fmt.Errorf("%w: %v", zkerr.ErrDatabase, err)
	}
	return s.tree.Delete(key), nil
}

// Op is a single state mutation, used by ApplyBatch and TransitionBuilder.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// InsertOp builds an insert Op.
func InsertOp(key, value []byte) Op { return Op{Key: key, Value: value} }

// DeleteOp builds a delete Op.
func DeleteOp(key []byte) Op { return Op{Key: key, Delete: true} }

// ApplyBatch applies ops in order and returns one witness per op.
func (s *StateStore) ApplyBatch(ctx context.Context, ops []Op) ([]smt.UpdateWitness, error) {
	witnesses := make([]smt.UpdateWitness, 0, len(ops))
	for _, op := range ops {
		var w smt.UpdateWitness
		var err error
		if op.Delete {
			w, err = s.Delete(ctx, op.Key)
		} else {
			w, err = s.InsertRaw(ctx, op.Key, op.Value)
		}
		if err != nil {
			return nil, err
		}
		witnesses = append(witnesses, w)
	}
	return witnesses, nil
}

// Commit persists the trie and transition index, advances the
// transition index, and returns the new root.
func (s *StateStore) Commit(ctx context.Context) (hashing.Hash, error) {
	s.index++

	treeData, err := s.tree.Serialize()
	if err != nil {
		return hashing.Hash{}, fmt.Errorf("statestore: serialize trie: %w", err)
	}
	if err := s.db.Put(ctx, keyMerkleTree, treeData); err != nil {
		return hashing.Hash{}, fmt.Errorf("%w: %v", zkerr.ErrDatabase, err)
	}

	var indexBuf [8]byte
	binary.BigEndian.PutUint64(indexBuf[:], s.index)
	if err := s.db.Put(ctx, keyTransitionIndex, indexBuf[:]); err != nil {
		return hashing.Hash{}, fmt.Errorf("%w: %v", zkerr.ErrDatabase, err)
	}

	if err := s.db.Flush(ctx); err != nil {
		return hashing.Hash{}, fmt.Errorf("%w: %v", zkerr.ErrDatabase, err)
	}

	return s.tree.Root(), nil
}

// ScanPrefix iterates over every raw key/value pair with the given
// prefix, in ascending key order.
func (s *StateStore) ScanPrefix(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return s.db.ScanPrefix(ctx, prefix, fn)
}

// Close releases the underlying durable store.
func (s *StateStore) Close() error { return s.db.Close() }
