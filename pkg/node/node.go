// Package node wires the state store, the host harness, and a DA
// client into the single operation an application actually drives:
// apply a batch of operations, prove the resulting transition, and
// post it for anyone to independently re-verify.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/muridata/zkstate/pkg/blob"
	"github.com/muridata/zkstate/pkg/chainverify"
	"github.com/muridata/zkstate/pkg/da"
	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/host"
	"github.com/muridata/zkstate/pkg/kv"
	"github.com/muridata/zkstate/pkg/smt"
	"github.com/muridata/zkstate/pkg/statestore"
	"github.com/muridata/zkstate/pkg/transition"
)

// Stage names where in ApplyTransition's pipeline a Node currently is,
// for introspection and logging.
type Stage string

const (
	StageIdle     Stage = "idle"
	StageApplying Stage = "applying"
	StageProving  Stage = "proving"
	StagePosting  Stage = "posting"
	StageCommitted Stage = "committed"
)

// RootHistoryEntry records one committed root and, if it was posted,
// the DA height it landed at.
type RootHistoryEntry struct {
	Sequence uint64
	Root     hashing.Hash
	Height   *uint64
}

// TransitionResult is what ApplyTransition returns: the committed
// roots, the proof bytes (empty if proving was disabled), the blob
// that was (or would have been) posted, and the DA height if posting
// succeeded.
type TransitionResult struct {
	Sequence uint64
	PrevRoot hashing.Hash
	NewRoot  hashing.Hash
	Proof    []byte
	Blob     blob.BlobV1
	Height   *uint64
}

// Node owns the durable, Merkle-committed state store, a proving
// harness, and a DA client, and serializes every state transition
// through a single Idle->Applying->Proving->Posting->Committed
// pipeline.
type Node struct {
	mu sync.RWMutex

	store   *statestore.StateStore
	da      da.Client
	harness host.Harness
	config  Config
	metrics *Metrics
	log     zerolog.Logger

	stage       Stage
	rootHistory []RootHistoryEntry
}

// Open constructs a Node backed by a durable file store at
// config.DataDir (or in-memory if empty), against the given DA client
// and proving harness. metrics may be nil, in which case the Node
// tracks its counters against an unregistered, inert registry.
func Open(ctx context.Context, config Config, daClient da.Client, harness host.Harness, metrics *Metrics) (*Node, error) {
	var db kv.Store
	if config.DataDir == "" {
		db = kv.NewMemoryStore()
	} else {
		fs, err := kv.OpenFileStore(config.DataDir + "/state.db")
		if err != nil {
			return nil, fmt.Errorf("node: open state store: %w", err)
		}
		db = fs
	}

	store, err := statestore.Open(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("node: open state: %w", err)
	}

	if metrics == nil {
		metrics = noopMetrics()
	}

	n := &Node{
		store:   store,
		da:      daClient,
		harness: harness,
		config:  config,
		metrics: metrics,
		log:     log.With().Str("component", "node").Logger(),
		stage:   StageIdle,
		rootHistory: []RootHistoryEntry{
			{Sequence: 0, Root: store.Root()},
		},
	}
	return n, nil
}

// stageSet records the pipeline stage under the write lock the caller
// already holds.
func (n *Node) stageSet(s Stage) {
	n.stage = s
	n.log.Debug().Str("stage", string(s)).Msg("stage transition")
}

// Stage returns the current pipeline stage.
func (n *Node) Stage() Stage {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stage
}

// Root returns the current committed state root.
func (n *Node) Root() hashing.Hash {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.store.Root()
}

// TransitionIndex returns the number of transitions committed so far.
func (n *Node) TransitionIndex() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.store.TransitionIndex()
}

// Get returns the raw value stored at key.
func (n *Node) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.store.GetRaw(ctx, key)
}

// GetWithProof returns the raw value at key together with a Merkle
// proof of its (non-)membership against the current root.
func (n *Node) GetWithProof(ctx context.Context, key []byte) ([]byte, smt.MerkleProof, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.store.GetWithProof(ctx, key)
}

// History returns a copy of the node's root history, oldest first.
func (n *Node) History() []RootHistoryEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]RootHistoryEntry, len(n.rootHistory))
	copy(out, n.rootHistory)
	return out
}

// ApplyTransition applies ops to the state store, generates a proof
// (or just executes, if proving is disabled), and posts the resulting
// blob to the DA layer (unless posting is disabled). A DA submission
// failure is logged and does not fail the transition: the transition
// is already durably committed locally by the time posting runs, so
// the node falls behind the DA layer rather than losing state.
func (n *Node) ApplyTransition(ctx context.Context, ops []statestore.Op, publicInputs, privateInputs []byte, verifiableOps []transition.VerifiableOperation) (TransitionResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.stageSet(StageApplying)

	prevRoot := n.store.Root()
	sequence := n.store.TransitionIndex() + 1

	n.log.Info().Uint64("sequence", sequence).Int("ops", len(ops)).Msg("applying transition")

	witnesses, err := n.store.ApplyBatch(ctx, ops)
	if err != nil {
		n.stageSet(StageIdle)
		return TransitionResult{}, fmt.Errorf("node: apply batch: %w", err)
	}

	newRoot, err := n.store.Commit(ctx)
	if err != nil {
		n.stageSet(StageIdle)
		return TransitionResult{}, fmt.Errorf("node: commit: %w", err)
	}

	n.log.Debug().Str("prev_root", prevRoot.String()).Str("new_root", newRoot.String()).Msg("state updated")

	input := transition.NewTransitionInput(prevRoot, publicInputs, privateInputs, witnesses, verifiableOps)

	n.stageSet(StageProving)
	proveStart := time.Now()

	var output transition.TransitionOutput
	var proofBytes []byte
	if n.config.ProvingEnabled {
		result, err := n.harness.Prove(ctx, input)
		if err != nil {
			n.stageSet(StageIdle)
			return TransitionResult{}, fmt.Errorf("node: prove: %w", err)
		}
		output, proofBytes = result.Output, result.ProofData
	} else {
		output, err = n.harness.Execute(ctx, input)
		if err != nil {
			n.stageSet(StageIdle)
			return TransitionResult{}, fmt.Errorf("node: execute: %w", err)
		}
	}
	n.metrics.proofSeconds.Observe(time.Since(proveStart).Seconds())

	if output.PrevRoot != prevRoot {
		n.stageSet(StageIdle)
		return TransitionResult{}, fmt.Errorf("node: harness output prev_root %s does not match applied prev_root %s", output.PrevRoot, prevRoot)
	}
	if output.NewRoot != newRoot {
		n.stageSet(StageIdle)
		return TransitionResult{}, fmt.Errorf("node: harness output new_root %s does not match committed new_root %s", output.NewRoot, newRoot)
	}

	b := blob.New(n.config.AppID, sequence, prevRoot, newRoot, publicInputs, proofBytes, n.harness.ProgramHash()).
		WithPublicOutputs(output.PublicOutputs).
		WithTimestamp(uint64(time.Now().Unix()))

	n.stageSet(StagePosting)

	var height *uint64
	if n.config.PostingEnabled {
		blobBytes, err := b.Encode()
		if err != nil {
			n.stageSet(StageIdle)
			return TransitionResult{}, fmt.Errorf("node: encode blob: %w", err)
		}

		n.log.Info().Int("bytes", len(blobBytes)).Msg("posting blob to DA layer")
		result, err := n.da.SubmitBlob(ctx, n.config.Namespace, blobBytes)
		if err != nil {
			n.metrics.daPostFailures.Inc()
			n.log.Warn().Err(err).Msg("failed to post blob to DA layer")
		} else {
			n.log.Info().Uint64("height", result.Height).Msg("blob posted")
			h := result.Height
			height = &h
		}
	}

	n.rootHistory = append(n.rootHistory, RootHistoryEntry{Sequence: sequence, Root: newRoot, Height: height})
	n.metrics.transitionsTotal.Inc()
	n.stageSet(StageCommitted)
	n.stageSet(StageIdle)

	return TransitionResult{
		Sequence: sequence,
		PrevRoot: prevRoot,
		NewRoot:  newRoot,
		Proof:    proofBytes,
		Blob:     b,
		Height:   height,
	}, nil
}

// VerifyRange independently re-verifies the posted chain over
// [fromHeight, toHeight] straight from this node's own DA client and
// harness, the same check any external party can run without trusting
// this node's local state at all.
func (n *Node) VerifyRange(ctx context.Context, config chainverify.VerifyConfig, fromHeight, toHeight uint64) (chainverify.VerificationResult, error) {
	return chainverify.VerifyRange(ctx, n.da, n.harness, config, fromHeight, toHeight)
}

// Close releases the underlying state store.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.store.Close()
}
