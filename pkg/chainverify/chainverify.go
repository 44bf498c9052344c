// Package chainverify independently re-verifies a posted transition chain
// straight from the DA layer: fetch every blob in a height range, decode,
// sort by sequence, and walk the chain checking program-hash binding, root
// continuity, and (unless explicitly skipped) proof validity.
package chainverify

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/muridata/zkstate/pkg/blob"
	"github.com/muridata/zkstate/pkg/da"
	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/host"
	"github.com/muridata/zkstate/pkg/zkerr"
)

// VerifyConfig parameterizes a chain verification run.
type VerifyConfig struct {
	// Namespace is the DA namespace to read blobs from.
	Namespace da.Namespace
	// ExpectedProgramHash overrides the harness's own ProgramHash check
	// when set; otherwise the harness's value is used.
	ExpectedProgramHash *hashing.Hash
	// SkipProofVerification checks only root continuity and program hash,
	// not proof validity, matching a light client that trusts a proof's
	// mere presence.
	SkipProofVerification bool
	// ExpectedFirstRoot, if set, pins the chain's starting root instead
	// of trusting the first blob's own PrevRoot field.
	ExpectedFirstRoot *hashing.Hash
}

// VerificationResult summarizes a verified range of the chain.
type VerificationResult struct {
	TotalTransitions    uint64
	FirstRoot           hashing.Hash
	LatestRoot          hashing.Hash
	FirstSequence       uint64
	LastSequence        uint64
	HeightRange         [2]uint64
	UnverifiedSequences []uint64
}

type heightedTransition struct {
	height uint64
	blob   blob.BlobV1
}

// VerifyRange fetches every blob in [fromHeight, toHeight] under config's
// namespace, sorts them by sequence, and replays the chain's invariants.
func VerifyRange(ctx context.Context, client da.Client, harness host.Harness, config VerifyConfig, fromHeight, toHeight uint64) (VerificationResult, error) {
	logger := log.With().Str("component", "chainverify").Logger()
	logger.Info().Uint64("from", fromHeight).Uint64("to", toHeight).Msg("verifying transition chain")

	fetched, err := client.GetBlobsRange(ctx, config.Namespace, fromHeight, toHeight)
	if err != nil {
		return VerificationResult{}, fmt.Errorf("chainverify: fetch blobs: %w", err)
	}
	if len(fetched) == 0 {
		return VerificationResult{}, zkerr.ErrNoBlobsFound
	}

	transitions := make([]heightedTransition, 0, len(fetched))
	for _, hb := range fetched {
		b, err := blob.Decode(hb.Blob.Data)
		if err != nil {
			return VerificationResult{}, fmt.Errorf("chainverify: decode blob at height %d: %w", hb.Height, err)
		}
		transitions = append(transitions, heightedTransition{height: hb.Height, blob: b})
	}
	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].blob.Sequence < transitions[j].blob.Sequence
	})
	for i := 1; i < len(transitions); i++ {
		if transitions[i].blob.Sequence == transitions[i-1].blob.Sequence {
			return VerificationResult{}, fmt.Errorf("chainverify: duplicate sequence %d at heights %d and %d",
				transitions[i].blob.Sequence, transitions[i-1].height, transitions[i].height)
		}
	}

	expectedProgramHash := harness.ProgramHash()
	if config.ExpectedProgramHash != nil {
		expectedProgramHash = *config.ExpectedProgramHash
	}

	first := transitions[0]
	currentRoot := first.blob.PrevRoot
	if config.ExpectedFirstRoot != nil {
		currentRoot = *config.ExpectedFirstRoot
	}
	result := VerificationResult{
		FirstRoot:     currentRoot,
		FirstSequence: first.blob.Sequence,
	}
	result.HeightRange[0] = first.height

	for _, t := range transitions {
		b := t.blob
		logger.Debug().Uint64("sequence", b.Sequence).Uint64("height", t.height).Msg("verifying transition")

		if b.ProgramHash != expectedProgramHash {
			return VerificationResult{}, &zkerr.ProgramHashMismatchError{Sequence: b.Sequence}
		}
		if b.PrevRoot != currentRoot {
			return VerificationResult{}, &zkerr.RootChainBrokenError{Sequence: b.Sequence, Expected: currentRoot, Actual: b.PrevRoot}
		}

		if !config.SkipProofVerification && len(b.Proof) > 0 {
			output, err := harness.Verify(ctx, b.Proof)
			if err != nil {
				return VerificationResult{}, fmt.Errorf("%w: sequence %d: %v", zkerr.ErrInvalidProof, b.Sequence, err)
			}
			if output.PrevRoot != b.PrevRoot || output.NewRoot != b.NewRoot {
				return VerificationResult{}, fmt.Errorf("%w: sequence %d: proof output does not match blob roots", zkerr.ErrInvalidProof, b.Sequence)
			}
		} else if len(b.Proof) == 0 {
			result.UnverifiedSequences = append(result.UnverifiedSequences, b.Sequence)
		}

		currentRoot = b.NewRoot
		result.LastSequence = b.Sequence
		result.HeightRange[1] = t.height
	}

	result.TotalTransitions = uint64(len(transitions))
	result.LatestRoot = currentRoot

	logger.Info().
		Uint64("total", result.TotalTransitions).
		Str("first_root", result.FirstRoot.String()).
		Str("latest_root", result.LatestRoot.String()).
		Msg("verification complete")

	return result, nil
}

