// Package localharness implements host.Harness directly over pkg/guest, with
// no cryptographic proof: Prove's "proof" bytes are just the CBOR-encoded
// output. It is the default backend for development, tests, and
// deployments that trust their own node process (or layer trust some other
// way) rather than verifying a succinct proof.
package localharness

import (
	"context"
	"crypto/sha256"

	"github.com/muridata/zkstate/pkg/guest"
	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/host"
	"github.com/muridata/zkstate/pkg/transition"
)

// version is folded into ProgramHash so that a change to the guest's
// verification semantics changes the reported program hash even though
// there is no ELF image to hash directly.
const version = "zkstate-guest-v1"

// Harness is the zero-proving-backend host.Harness.
type Harness struct {
	hasher hashing.Hasher
}

var _ host.Harness = (*Harness)(nil)

// New constructs a Harness using the default SHA-256 hasher.
func New() *Harness {
	return &Harness{hasher: hashing.SHA256Hasher{}}
}

// NewWithHasher constructs a Harness parameterized over hasher, for trees
// built with the Poseidon2 hasher instead of the default.
func NewWithHasher(hasher hashing.Hasher) *Harness {
	return &Harness{hasher: hasher}
}

// ProgramHash returns a fixed fingerprint of this harness's guest version.
func (h *Harness) ProgramHash() hashing.Hash {
	return sha256.Sum256([]byte(version))
}

// Execute replays input through the guest with no proof attached.
func (h *Harness) Execute(ctx context.Context, input transition.TransitionInput) (transition.TransitionOutput, error) {
	select {
	case <-ctx.Done():
		return transition.TransitionOutput{}, ctx.Err()
	default:
	}
	return guest.VerifyWithHasher(h.hasher, input)
}

// Prove executes input and packages the output as a self-attested,
// unproven ProofResult: the "proof" bytes are just the encoded output, so a
// Verify call can round-trip it.
func (h *Harness) Prove(ctx context.Context, input transition.TransitionInput) (host.ProofResult, error) {
	output, err := h.Execute(ctx, input)
	if err != nil {
		return host.ProofResult{}, &host.ProverError{Stage: "execution", Err: err}
	}
	data, err := output.Encode()
	if err != nil {
		return host.ProofResult{}, &host.ProverError{Stage: "proof generation", Err: err}
	}
	return host.ProofResult{Output: output, ProofData: data}, nil
}

// Verify decodes localharness proof bytes back into their output. There is
// no cryptographic check beyond decoding: a caller that needs an actual
// soundness guarantee should use gnarkprover instead.
func (h *Harness) Verify(ctx context.Context, proofData []byte) (transition.TransitionOutput, error) {
	output, err := transition.DecodeTransitionOutput(proofData)
	if err != nil {
		return transition.TransitionOutput{}, &host.ProverError{Stage: "output decode", Err: err}
	}
	return output, nil
}
