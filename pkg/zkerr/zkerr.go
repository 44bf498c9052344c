// Package zkerr defines the named error kinds shared across the
// transition engine, so callers can distinguish failure classes with
// errors.Is/errors.As instead of matching on message text.
package zkerr

import (
	"errors"
	"fmt"

	"github.com/muridata/zkstate/pkg/hashing"
)

var (
	// ErrEncoding covers any canonical-encoding failure (blob, witness,
	// transition input/output).
	ErrEncoding = errors.New("zkerr: encoding failure")

	// ErrInvalidProof is returned when a proof fails cryptographic
	// verification.
	ErrInvalidProof = errors.New("zkerr: invalid proof")

	// ErrKeyNotFound is returned when a lookup misses.
	ErrKeyNotFound = errors.New("zkerr: key not found")

	// ErrDatabase wraps an underlying durable-store failure.
	ErrDatabase = errors.New("zkerr: database error")

	// ErrProofGeneration is returned when the prover backend fails to
	// produce a proof.
	ErrProofGeneration = errors.New("zkerr: proof generation failed")

	// ErrVerification is returned when proof verification itself errors
	// out (as opposed to returning a sound "invalid" result).
	ErrVerification = errors.New("zkerr: verification failed")

	// ErrExecution is returned when the guest fails to execute (without
	// proving).
	ErrExecution = errors.New("zkerr: execution failed")

	// ErrOutputDecode is returned when a transition output cannot be
	// decoded from a proof's public values.
	ErrOutputDecode = errors.New("zkerr: output decode failed")

	// ErrNoBlobsFound is returned when a chain-verify range produced no
	// transitions at all.
	ErrNoBlobsFound = errors.New("zkerr: no blobs found in range")
)

// InvalidVersionError reports a blob whose schema version does not
// match what this build understands.
type InvalidVersionError struct {
	Expected byte
	Got      byte
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("zkerr: invalid blob version: expected %d, got %d", e.Expected, e.Got)
}

// TransportError reports a DA transport failure (JSON-RPC error object
// or HTTP-level failure).
type TransportError struct {
	Code    int64
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("zkerr: transport error: code=%d message=%s", e.Code, e.Message)
}

// RootChainBrokenError reports a break in root continuity while
// verifying a sequence of transitions: the blob at Sequence claimed a
// prev_root that does not match the running root.
type RootChainBrokenError struct {
	Sequence uint64
	Expected hashing.Hash
	Actual   hashing.Hash
}

func (e *RootChainBrokenError) Error() string {
	return fmt.Sprintf("zkerr: root chain broken at sequence %d: expected prev_root %s, got %s",
		e.Sequence, e.Expected, e.Actual)
}

// ProgramHashMismatchError reports a blob whose program_hash does not
// match the program hash the verifier was configured to expect.
type ProgramHashMismatchError struct {
	Sequence uint64
}

func (e *ProgramHashMismatchError) Error() string {
	return fmt.Sprintf("zkerr: program hash mismatch at sequence %d", e.Sequence)
}
