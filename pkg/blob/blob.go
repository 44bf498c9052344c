// Package blob defines the canonical encoding of a state transition as it is
// posted to a data-availability layer: BlobV1, a versioned, self-describing
// record independently verifiable without any other context besides the
// program hash it claims to be proved against.
package blob

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/zkerr"
)

// SchemaVersion is the current BlobV1 schema version.
const SchemaVersion uint8 = 1

// BlobV1 carries everything needed to independently verify one state
// transition once retrieved from the DA layer: which program proved it,
// the root transition it attests to, and the proof bytes themselves.
type BlobV1 struct {
	Version     uint8
	AppID       []byte
	Sequence    uint64
	PrevRoot    hashing.Hash
	NewRoot     hashing.Hash
	PublicInputs  []byte
	PublicOutputs []byte
	Proof       []byte
	ProgramHash hashing.Hash
	Timestamp   *uint64
	Signature   []byte
}

// New constructs a BlobV1 at the current schema version, with no public
// outputs, timestamp, or signature set.
func New(appID []byte, sequence uint64, prevRoot, newRoot hashing.Hash, publicInputs, proof []byte, programHash hashing.Hash) BlobV1 {
	return BlobV1{
		Version:      SchemaVersion,
		AppID:        appID,
		Sequence:     sequence,
		PrevRoot:     prevRoot,
		NewRoot:      newRoot,
		PublicInputs: publicInputs,
		Proof:        proof,
		ProgramHash:  programHash,
	}
}

// WithPublicOutputs returns a copy of b with PublicOutputs set.
func (b BlobV1) WithPublicOutputs(outputs []byte) BlobV1 {
	b.PublicOutputs = outputs
	return b
}

// WithTimestamp returns a copy of b with Timestamp set.
func (b BlobV1) WithTimestamp(ts uint64) BlobV1 {
	b.Timestamp = &ts
	return b
}

// WithSignature returns a copy of b with Signature set.
func (b BlobV1) WithSignature(sig []byte) BlobV1 {
	b.Signature = sig
	return b
}

// Encode serializes b to its canonical CBOR encoding, the bytes actually
// submitted to the DA layer.
func (b BlobV1) Encode() ([]byte, error) {
	data, err := cbor.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: encode blob: %v", zkerr.ErrEncoding, err)
	}
	return data, nil
}

// Decode parses bytes retrieved from the DA layer, rejecting anything that
// does not declare SchemaVersion.
func Decode(data []byte) (BlobV1, error) {
	var b BlobV1
	if err := cbor.Unmarshal(data, &b); err != nil {
		return BlobV1{}, fmt.Errorf("%w: decode blob: %v", zkerr.ErrEncoding, err)
	}
	if b.Version != SchemaVersion {
		return BlobV1{}, &zkerr.InvalidVersionError{Expected: SchemaVersion, Got: b.Version}
	}
	return b, nil
}

// Hash returns the blob's content hash, used for indexing and as part of
// SigningMessage.
func (b BlobV1) Hash() (hashing.Hash, error) {
	encoded, err := b.Encode()
	if err != nil {
		return hashing.Hash{}, err
	}
	return sha256.Sum256(encoded), nil
}

// SigningMessage returns the canonical message a sequencer signs over:
// sequence (8 bytes, little-endian) || prev_root || new_root ||
// program_hash || blob_hash.
func (b BlobV1) SigningMessage() ([]byte, error) {
	h, err := b.Hash()
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, 8+32+32+32+32)
	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], b.Sequence)
	msg = append(msg, seqBuf[:]...)
	msg = append(msg, b.PrevRoot[:]...)
	msg = append(msg, b.NewRoot[:]...)
	msg = append(msg, b.ProgramHash[:]...)
	msg = append(msg, h[:]...)
	return msg, nil
}
