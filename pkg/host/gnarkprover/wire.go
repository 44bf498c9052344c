package gnarkprover

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// fileBuffer adapts bytes.Buffer to the io.WriterTo-compatible io.Writer
// gnark's serialization methods expect.
type fileBuffer struct {
	bytes.Buffer
}

// packProof concatenates the encoded output and the serialized Groth16
// proof into a single length-prefixed blob, so ProofResult.ProofData stays
// a single opaque byte slice.
func packProof(outputBytes, proofBytes []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(outputBytes))); err != nil {
		return nil, fmt.Errorf("gnarkprover: pack proof: %w", err)
	}
	buf.Write(outputBytes)
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(proofBytes))); err != nil {
		return nil, fmt.Errorf("gnarkprover: pack proof: %w", err)
	}
	buf.Write(proofBytes)
	return buf.Bytes(), nil
}

// unpackProof reverses packProof.
func unpackProof(data []byte) (outputBytes, proofBytes []byte, err error) {
	r := bytes.NewReader(data)

	var outLen uint32
	if err := binary.Read(r, binary.BigEndian, &outLen); err != nil {
		return nil, nil, fmt.Errorf("gnarkprover: unpack proof: read output length: %w", err)
	}
	outputBytes = make([]byte, outLen)
	if _, err := io.ReadFull(r, outputBytes); err != nil {
		return nil, nil, fmt.Errorf("gnarkprover: unpack proof: read output: %w", err)
	}

	var proofLen uint32
	if err := binary.Read(r, binary.BigEndian, &proofLen); err != nil {
		return nil, nil, fmt.Errorf("gnarkprover: unpack proof: read proof length: %w", err)
	}
	proofBytes = make([]byte, proofLen)
	if _, err := io.ReadFull(r, proofBytes); err != nil {
		return nil, nil, fmt.Errorf("gnarkprover: unpack proof: read proof: %w", err)
	}

	return outputBytes, proofBytes, nil
}

// newByteReader wraps a byte slice as an io.ReaderFrom-compatible
// io.Reader, matching what gnark's ReadFrom methods expect.
func newByteReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}
