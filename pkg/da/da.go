// Package da defines the data-availability boundary a node posts committed
// transition blobs through and a verifier retrieves them from. Namespace
// follows the 29-byte (1-byte version + 28-byte ID) convention of a
// Celestia-style DA layer; Client abstracts over the concrete backend
// (in-memory for tests, JSON-RPC for a real DA node).
package da

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Namespace scopes blobs within a DA layer to one application.
type Namespace struct {
	Version byte
	ID      [28]byte
}

// NamespaceFromString derives a namespace from a human-readable name,
// right-aligning it in the 28-byte ID with zero padding on the left, the
// way Celestia's user namespaces are conventionally derived. Names longer
// than 28 bytes are truncated to their first 28 bytes.
func NamespaceFromString(name string) Namespace {
	var ns Namespace
	b := []byte(name)
	n := len(b)
	if n > 28 {
		n = 28
	}
	copy(ns.ID[28-n:], b[:n])
	return ns
}

// NamespaceFromBytes parses a 29-byte namespace encoding.
func NamespaceFromBytes(b []byte) (Namespace, error) {
	if len(b) != 29 {
		return Namespace{}, fmt.Errorf("da: namespace must be 29 bytes, got %d", len(b))
	}
	var ns Namespace
	ns.Version = b[0]
	copy(ns.ID[:], b[1:])
	return ns, nil
}

// Bytes returns the 29-byte encoding of ns.
func (ns Namespace) Bytes() []byte {
	out := make([]byte, 0, 29)
	out = append(out, ns.Version)
	out = append(out, ns.ID[:]...)
	return out
}

// Base64 renders ns for use in a JSON-RPC call.
func (ns Namespace) Base64() string {
	return base64.StdEncoding.EncodeToString(ns.Bytes())
}

// SubmitResult is what a successful blob submission reports back.
type SubmitResult struct {
	Height     uint64
	Commitment []byte
}

// RetrievedBlob is one blob retrieved from the DA layer at a given height.
type RetrievedBlob struct {
	Data       []byte
	Namespace  []byte
	Commitment []byte
	Index      uint32
}

// ErrBlobNotFound names the case of a requested height/namespace with no
// blobs, as distinct from a transport failure. The clients in this module
// do not return it: memda and rpcda report a height with no blobs as a nil
// slice and a nil error.
var ErrBlobNotFound = fmt.Errorf("da: blob not found")

// Client is the data-availability boundary: submit a blob under a
// namespace, retrieve blobs at a height or across a height range, and
// check basic liveness of the underlying DA node.
type Client interface {
	SubmitBlob(ctx context.Context, ns Namespace, data []byte) (SubmitResult, error)
	GetBlobs(ctx context.Context, ns Namespace, height uint64) ([]RetrievedBlob, error)
	GetBlobsRange(ctx context.Context, ns Namespace, fromHeight, toHeight uint64) ([]HeightBlob, error)
	GetHeadHeight(ctx context.Context) (uint64, error)
	IsReady(ctx context.Context) (bool, error)
}

// HeightBlob pairs a retrieved blob with the height it was found at, for
// range queries that span several heights.
type HeightBlob struct {
	Height uint64
	Blob   RetrievedBlob
}
