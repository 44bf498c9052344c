package node

import "github.com/muridata/zkstate/pkg/da"

// Config parameterizes a Node's storage, DA target, and which stages
// of ApplyTransition actually run.
type Config struct {
	// DataDir is where the durable state store is persisted. Empty
	// means in-memory, no durable backing.
	DataDir string
	// AppID tags every blob this node posts.
	AppID []byte
	// Namespace is the DA namespace blobs are submitted under.
	Namespace da.Namespace
	// PostingEnabled controls whether ApplyTransition submits blobs to
	// the DA client at all. Disabled for tests that only care about
	// local state transitions.
	PostingEnabled bool
	// ProvingEnabled controls whether ApplyTransition calls the
	// harness's Prove (real or self-attested proof bytes) or just
	// Execute (no proof at all, empty ProofData in the blob).
	ProvingEnabled bool
}

// DefaultConfig returns a Config suitable for local development: an
// in-memory store, posting and proving both enabled, namespace
// "zkapp".
func DefaultConfig() Config {
	return Config{
		AppID:          []byte("default-app"),
		Namespace:      da.NamespaceFromString("zkapp"),
		PostingEnabled: true,
		ProvingEnabled: true,
	}
}
