// Package config loads the typed configuration a zkstate node runs
// with, from the environment, generalizing the teacher's bare
// compile-time constants into fields a deployment actually varies.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/muridata/zkstate/pkg/da"
)

// Config is everything a node needs at startup: where to persist
// state, which application it is, and how to reach the DA layer.
type Config struct {
	// DataDir is where the durable state store is persisted. Empty
	// means in-memory.
	DataDir string
	// AppID tags every blob this node posts.
	AppID string
	// Namespace is the DA namespace blobs are submitted under.
	Namespace string
	// DARPCURL is the DA node's JSON-RPC endpoint.
	DARPCURL string
	// PostingEnabled controls whether a node posts blobs to the DA
	// layer at all.
	PostingEnabled bool
	// ProvingEnabled controls whether a node calls its harness's Prove
	// (and posts proof bytes) or only Execute (no proof). Which harness
	// backs the node is chosen separately.
	ProvingEnabled bool
	// TreeDepth is the sparse Merkle tree's fixed depth.
	TreeDepth int
}

const (
	envDataDir        = "ZKSTATE_DATA_DIR"
	envAppID          = "ZKSTATE_APP_ID"
	envNamespace      = "ZKSTATE_NAMESPACE"
	envDARPCURL       = "ZKSTATE_DA_RPC_URL"
	envPostingEnabled = "ZKSTATE_POSTING_ENABLED"
	envProvingEnabled = "ZKSTATE_PROVING_ENABLED"
	envTreeDepth      = "ZKSTATE_TREE_DEPTH"
)

// Default returns the configuration a node runs with if no
// environment variables are set: in-memory store, namespace "zkapp",
// posting and proving both enabled, depth 160 (matching
// pkg/guest/circuit.Depth).
func Default() Config {
	return Config{
		AppID:          "default-app",
		Namespace:      "zkapp",
		DARPCURL:       "http://localhost:26658",
		PostingEnabled: true,
		ProvingEnabled: true,
		TreeDepth:      160,
	}
}

// FromEnv loads a Config from the environment, falling back to
// Default's values for anything unset.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv(envDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(envAppID); v != "" {
		cfg.AppID = v
	}
	if v := os.Getenv(envNamespace); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv(envDARPCURL); v != "" {
		cfg.DARPCURL = v
	}
	if v := os.Getenv(envPostingEnabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", envPostingEnabled, err)
		}
		cfg.PostingEnabled = b
	}
	if v := os.Getenv(envProvingEnabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", envProvingEnabled, err)
		}
		cfg.ProvingEnabled = b
	}
	if v := os.Getenv(envTreeDepth); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", envTreeDepth, err)
		}
		cfg.TreeDepth = d
	}

	return cfg, nil
}

// DANamespace parses Namespace into a da.Namespace.
func (c Config) DANamespace() da.Namespace {
	return da.NamespaceFromString(c.Namespace)
}
