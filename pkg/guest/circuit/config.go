// Package circuit renders the guest's witness-chain and leaf-hash checks as a
// gnark R1CS circuit, for deployments that want a succinct Groth16 proof
// instead of (or in addition to) the plain-Go localharness replay.
//
// A single circuit instance proves a fixed-size batch of MaxWitnesses leaf
// updates; a transition with more updates than that is split across several
// proofs by the caller. This mirrors the teacher's own openings-per-proof
// convention (its PoI circuit proves a fixed OpeningsCount openings per
// proof, not an arbitrary number).
package circuit

// MaxWitnesses bounds how many leaf updates a single TransitionCircuit
// instance proves. Larger batches are split by the caller into several
// proofs chained by PrevRoot/NewRoot.
const MaxWitnesses = 4

// Depth is the trie depth every witness's sibling path is padded or
// truncated to, matching smt.DefaultDepth.
const Depth = 160
