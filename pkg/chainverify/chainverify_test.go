package chainverify

import (
	"context"
	"errors"
	"testing"

	"github.com/muridata/zkstate/pkg/blob"
	"github.com/muridata/zkstate/pkg/da"
	"github.com/muridata/zkstate/pkg/da/memda"
	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/host/localharness"
	"github.com/muridata/zkstate/pkg/smt"
	"github.com/muridata/zkstate/pkg/transition"
	"github.com/muridata/zkstate/pkg/zkerr"
)

func postBlob(t *testing.T, ctx context.Context, client *memda.Client, ns da.Namespace, programHash hashing.Hash, sequence uint64, prevRoot, newRoot hashing.Hash) {
	t.Helper()
	b := blob.New([]byte("app"), sequence, prevRoot, newRoot, nil, nil, programHash)
	data, err := b.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := client.SubmitBlob(ctx, ns, data); err != nil {
		t.Fatalf("SubmitBlob: %v", err)
	}
}

func TestVerifyRangeSucceedsOnCoherentChain(t *testing.T) {
	ctx := context.Background()
	client := memda.New()
	ns := da.NamespaceFromString("zkapp")
	harness := localharness.New()

	genesis := hashing.Hash{}
	r1 := hashing.Hash{1}
	r2 := hashing.Hash{2}
	r3 := hashing.Hash{3}

	postBlob(t, ctx, client, ns, harness.ProgramHash(), 1, genesis, r1)
	postBlob(t, ctx, client, ns, harness.ProgramHash(), 2, r1, r2)
	postBlob(t, ctx, client, ns, harness.ProgramHash(), 3, r2, r3)

	result, err := VerifyRange(ctx, client, harness, VerifyConfig{Namespace: ns, SkipProofVerification: true}, 1, 3)
	if err != nil {
		t.Fatalf("VerifyRange: %v", err)
	}
	if result.TotalTransitions != 3 {
		t.Fatalf("TotalTransitions = %d, want 3", result.TotalTransitions)
	}
	if result.FirstRoot != genesis || result.LatestRoot != r3 {
		t.Fatalf("FirstRoot/LatestRoot = %v/%v, want %v/%v", result.FirstRoot, result.LatestRoot, genesis, r3)
	}
	if result.FirstSequence != 1 || result.LastSequence != 3 {
		t.Fatalf("FirstSequence/LastSequence = %d/%d, want 1/3", result.FirstSequence, result.LastSequence)
	}
}

func TestVerifyRangeDetectsBrokenRootChain(t *testing.T) {
	ctx := context.Background()
	client := memda.New()
	ns := da.NamespaceFromString("zkapp")
	harness := localharness.New()

	genesis := hashing.Hash{}
	r1 := hashing.Hash{1}
	unrelated := hashing.Hash{99}
	r2 := hashing.Hash{2}

	postBlob(t, ctx, client, ns, harness.ProgramHash(), 1, genesis, r1)
	postBlob(t, ctx, client, ns, harness.ProgramHash(), 2, unrelated, r2)

	_, err := VerifyRange(ctx, client, harness, VerifyConfig{Namespace: ns, SkipProofVerification: true}, 1, 2)
	if err == nil {
		t.Fatalf("expected an error for a chain whose roots do not connect")
	}
	var chainErr *zkerr.RootChainBrokenError
	if !errors.As(err, &chainErr) {
		t.Fatalf("error = %v, want *zkerr.RootChainBrokenError", err)
	}
}

func TestVerifyRangeDetectsProgramHashMismatch(t *testing.T) {
	ctx := context.Background()
	client := memda.New()
	ns := da.NamespaceFromString("zkapp")
	harness := localharness.New()

	postBlob(t, ctx, client, ns, hashing.Hash{0xAA}, 1, hashing.Hash{}, hashing.Hash{1})

	_, err := VerifyRange(ctx, client, harness, VerifyConfig{Namespace: ns, SkipProofVerification: true}, 1, 1)
	if err == nil {
		t.Fatalf("expected an error for a blob proved against a different program")
	}
	var mismatchErr *zkerr.ProgramHashMismatchError
	if !errors.As(err, &mismatchErr) {
		t.Fatalf("error = %v, want *zkerr.ProgramHashMismatchError", err)
	}
}

func TestVerifyRangeReturnsErrNoBlobsFound(t *testing.T) {
	ctx := context.Background()
	client := memda.New()
	ns := da.NamespaceFromString("zkapp")
	harness := localharness.New()

	_, err := VerifyRange(ctx, client, harness, VerifyConfig{Namespace: ns}, 1, 10)
	if !errors.Is(err, zkerr.ErrNoBlobsFound) {
		t.Fatalf("error = %v, want zkerr.ErrNoBlobsFound", err)
	}
}

func TestVerifyRangeVerifiesRealProofs(t *testing.T) {
	ctx := context.Background()
	client := memda.New()
	ns := da.NamespaceFromString("zkapp")
	harness := localharness.New()

	hasher := hashing.SHA256Hasher{}
	tree := smt.New(smt.DefaultDepth, hasher)
	prevRoot := tree.Root()
	w := tree.Insert([]byte("key"), []byte("value"))

	input := transition.NewTransitionInput(prevRoot, nil, nil, []smt.UpdateWitness{w}, nil)
	result, err := harness.Prove(ctx, input)
	if err != nil {
		t.Fatalf("Prove: %v", err)
	}

	b := blob.New([]byte("app"), 1, prevRoot, result.Output.NewRoot, nil, result.ProofData, harness.ProgramHash())
	data, err := b.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := client.SubmitBlob(ctx, ns, data); err != nil {
		t.Fatalf("SubmitBlob: %v", err)
	}

	verifyResult, err := VerifyRange(ctx, client, harness, VerifyConfig{Namespace: ns}, 1, 1)
	if err != nil {
		t.Fatalf("VerifyRange: %v", err)
	}
	if len(verifyResult.UnverifiedSequences) != 0 {
		t.Fatalf("a blob carrying a real proof must not be reported unverified: %v", verifyResult.UnverifiedSequences)
	}
}

func TestVerifyRangeTracksUnverifiedSequencesWithNoProof(t *testing.T) {
	ctx := context.Background()
	client := memda.New()
	ns := da.NamespaceFromString("zkapp")
	harness := localharness.New()

	postBlob(t, ctx, client, ns, harness.ProgramHash(), 1, hashing.Hash{}, hashing.Hash{1})

	result, err := VerifyRange(ctx, client, harness, VerifyConfig{Namespace: ns}, 1, 1)
	if err != nil {
		t.Fatalf("VerifyRange: %v", err)
	}
	if len(result.UnverifiedSequences) != 1 || result.UnverifiedSequences[0] != 1 {
		t.Fatalf("UnverifiedSequences = %v, want [1]", result.UnverifiedSequences)
	}
}

func TestVerifyRangeRespectsExpectedFirstRoot(t *testing.T) {
	ctx := context.Background()
	client := memda.New()
	ns := da.NamespaceFromString("zkapp")
	harness := localharness.New()

	pinned := hashing.Hash{7}
	newRoot := hashing.Hash{8}
	postBlob(t, ctx, client, ns, harness.ProgramHash(), 1, pinned, newRoot)

	result, err := VerifyRange(ctx, client, harness, VerifyConfig{Namespace: ns, SkipProofVerification: true, ExpectedFirstRoot: &pinned}, 1, 1)
	if err != nil {
		t.Fatalf("VerifyRange: %v", err)
	}
	if result.FirstRoot != pinned {
		t.Fatalf("FirstRoot = %v, want pinned root %v", result.FirstRoot, pinned)
	}
}
