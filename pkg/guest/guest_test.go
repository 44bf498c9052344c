package guest

import (
	"encoding/binary"
	"testing"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/smt"
	"github.com/muridata/zkstate/pkg/transition"
	"github.com/muridata/zkstate/pkg/transition/finance"
)

func amountBytes(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func TestVerifyPlainSetOperation(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	prevRoot := tree.Root()
	w := tree.Insert([]byte("key"), []byte("value"))

	input := transition.NewTransitionInput(prevRoot, []byte("pub"), nil, []smt.UpdateWitness{w}, []transition.VerifiableOperation{
		{OpType: transition.OpSet, Key: []byte("key"), WitnessIndex: 0},
	})

	output, err := Verify(input)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if output.NewRoot != tree.Root() {
		t.Fatalf("output.NewRoot = %v, want %v", output.NewRoot, tree.Root())
	}
	if output.PrevRoot != prevRoot {
		t.Fatalf("output.PrevRoot = %v, want %v", output.PrevRoot, prevRoot)
	}
}

func TestVerifyRejectsSetWithWrongWitnessKey(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	prevRoot := tree.Root()
	w := tree.Insert([]byte("key"), []byte("value"))

	input := transition.NewTransitionInput(prevRoot, nil, nil, []smt.UpdateWitness{w}, []transition.VerifiableOperation{
		{OpType: transition.OpSet, Key: []byte("different-key"), WitnessIndex: 0},
	})

	if _, err := Verify(input); err == nil {
		t.Fatalf("expected an error when the operation key does not match the witness")
	}
}

func TestVerifyRejectsOutOfRangeWitnessIndex(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	prevRoot := tree.Root()
	w := tree.Insert([]byte("key"), []byte("value"))

	input := transition.NewTransitionInput(prevRoot, nil, nil, []smt.UpdateWitness{w}, []transition.VerifiableOperation{
		{OpType: transition.OpSet, Key: []byte("key"), WitnessIndex: 5},
	})

	if _, err := Verify(input); err == nil {
		t.Fatalf("expected an error for an out-of-range witness index")
	}
}

func accountWitness(tree *smt.SparseMerkleTree, key []byte, acct finance.Account) smt.UpdateWitness {
	data, err := acct.Encode()
	if err != nil {
		panic(err)
	}
	return tree.Insert(key, data)
}

func TestVerifyCreateAccountOperation(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	prevRoot := tree.Root()

	w := accountWitness(tree, []byte("acct:1"), finance.Account{Balance: 100})

	input := transition.NewTransitionInput(prevRoot, nil, nil, []smt.UpdateWitness{w}, []transition.VerifiableOperation{
		{OpType: transition.OpCreateAccount, Key: []byte("acct:1"), WitnessIndex: 0, NewValue: amountBytes(100)},
	})

	if _, err := Verify(input); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyTransferOperationRequiresCounterpartyIndex(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	prevRoot := tree.Root()

	senderW := accountWitness(tree, []byte("acct:1"), finance.Account{Balance: 100})
	receiverW := accountWitness(tree, []byte("acct:2"), finance.Account{Balance: 0})

	input := transition.NewTransitionInput(prevRoot, nil, nil, []smt.UpdateWitness{senderW, receiverW}, []transition.VerifiableOperation{
		{OpType: transition.OpTransfer, Key: []byte("acct:1"), WitnessIndex: 0, NewValue: amountBytes(30)},
	})

	if _, err := Verify(input); err == nil {
		t.Fatalf("expected an error for a transfer with no counterparty witness index")
	}
}

func TestVerifyTransferOperationAccepted(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	prevRoot := tree.Root()

	tree.Insert([]byte("acct:1"), mustEncode(finance.Account{Balance: 100}))
	tree.Insert([]byte("acct:2"), mustEncode(finance.Account{Balance: 0}))
	prevRootAfterSetup := tree.Root()

	senderW := tree.Insert([]byte("acct:1"), mustEncode(finance.Account{Balance: 70, Nonce: 1}))
	receiverW := tree.Insert([]byte("acct:2"), mustEncode(finance.Account{Balance: 30}))

	idx := 1
	input := transition.NewTransitionInput(prevRootAfterSetup, nil, nil, []smt.UpdateWitness{senderW, receiverW}, []transition.VerifiableOperation{
		{OpType: transition.OpTransfer, Key: []byte("acct:1"), WitnessIndex: 0, CounterpartyWitnessIndex: &idx, NewValue: amountBytes(30)},
	})

	if _, err := Verify(input); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyTransferOperationRejectsConservationViolation(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	prevRoot := tree.Root()

	tree.Insert([]byte("acct:1"), mustEncode(finance.Account{Balance: 100}))
	tree.Insert([]byte("acct:2"), mustEncode(finance.Account{Balance: 0}))
	prevRootAfterSetup := tree.Root()
	_ = prevRoot

	senderW := tree.Insert([]byte("acct:1"), mustEncode(finance.Account{Balance: 70, Nonce: 1}))
	receiverW := tree.Insert([]byte("acct:2"), mustEncode(finance.Account{Balance: 50}))

	idx := 1
	input := transition.NewTransitionInput(prevRootAfterSetup, nil, nil, []smt.UpdateWitness{senderW, receiverW}, []transition.VerifiableOperation{
		{OpType: transition.OpTransfer, Key: []byte("acct:1"), WitnessIndex: 0, CounterpartyWitnessIndex: &idx, NewValue: amountBytes(30)},
	})

	if _, err := Verify(input); err == nil {
		t.Fatalf("expected an error when receiver balance delta does not match sender's loss")
	}
}

func TestVerifyMintAndBurnOperations(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	tree.Insert([]byte("acct:1"), mustEncode(finance.Account{Balance: 10}))
	prevRoot := tree.Root()

	mintW := tree.Insert([]byte("acct:1"), mustEncode(finance.Account{Balance: 25}))
	mintInput := transition.NewTransitionInput(prevRoot, nil, nil, []smt.UpdateWitness{mintW}, []transition.VerifiableOperation{
		{OpType: transition.OpMint, Key: []byte("acct:1"), WitnessIndex: 0, NewValue: amountBytes(15)},
	})
	if _, err := Verify(mintInput); err != nil {
		t.Fatalf("mint Verify: %v", err)
	}

	burnPrevRoot := tree.Root()
	burnW := tree.Insert([]byte("acct:1"), mustEncode(finance.Account{Balance: 10}))
	burnInput := transition.NewTransitionInput(burnPrevRoot, nil, nil, []smt.UpdateWitness{burnW}, []transition.VerifiableOperation{
		{OpType: transition.OpBurn, Key: []byte("acct:1"), WitnessIndex: 0, NewValue: amountBytes(15)},
	})
	if _, err := Verify(burnInput); err != nil {
		t.Fatalf("burn Verify: %v", err)
	}
}

func TestVerifyRejectsUnknownOperationType(t *testing.T) {
	hasher := hashing.SHA256Hasher{}
	tree := smt.New(16, hasher)
	prevRoot := tree.Root()
	w := tree.Insert([]byte("key"), []byte("value"))

	input := transition.NewTransitionInput(prevRoot, nil, nil, []smt.UpdateWitness{w}, []transition.VerifiableOperation{
		{OpType: "unknown", Key: []byte("key"), WitnessIndex: 0},
	})

	if _, err := Verify(input); err == nil {
		t.Fatalf("expected an error for an unrecognized operation type")
	}
}

func mustEncode(a finance.Account) []byte {
	data, err := a.Encode()
	if err != nil {
		panic(err)
	}
	return data
}
