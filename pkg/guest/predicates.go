package guest

import (
	"fmt"

	"github.com/muridata/zkstate/pkg/hashing"
	"github.com/muridata/zkstate/pkg/transition"
	"github.com/muridata/zkstate/pkg/transition/finance"
)

// verifyOperation dispatches a tagged VerifiableOperation to its
// business-logic predicate by OperationType, binding it to the
// witness(es) named by index rather than trusting op.OldValue/NewValue
// directly: the predicate re-derives its inputs from the witness the
// same hasher verified against PrevRoot/NewRoot, so an operation tag
// can never claim an effect its witnesses did not actually produce.
func verifyOperation(hasher hashing.Hasher, input transition.TransitionInput, op transition.VerifiableOperation) error {
	switch op.OpType {
	case transition.OpSet:
		return verifySet(hasher, input, op)
	case transition.OpCreateAccount:
		return verifyCreateAccount(input, op)
	case transition.OpTransfer:
		return verifyTransfer(input, op)
	case transition.OpMint:
		return verifyMint(input, op)
	case transition.OpBurn:
		return verifyBurn(input, op)
	default:
		return fmt.Errorf("unknown operation type %q", op.OpType)
	}
}

// verifySet has no business-logic constraint beyond "the witness at
// WitnessIndex did write this key to this value": Set is the escape
// hatch for raw key-value writes with no account semantics.
func verifySet(hasher hashing.Hasher, input transition.TransitionInput, op transition.VerifiableOperation) error {
	w, err := witnessAt(input, op.WitnessIndex)
	if err != nil {
		return err
	}
	if w.KeyHash != hasher.HashKey(op.Key) {
		return fmt.Errorf("set: witness key does not match operation key")
	}
	return nil
}

func verifyCreateAccount(input transition.TransitionInput, op transition.VerifiableOperation) error {
	w, err := witnessAt(input, op.WitnessIndex)
	if err != nil {
		return err
	}
	oldAcct, err := finance.DecodeAccount(w.OldValue)
	if err != nil {
		return err
	}
	newAcct, err := finance.DecodeAccount(w.NewValue)
	if err != nil {
		return err
	}
	initial, err := decodeAmount(op.NewValue)
	if err != nil {
		return err
	}
	return finance.VerifyCreateAccount(oldAcct, newAcct, w.OldValue != nil, initial)
}

// verifyTransfer enforces the strengthened binding: both the sender's
// witness (WitnessIndex) and the receiver's witness
// (CounterpartyWitnessIndex) must be named explicitly, and the
// conservation/nonce invariants are checked across both, rather than
// guessing at a matching witness from the old/new values alone.
func verifyTransfer(input transition.TransitionInput, op transition.VerifiableOperation) error {
	if op.CounterpartyWitnessIndex == nil {
		return fmt.Errorf("transfer: missing counterparty witness index")
	}

	senderW, err := witnessAt(input, op.WitnessIndex)
	if err != nil {
		return fmt.Errorf("transfer: sender witness: %w", err)
	}
	receiverW, err := witnessAt(input, *op.CounterpartyWitnessIndex)
	if err != nil {
		return fmt.Errorf("transfer: receiver witness: %w", err)
	}
	if senderW.KeyHash == receiverW.KeyHash {
		return fmt.Errorf("transfer: sender and receiver witnesses name the same key")
	}

	oldSender, err := finance.DecodeAccount(senderW.OldValue)
	if err != nil {
		return err
	}
	newSender, err := finance.DecodeAccount(senderW.NewValue)
	if err != nil {
		return err
	}
	oldReceiver, err := finance.DecodeAccount(receiverW.OldValue)
	if err != nil {
		return err
	}
	newReceiver, err := finance.DecodeAccount(receiverW.NewValue)
	if err != nil {
		return err
	}

	amount, err := decodeAmount(op.NewValue)
	if err != nil {
		return err
	}

	return finance.VerifyTransfer(oldSender, newSender, oldReceiver, newReceiver, amount)
}

func verifyMint(input transition.TransitionInput, op transition.VerifiableOperation) error {
	w, err := witnessAt(input, op.WitnessIndex)
	if err != nil {
		return err
	}
	old, err := finance.DecodeAccount(w.OldValue)
	if err != nil {
		return err
	}
	neu, err := finance.DecodeAccount(w.NewValue)
	if err != nil {
		return err
	}
	amount, err := decodeAmount(op.NewValue)
	if err != nil {
		return err
	}
	return finance.VerifyMint(old, neu, amount)
}

func verifyBurn(input transition.TransitionInput, op transition.VerifiableOperation) error {
	w, err := witnessAt(input, op.WitnessIndex)
	if err != nil {
		return err
	}
	old, err := finance.DecodeAccount(w.OldValue)
	if err != nil {
		return err
	}
	neu, err := finance.DecodeAccount(w.NewValue)
	if err != nil {
		return err
	}
	amount, err := decodeAmount(op.NewValue)
	if err != nil {
		return err
	}
	return finance.VerifyBurn(old, neu, amount)
}

// decodeAmount reads an 8-byte big-endian amount from the operation's
// NewValue field, which for Transfer/Mint/Burn/CreateAccount carries
// the requested amount rather than an account blob.
func decodeAmount(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("amount field must be 8 bytes, got %d", len(data))
	}
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return v, nil
}
