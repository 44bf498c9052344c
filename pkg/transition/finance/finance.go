// Package finance carries the worked example application the guest's
// business-logic predicates are defined against: a balance-and-nonce
// account model exercised by CreateAccount, Transfer, Mint, and Burn.
package finance

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/muridata/zkstate/pkg/zkerr"
)

// Account is the value stored at an account key.
type Account struct {
	Balance uint64
	Nonce   uint64
}

// AccountKeyPrefix implements statestore.KeyPrefix for account keys.
type AccountKeyPrefix struct{}

// Prefix returns the namespace account keys live under.
func (AccountKeyPrefix) Prefix() string { return "account" }

// Encode serializes an Account to canonical CBOR.
func (a Account) Encode() ([]byte, error) {
	data, err := cbor.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("%w: encode account: %v", zkerr.ErrEncoding, err)
	}
	return data, nil
}

// DecodeAccount parses bytes produced by Account.Encode. A nil input
// (key absent) decodes to the zero Account, matching an implicit
// zero-balance, zero-nonce account that has never been created.
func DecodeAccount(data []byte) (Account, error) {
	if data == nil {
		return Account{}, nil
	}
	var a Account
	if err := cbor.Unmarshal(data, &a); err != nil {
		return Account{}, fmt.Errorf("%w: decode account: %v", zkerr.ErrEncoding, err)
	}
	return a, nil
}

// VerifyTransfer checks the conservation and nonce invariants of a
// transfer of amount from sender to receiver: the sender's balance
// must decrease by exactly amount, the receiver's must increase by
// exactly amount, and the sender's nonce must advance by exactly one
// (replay protection). It does not check that the sender actually had
// sufficient balance before the transfer beyond what the conservation
// equation implies (oldSender.Balance >= amount is checked explicitly
// so an underflowed oldSender value can never be used to forge a
// transfer out of an account that could not afford it).
func VerifyTransfer(oldSender, newSender, oldReceiver, newReceiver Account, amount uint64) error {
	if oldSender.Balance < amount {
		return fmt.Errorf("transfer: sender balance %d is less than amount %d", oldSender.Balance, amount)
	}
	if newSender.Balance != oldSender.Balance-amount {
		return fmt.Errorf("transfer: sender balance changed by the wrong amount: %d -> %d, want -%d",
			oldSender.Balance, newSender.Balance, amount)
	}
	if newReceiver.Balance != oldReceiver.Balance+amount {
		return fmt.Errorf("transfer: receiver balance changed by the wrong amount: %d -> %d, want +%d",
			oldReceiver.Balance, newReceiver.Balance, amount)
	}
	if newSender.Nonce != oldSender.Nonce+1 {
		return fmt.Errorf("transfer: sender nonce did not advance by exactly one: %d -> %d",
			oldSender.Nonce, newSender.Nonce)
	}
	return nil
}

// VerifyMint checks that a mint strictly increases the target
// account's balance by amount and leaves its nonce untouched (mint is
// an administrative operation the account itself does not authorize).
func VerifyMint(old, new Account, amount uint64) error {
	if new.Balance != old.Balance+amount {
		return fmt.Errorf("mint: balance changed by the wrong amount: %d -> %d, want +%d",
			old.Balance, new.Balance, amount)
	}
	if new.Nonce != old.Nonce {
		return fmt.Errorf("mint: nonce must not change: %d -> %d", old.Nonce, new.Nonce)
	}
	return nil
}

// VerifyBurn checks that a burn strictly decreases the target
// account's balance by amount without underflow, leaving its nonce
// untouched.
func VerifyBurn(old, new Account, amount uint64) error {
	if old.Balance < amount {
		return fmt.Errorf("burn: balance %d is less than amount %d", old.Balance, amount)
	}
	if new.Balance != old.Balance-amount {
		return fmt.Errorf("burn: balance changed by the wrong amount: %d -> %d, want -%d",
			old.Balance, new.Balance, amount)
	}
	if new.Nonce != old.Nonce {
		return fmt.Errorf("burn: nonce must not change: %d -> %d", old.Nonce, new.Nonce)
	}
	return nil
}

// VerifyCreateAccount checks that creating an account starts it at the
// given initial balance with a zero nonce, and that no account
// previously existed at that key.
func VerifyCreateAccount(old, new Account, existed bool, initialBalance uint64) error {
	if existed {
		return fmt.Errorf("create_account: account already exists")
	}
	if new.Balance != initialBalance {
		return fmt.Errorf("create_account: initial balance %d does not match requested %d", new.Balance, initialBalance)
	}
	if new.Nonce != 0 {
		return fmt.Errorf("create_account: initial nonce must be zero, got %d", new.Nonce)
	}
	return nil
}
