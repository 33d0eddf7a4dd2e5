package token

import (
	"crypto/ed25519"
)

type AccountState byte

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L125
const AccountSize = 165

// Reference: https://github.com/solana-labs/solana-program-library/blob/11b1e3eefdd4e523768d63f7c70a7aa391ea0d02/token/program/src/state.rs#L16
const MintSize = 82

const optionSize = 4

type Account struct {
	// The mint associated with this account
	Mint ed25519.PublicKey
	// The owner of this account.
	Owner ed25519.PublicKey
	// The amount of tokens this account holds.
	Amount uint64
	// If set, then the 'DelegatedAmount' represents the amount
	// authorized by the delegate.
	Delegate ed25519.PublicKey
	/// The account's state
	State AccountState
	// If set, this is a native token, and the value logs the rent-exempt reserve. An Account
	// is required to be rent-exempt, so the value is used by the Processor to ensure that wrapped
	// SOL accounts do not drop below this threshold.
	IsNative *uint64
	// The amount delegated
	DelegatedAmount uint64
	// Optional authority to close the account.
	CloseAuthority ed25519.PublicKey
}

func (a *Account) Marshal() []byte {
	b := make([]byte, AccountSize)

	var offset int
	putKey32(b, a.Mint, &offset)
	putKey32(b, a.Owner, &offset)
	putUint64(b, a.Amount, &offset)
	putOptionalKey32(b, a.Delegate, &offset)
	b[offset] = byte(a.State)
	offset++
	putOptionalUint64(b, a.IsNative, &offset)
	putUint64(b, a.DelegatedAmount, &offset)
	putOptionalKey32(b, a.CloseAuthority, &offset)

	return b
}

func (a *Account) Unmarshal(b []byte) bool {
	if len(b) != AccountSize {
		return false
	}

	var offset int
	getKey32(b, &a.Mint, &offset)
	getKey32(b, &a.Owner, &offset)
	getUint64(b, &a.Amount, &offset)
	getOptionalKey32(b, &a.Delegate, &offset)
	a.State = AccountState(b[offset])
	offset++
	getOptionalUint64(b, &a.IsNative, &offset)
	getUint64(b, &a.DelegatedAmount, &offset)
	getOptionalKey32(b, &a.CloseAuthority, &offset)

	return true
}

type Mint struct {
	// Optional authority used to mint new tokens.
	MintAuthority ed25519.PublicKey
	// Total supply of tokens.
	Supply uint64
	// Number of base 10 digits to the right of the decimal place.
	Decimals uint8
	// Is this mint initialized.
	IsInitialized bool
	// Optional authority to freeze token accounts.
	FreezeAuthority ed25519.PublicKey
}

func (m *Mint) Marshal() []byte {
	b := make([]byte, MintSize)

	var offset int
	putOptionalKey32(b, m.MintAuthority, &offset)
	putUint64(b, m.Supply, &offset)
	b[offset] = m.Decimals
	offset++
	if m.IsInitialized {
		b[offset] = 1
	}
	offset++
	putOptionalKey32(b, m.FreezeAuthority, &offset)

	return b
}

func (m *Mint) Unmarshal(b []byte) bool {
	if len(b) != MintSize {
		return false
	}

	var offset int
	getOptionalKey32(b, &m.MintAuthority, &offset)
	getUint64(b, &m.Supply, &offset)
	m.Decimals = b[offset]
	offset++
	m.IsInitialized = b[offset] == 1
	offset++
	getOptionalKey32(b, &m.FreezeAuthority, &offset)

	return true
}
