package emulator

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/nft-trade/pkg/solana"
)

// Env is the execution environment handed to a program processor for a
// single instruction.
type Env struct {
	emulator *Emulator

	Program     ed25519.PublicKey
	Instruction solana.Instruction

	signers map[string]struct{}
	depth   int
}

// Account resolves the account at the provided index of the instruction's
// account metas.
func (e *Env) Account(index int) (*AccountInfo, error) {
	if index >= len(e.Instruction.Accounts) {
		return nil, errors.Errorf("account doesn't exist at %d", index)
	}

	meta := e.Instruction.Accounts[index]
	return &AccountInfo{
		env:        e,
		PublicKey:  meta.PublicKey,
		IsSigner:   meta.IsSigner,
		IsWritable: meta.IsWritable,
		account:    e.emulator.account(meta.PublicKey),
	}, nil
}

// Invoke executes an inner instruction with the signer privileges of the
// current invocation.
func (e *Env) Invoke(instruction solana.Instruction) error {
	return e.emulator.process(instruction, e.signers, e.depth+1)
}

// InvokeSigned executes an inner instruction, additionally granting signer
// privilege to every address the calling program can derive from one of the
// provided seed groups. This is the only way a derived (keyless) address
// ever signs: the proof is the seeds, and it never leaves program logic.
func (e *Env) InvokeSigned(instruction solana.Instruction, signerSeeds ...[][]byte) error {
	signers := make(map[string]struct{}, len(e.signers)+len(signerSeeds))
	for k := range e.signers {
		signers[k] = struct{}{}
	}

	for _, seeds := range signerSeeds {
		derived, err := solana.CreateProgramAddress(e.Program, seeds...)
		if err != nil {
			return errors.Wrap(err, "invalid signer seeds")
		}
		signers[string(derived)] = struct{}{}
	}

	return e.emulator.process(instruction, signers, e.depth+1)
}

// AccountInfo is a program's view of a single account within an
// instruction. Writes are checked against the ledger's ownership rules:
// only the program that owns an account may change its data or debit it.
type AccountInfo struct {
	env *Env

	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	account *Account
}

func (a *AccountInfo) Lamports() uint64 {
	return a.account.Lamports
}

func (a *AccountInfo) Owner() ed25519.PublicKey {
	return a.account.Owner
}

func (a *AccountInfo) Data() []byte {
	return a.account.Data
}

// Exists reports whether the account holds any state on the ledger.
func (a *AccountInfo) Exists() bool {
	return a.account.exists()
}

func (a *AccountInfo) SetData(data []byte) error {
	if !a.IsWritable {
		return ErrAccountNotWritable
	}
	if !bytes.Equal(a.account.Owner, a.env.Program) {
		return ErrExternalAccountDataWrite
	}

	a.account.Data = data
	return nil
}

// SetOwner assigns the account to a new owner program. Only the current
// owner may reassign.
func (a *AccountInfo) SetOwner(owner ed25519.PublicKey) error {
	if !a.IsWritable {
		return ErrAccountNotWritable
	}
	if !bytes.Equal(a.account.Owner, a.env.Program) {
		return ErrExternalAccountDataWrite
	}

	a.account.Owner = make(ed25519.PublicKey, len(owner))
	copy(a.account.Owner, owner)
	return nil
}

func (a *AccountInfo) Credit(lamports uint64) error {
	if !a.IsWritable {
		return ErrAccountNotWritable
	}

	a.account.Lamports += lamports
	return nil
}

func (a *AccountInfo) Debit(lamports uint64) error {
	if !a.IsWritable {
		return ErrAccountNotWritable
	}
	if !bytes.Equal(a.account.Owner, a.env.Program) {
		return ErrExternalAccountDebit
	}
	if a.account.Lamports < lamports {
		return ErrInsufficientFunds
	}

	a.account.Lamports -= lamports
	return nil
}
