package emulator

import (
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/nft-trade/pkg/solana"
	"github.com/code-payments/nft-trade/pkg/solana/system"
)

const maxInvokeDepth = 4

// Processor executes instructions on behalf of a registered program.
type Processor interface {
	Execute(env *Env) error
}

// Transaction is an ordered set of instructions executed atomically against
// the emulated ledger. Signers are declared by public key; signature
// verification itself is wallet-side and out of scope here.
type Transaction struct {
	Instructions []solana.Instruction
	Signers      []ed25519.PublicKey
}

// NewTransaction creates a transaction from the provided signers and
// instructions.
func NewTransaction(signers []ed25519.PublicKey, instructions ...solana.Instruction) Transaction {
	return Transaction{
		Instructions: instructions,
		Signers:      signers,
	}
}

// Emulator is an in-process ledger. It serializes transaction execution,
// commits each transaction atomically, and rolls every touched account back
// on the first failed instruction.
//
// It exists so program logic that normally relies on a host ledger for
// all-or-nothing commit semantics can be executed and tested directly.
type Emulator struct {
	log *logrus.Entry

	mu         sync.Mutex
	accounts   map[string]*Account
	processors map[string]Processor
}

// New creates an emulator with the native system program registered.
func New() *Emulator {
	e := &Emulator{
		log:        logrus.StandardLogger().WithField("type", "solana/emulator"),
		accounts:   make(map[string]*Account),
		processors: make(map[string]Processor),
	}
	e.processors[string(system.ProgramKey[:])] = &systemProcessor{}
	return e
}

// RegisterProcessor registers a program at the provided address.
func (e *Emulator) RegisterProcessor(program ed25519.PublicKey, processor Processor) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.processors[string(program)] = processor
}

// Fund credits an address with lamports outside of any transaction. It is
// the emulator's stand-in for validator airdrops.
func (e *Emulator) Fund(address ed25519.PublicKey, lamports uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.account(address).Lamports += lamports
}

// GetAccount returns a copy of the account stored at the provided address,
// or false if no account exists.
func (e *Emulator) GetAccount(address ed25519.PublicKey) (*Account, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	account, ok := e.accounts[string(address)]
	if !ok || !account.exists() {
		return nil, false
	}
	return account.clone(), true
}

// Execute runs a transaction against the ledger. Either every instruction
// commits, or no account changes at all.
func (e *Emulator) Execute(txn Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := e.snapshot()
	before := e.totalLamports()

	signers := make(map[string]struct{})
	for _, signer := range txn.Signers {
		signers[string(signer)] = struct{}{}
	}

	for i, instruction := range txn.Instructions {
		if err := e.process(instruction, signers, 0); err != nil {
			e.accounts = snapshot
			return errors.Wrapf(err, "instruction %d failed", i)
		}
	}

	// Programs move lamports between accounts but can never create or
	// destroy them within a transaction.
	if e.totalLamports() != before {
		e.accounts = snapshot
		return ErrBalanceMismatch
	}

	e.prune()

	return nil
}

func (e *Emulator) process(instruction solana.Instruction, signers map[string]struct{}, depth int) error {
	if depth > maxInvokeDepth {
		return ErrInvokeDepthExceeded
	}

	for _, meta := range instruction.Accounts {
		if !meta.IsSigner {
			continue
		}
		if _, ok := signers[string(meta.PublicKey)]; !ok {
			return errors.Wrap(ErrMissingSignature, base58.Encode(meta.PublicKey))
		}
	}

	processor, ok := e.processors[string(instruction.Program)]
	if !ok {
		return errors.Wrap(ErrUnknownProgram, base58.Encode(instruction.Program))
	}

	e.log.WithFields(logrus.Fields{
		"program":  base58.Encode(instruction.Program),
		"accounts": len(instruction.Accounts),
		"depth":    depth,
	}).Trace("executing instruction")

	return processor.Execute(&Env{
		emulator:    e,
		Program:     instruction.Program,
		Instruction: instruction,
		signers:     signers,
		depth:       depth,
	})
}

func (e *Emulator) account(address ed25519.PublicKey) *Account {
	account, ok := e.accounts[string(address)]
	if !ok {
		account = &Account{
			Owner: system.ProgramKey[:],
		}
		e.accounts[string(address)] = account
	}
	return account
}

func (e *Emulator) snapshot() map[string]*Account {
	snapshot := make(map[string]*Account, len(e.accounts))
	for k, v := range e.accounts {
		snapshot[k] = v.clone()
	}
	return snapshot
}

func (e *Emulator) totalLamports() uint64 {
	var total uint64
	for _, account := range e.accounts {
		total += account.Lamports
	}
	return total
}

func (e *Emulator) prune() {
	for k, account := range e.accounts {
		if !account.exists() {
			delete(e.accounts, k)
		}
	}
}
