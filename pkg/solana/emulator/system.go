package emulator

import (
	"github.com/code-payments/nft-trade/pkg/solana"
	"github.com/code-payments/nft-trade/pkg/solana/system"
)

// systemProcessor implements the native system program: account creation
// and lamport transfers.
type systemProcessor struct {
}

func (p *systemProcessor) Execute(env *Env) error {
	if created, err := system.DecompileCreateAccount(env.Instruction); err == nil {
		return p.createAccount(env, created)
	}
	if transfer, err := system.DecompileTransfer(env.Instruction); err == nil {
		return p.transfer(env, transfer)
	}
	return solana.ErrIncorrectInstruction
}

func (p *systemProcessor) createAccount(env *Env, args *system.DecompiledCreateAccount) error {
	funder, err := env.Account(0)
	if err != nil {
		return err
	}
	created, err := env.Account(1)
	if err != nil {
		return err
	}

	if !funder.IsSigner || !created.IsSigner {
		return ErrMissingSignature
	}

	if created.Exists() {
		return ErrAccountAlreadyInitialized
	}
	if args.Lamports < MinimumBalanceForRentExemption(args.Size) {
		return ErrInsufficientFundsForRent
	}

	if err := funder.Debit(args.Lamports); err != nil {
		return err
	}
	if err := created.Credit(args.Lamports); err != nil {
		return err
	}
	if err := created.SetData(make([]byte, args.Size)); err != nil {
		return err
	}
	return created.SetOwner(args.Owner)
}

func (p *systemProcessor) transfer(env *Env, args *system.DecompiledTransfer) error {
	sender, err := env.Account(0)
	if err != nil {
		return err
	}
	receiver, err := env.Account(1)
	if err != nil {
		return err
	}

	if !sender.IsSigner {
		return ErrMissingSignature
	}

	if err := sender.Debit(args.Lamports); err != nil {
		return err
	}
	return receiver.Credit(args.Lamports)
}
