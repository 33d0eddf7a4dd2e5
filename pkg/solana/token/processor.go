package token

import (
	"bytes"
	"math"

	"github.com/code-payments/nft-trade/pkg/solana/emulator"
)

// Processor implements the token program's custody semantics against an
// emulated ledger: accounts hold token balances for a mint, and only the
// recorded owner can move or close them.
type Processor struct {
}

func NewProcessor() *Processor {
	return &Processor{}
}

func (p *Processor) Execute(env *emulator.Env) error {
	command, err := GetCommand(env.Instruction)
	if err != nil {
		return err
	}

	switch command {
	case CommandInitializeMint:
		return p.initializeMint(env)
	case CommandInitializeAccount:
		return p.initializeAccount(env)
	case CommandTransfer:
		return p.transfer(env)
	case CommandSetAuthority:
		return p.setAuthority(env)
	case CommandMintTo:
		return p.mintTo(env)
	case CommandCloseAccount:
		return p.closeAccount(env)
	default:
		return ErrorInvalidInstruction
	}
}

func (p *Processor) initializeMint(env *emulator.Env) error {
	args, err := DecompileInitializeMint(env.Instruction)
	if err != nil {
		return err
	}

	info, err := env.Account(0)
	if err != nil {
		return err
	}

	var mint Mint
	if !mint.Unmarshal(info.Data()) {
		return ErrorInvalidMint
	}
	if mint.IsInitialized {
		return ErrorAlreadyInUse
	}

	mint.MintAuthority = args.MintAuthority
	mint.Decimals = args.Decimals
	mint.IsInitialized = true

	return info.SetData(mint.Marshal())
}

func (p *Processor) initializeAccount(env *emulator.Env) error {
	args, err := DecompileInitializeAccount(env.Instruction)
	if err != nil {
		return err
	}

	info, err := env.Account(0)
	if err != nil {
		return err
	}
	mintInfo, err := env.Account(1)
	if err != nil {
		return err
	}

	var account Account
	if !account.Unmarshal(info.Data()) {
		return ErrorInvalidState
	}
	if account.State != AccountStateUninitialized {
		return ErrorAlreadyInUse
	}

	var mint Mint
	if !mint.Unmarshal(mintInfo.Data()) || !mint.IsInitialized {
		return ErrorInvalidMint
	}

	account.Mint = args.Mint
	account.Owner = args.Owner
	account.Amount = 0
	account.State = AccountStateInitialized

	return info.SetData(account.Marshal())
}

func (p *Processor) transfer(env *emulator.Env) error {
	args, err := DecompileTransfer(env.Instruction)
	if err != nil {
		return err
	}

	sourceInfo, err := env.Account(0)
	if err != nil {
		return err
	}
	destInfo, err := env.Account(1)
	if err != nil {
		return err
	}
	if err := requireSigner(env, 2); err != nil {
		return err
	}

	var source, dest Account
	if !source.Unmarshal(sourceInfo.Data()) || source.State != AccountStateInitialized {
		return ErrorUninitializedState
	}
	if !dest.Unmarshal(destInfo.Data()) || dest.State != AccountStateInitialized {
		return ErrorUninitializedState
	}

	if !bytes.Equal(source.Owner, args.Owner) {
		return ErrorOwnerMismatch
	}
	if !bytes.Equal(source.Mint, dest.Mint) {
		return ErrorMintMismatch
	}
	if source.Amount < args.Amount {
		return ErrorInsufficientFunds
	}

	source.Amount -= args.Amount
	dest.Amount += args.Amount

	if err := sourceInfo.SetData(source.Marshal()); err != nil {
		return err
	}
	return destInfo.SetData(dest.Marshal())
}

func (p *Processor) setAuthority(env *emulator.Env) error {
	args, err := DecompileSetAuthority(env.Instruction)
	if err != nil {
		return err
	}

	if args.Type != AuthorityTypeAccountHolder {
		return ErrorAuthorityTypeNotSupported
	}
	if len(args.NewAuthority) == 0 {
		return ErrorInvalidInstruction
	}

	info, err := env.Account(0)
	if err != nil {
		return err
	}
	if err := requireSigner(env, 1); err != nil {
		return err
	}

	var account Account
	if !account.Unmarshal(info.Data()) || account.State != AccountStateInitialized {
		return ErrorUninitializedState
	}
	if !bytes.Equal(account.Owner, args.CurrentAuthority) {
		return ErrorOwnerMismatch
	}

	account.Owner = args.NewAuthority

	return info.SetData(account.Marshal())
}

func (p *Processor) mintTo(env *emulator.Env) error {
	args, err := DecompileMintTo(env.Instruction)
	if err != nil {
		return err
	}

	mintInfo, err := env.Account(0)
	if err != nil {
		return err
	}
	destInfo, err := env.Account(1)
	if err != nil {
		return err
	}
	if err := requireSigner(env, 2); err != nil {
		return err
	}

	var mint Mint
	if !mint.Unmarshal(mintInfo.Data()) || !mint.IsInitialized {
		return ErrorInvalidMint
	}
	if !bytes.Equal(mint.MintAuthority, args.MintAuthority) {
		return ErrorOwnerMismatch
	}

	var dest Account
	if !dest.Unmarshal(destInfo.Data()) || dest.State != AccountStateInitialized {
		return ErrorUninitializedState
	}
	if !bytes.Equal(dest.Mint, args.Mint) {
		return ErrorMintMismatch
	}

	if mint.Supply > math.MaxUint64-args.Amount {
		return ErrorOverflow
	}

	mint.Supply += args.Amount
	dest.Amount += args.Amount

	if err := mintInfo.SetData(mint.Marshal()); err != nil {
		return err
	}
	return destInfo.SetData(dest.Marshal())
}

func (p *Processor) closeAccount(env *emulator.Env) error {
	args, err := DecompileCloseAccount(env.Instruction)
	if err != nil {
		return err
	}

	info, err := env.Account(0)
	if err != nil {
		return err
	}
	destInfo, err := env.Account(1)
	if err != nil {
		return err
	}
	if err := requireSigner(env, 2); err != nil {
		return err
	}

	var account Account
	if !account.Unmarshal(info.Data()) || account.State != AccountStateInitialized {
		return ErrorUninitializedState
	}
	if account.Amount != 0 {
		return ErrorNonNativeHasBalance
	}

	owner := account.Owner
	if len(account.CloseAuthority) > 0 {
		owner = account.CloseAuthority
	}
	if !bytes.Equal(owner, args.Owner) {
		return ErrorOwnerMismatch
	}

	lamports := info.Lamports()
	if err := info.Debit(lamports); err != nil {
		return err
	}
	if err := destInfo.Credit(lamports); err != nil {
		return err
	}
	return info.SetData(nil)
}

// requireSigner enforces that the authorizing account's meta was flagged
// as a signer. Matching the authority by public key alone is not enough:
// the transaction only proves possession of keys for flagged metas.
func requireSigner(env *emulator.Env, index int) error {
	info, err := env.Account(index)
	if err != nil {
		return err
	}
	if !info.IsSigner {
		return emulator.ErrMissingSignature
	}
	return nil
}
