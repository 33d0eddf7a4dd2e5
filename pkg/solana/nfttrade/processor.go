package nft_trade

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/code-payments/nft-trade/pkg/solana"
	"github.com/code-payments/nft-trade/pkg/solana/emulator"
	"github.com/code-payments/nft-trade/pkg/solana/system"
	"github.com/code-payments/nft-trade/pkg/solana/token"
)

// Processor executes the escrow program against an emulated ledger. It
// owns two classes of accounts: escrow records, which carry the trade
// terms, and nothing else - the vaults it orchestrates belong to the
// token program and are controlled through a derived authority that only
// this program can sign for.
type Processor struct {
}

func NewProcessor() *Processor {
	return &Processor{}
}

func (p *Processor) Execute(env *emulator.Env) error {
	data := env.Instruction.Data
	if len(data) < 8 {
		return ErrInvalidInstructionData
	}

	switch {
	case bytes.Equal(data[:8], initializeInstructionDiscriminator):
		return p.initialize(env)
	case bytes.Equal(data[:8], exchangeInstructionDiscriminator):
		return p.exchange(env)
	case bytes.Equal(data[:8], cancelInstructionDiscriminator):
		return p.cancel(env)
	default:
		return ErrInvalidInstructionData
	}
}

func (p *Processor) initialize(env *emulator.Env) error {
	args, err := InitializeInstructionFromBinary(env.Instruction.Data)
	if err != nil {
		return err
	}
	if args.FeeRate > FeeRateDenominator {
		return ErrInvalidFeeRate
	}

	seller, err := env.Account(0)
	if err != nil {
		return err
	}
	mint, err := env.Account(1)
	if err != nil {
		return err
	}
	vault, err := env.Account(2)
	if err != nil {
		return err
	}
	sellerAssetHolder, err := env.Account(3)
	if err != nil {
		return err
	}
	escrow, err := env.Account(4)
	if err != nil {
		return err
	}

	if !seller.IsSigner {
		return ErrMissingSignature
	}

	// The record account is created ahead of time by the seller's
	// transaction, owned by this program and zeroed. Anything else is
	// either not ours to write or a live escrow.
	if !bytes.Equal(escrow.Owner(), env.Program) {
		return ErrInvalidAccountData
	}
	if len(escrow.Data()) != EscrowAccountSize {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(escrow.Data(), make([]byte, EscrowAccountSize)) {
		return ErrAlreadyInitialized
	}

	var mintState token.Mint
	if !bytes.Equal(mint.Owner(), token.ProgramKey) || !mintState.Unmarshal(mint.Data()) || !mintState.IsInitialized {
		return ErrInvalidAccountData
	}

	var holderState token.Account
	if !holderState.Unmarshal(sellerAssetHolder.Data()) {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(holderState.Owner, seller.PublicKey) {
		return ErrUnauthorizedHoldingAccount
	}
	if !bytes.Equal(holderState.Mint, mint.PublicKey) {
		return ErrInvalidAccountData
	}
	if holderState.Amount != 1 {
		return ErrInvalidAmount
	}

	expectedVault, err := solana.CreateProgramAddress(
		env.Program,
		vaultSeeds(mint.PublicKey, seller.PublicKey, args.VaultBump)...,
	)
	if err != nil {
		return errors.Wrap(ErrAddressMismatch, err.Error())
	}
	if !bytes.Equal(expectedVault, vault.PublicKey) {
		return ErrAddressMismatch
	}

	vaultAuthority, vaultAuthorityBump, err := GetVaultAuthorityAddress(&GetVaultAuthorityAddressArgs{
		Seller: seller.PublicKey,
	})
	if err != nil {
		return err
	}

	// The vault signs its own creation through the derivation seeds, so
	// no party ever holds a key for it.
	creationSeeds := vaultSeeds(mint.PublicKey, seller.PublicKey, args.VaultBump)
	err = env.InvokeSigned(
		system.CreateAccount(
			seller.PublicKey,
			vault.PublicKey,
			token.ProgramKey,
			emulator.MinimumBalanceForRentExemption(token.AccountSize),
			token.AccountSize,
		),
		creationSeeds,
	)
	if err != nil {
		return err
	}

	err = env.InvokeSigned(
		token.InitializeAccount(vault.PublicKey, mint.PublicKey, vaultAuthority),
		creationSeeds,
	)
	if err != nil {
		return err
	}

	err = env.Invoke(token.Transfer(
		sellerAssetHolder.PublicKey,
		vault.PublicKey,
		seller.PublicKey,
		1,
	))
	if err != nil {
		return err
	}

	record := &EscrowAccount{
		Seller:             seller.PublicKey,
		Mint:               mint.PublicKey,
		Vault:              vault.PublicKey,
		VaultAuthorityBump: vaultAuthorityBump,
		Price:              args.Price,
		FeeRate:            args.FeeRate,
	}
	return escrow.SetData(record.Marshal())
}

func (p *Processor) exchange(env *emulator.Env) error {
	args, err := ExchangeInstructionFromBinary(env.Instruction.Data)
	if err != nil {
		return err
	}
	if args.Amount != 1 {
		return ErrInvalidAmount
	}

	buyer, err := env.Account(0)
	if err != nil {
		return err
	}
	buyerAssetHolder, err := env.Account(1)
	if err != nil {
		return err
	}
	seller, err := env.Account(2)
	if err != nil {
		return err
	}
	escrow, err := env.Account(3)
	if err != nil {
		return err
	}
	feeRecipient, err := env.Account(4)
	if err != nil {
		return err
	}
	vault, err := env.Account(5)
	if err != nil {
		return err
	}
	vaultAuthority, err := env.Account(6)
	if err != nil {
		return err
	}

	if !buyer.IsSigner {
		return ErrMissingSignature
	}

	record, err := p.loadRecord(env, escrow)
	if err != nil {
		return err
	}
	if !bytes.Equal(seller.PublicKey, record.Seller) {
		return ErrAddressMismatch
	}
	if !bytes.Equal(vault.PublicKey, record.Vault) {
		return ErrAddressMismatch
	}

	authoritySeeds := vaultAuthoritySeeds(record.Seller, record.VaultAuthorityBump)
	expectedAuthority, err := solana.CreateProgramAddress(env.Program, authoritySeeds...)
	if err != nil {
		return errors.Wrap(ErrAddressMismatch, err.Error())
	}
	if !bytes.Equal(expectedAuthority, vaultAuthority.PublicKey) {
		return ErrAddressMismatch
	}

	var vaultState token.Account
	if !vaultState.Unmarshal(vault.Data()) {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(vaultState.Owner, expectedAuthority) {
		return ErrInvalidAccountData
	}
	if vaultState.Amount != 1 {
		return ErrVaultImbalance
	}

	var holderState token.Account
	if !holderState.Unmarshal(buyerAssetHolder.Data()) {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(holderState.Owner, buyer.PublicKey) {
		return ErrUnauthorizedHoldingAccount
	}
	if !bytes.Equal(holderState.Mint, record.Mint) {
		return ErrInvalidAccountData
	}

	if buyer.Lamports() < record.Price {
		return ErrInsufficientFunds
	}

	feeAmount, sellerAmount := ComputeFee(record.Price, record.FeeRate)

	err = env.Invoke(system.Transfer(buyer.PublicKey, feeRecipient.PublicKey, feeAmount))
	if err != nil {
		return err
	}
	err = env.Invoke(system.Transfer(buyer.PublicKey, seller.PublicKey, sellerAmount))
	if err != nil {
		return err
	}

	err = env.InvokeSigned(
		token.Transfer(vault.PublicKey, buyerAssetHolder.PublicKey, expectedAuthority, 1),
		authoritySeeds,
	)
	if err != nil {
		return err
	}

	// The vault's rent reserve goes back to the seller who funded it.
	err = env.InvokeSigned(
		token.CloseAccount(vault.PublicKey, seller.PublicKey, expectedAuthority),
		authoritySeeds,
	)
	if err != nil {
		return err
	}

	return p.closeRecord(escrow, seller)
}

func (p *Processor) cancel(env *emulator.Env) error {
	if err := CancelInstructionFromBinary(env.Instruction.Data); err != nil {
		return err
	}

	seller, err := env.Account(0)
	if err != nil {
		return err
	}
	vault, err := env.Account(1)
	if err != nil {
		return err
	}
	vaultAuthority, err := env.Account(2)
	if err != nil {
		return err
	}
	sellerAssetHolder, err := env.Account(3)
	if err != nil {
		return err
	}
	escrow, err := env.Account(4)
	if err != nil {
		return err
	}

	if !seller.IsSigner {
		return ErrMissingSignature
	}

	record, err := p.loadRecord(env, escrow)
	if err != nil {
		return err
	}
	if !bytes.Equal(seller.PublicKey, record.Seller) {
		return ErrWrongSeller
	}
	if !bytes.Equal(vault.PublicKey, record.Vault) {
		return ErrAddressMismatch
	}

	authoritySeeds := vaultAuthoritySeeds(record.Seller, record.VaultAuthorityBump)
	expectedAuthority, err := solana.CreateProgramAddress(env.Program, authoritySeeds...)
	if err != nil {
		return errors.Wrap(ErrAddressMismatch, err.Error())
	}
	if !bytes.Equal(expectedAuthority, vaultAuthority.PublicKey) {
		return ErrAddressMismatch
	}

	var vaultState token.Account
	if !vaultState.Unmarshal(vault.Data()) {
		return ErrInvalidAccountData
	}
	if vaultState.Amount != 1 {
		return ErrVaultImbalance
	}

	var holderState token.Account
	if !holderState.Unmarshal(sellerAssetHolder.Data()) {
		return ErrInvalidAccountData
	}
	if !bytes.Equal(holderState.Owner, seller.PublicKey) {
		return ErrUnauthorizedHoldingAccount
	}
	if !bytes.Equal(holderState.Mint, record.Mint) {
		return ErrInvalidAccountData
	}

	err = env.InvokeSigned(
		token.Transfer(vault.PublicKey, sellerAssetHolder.PublicKey, expectedAuthority, 1),
		authoritySeeds,
	)
	if err != nil {
		return err
	}

	err = env.InvokeSigned(
		token.CloseAccount(vault.PublicKey, seller.PublicKey, expectedAuthority),
		authoritySeeds,
	)
	if err != nil {
		return err
	}

	return p.closeRecord(escrow, seller)
}

// loadRecord reads a live escrow record. A reclaimed record account has no
// data (or no longer exists at all), so a closed escrow is indistinguishable
// from one that never opened.
func (p *Processor) loadRecord(env *emulator.Env, escrow *emulator.AccountInfo) (*EscrowAccount, error) {
	if !bytes.Equal(escrow.Owner(), env.Program) {
		return nil, ErrEscrowNotActive
	}

	var record EscrowAccount
	if err := record.Unmarshal(escrow.Data()); err != nil {
		return nil, ErrEscrowNotActive
	}
	return &record, nil
}

// closeRecord reclaims an escrow record, returning its rent reserve to the
// destination. Draining the lamports is what deletes the account.
func (p *Processor) closeRecord(escrow, dest *emulator.AccountInfo) error {
	lamports := escrow.Lamports()
	if err := escrow.Debit(lamports); err != nil {
		return err
	}
	if err := dest.Credit(lamports); err != nil {
		return err
	}
	return escrow.SetData(nil)
}
