package nft_trade

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/nft-trade/pkg/solana"
	"github.com/code-payments/nft-trade/pkg/solana/system"
	"github.com/code-payments/nft-trade/pkg/solana/token"
)

var exchangeInstructionDiscriminator = []byte{
	47, 3, 27, 97, 215, 236, 219, 144,
}

const (
	ExchangeInstructionArgsSize = 8 // amount

	ExchangeInstructionSize = (8 + // discriminator
		ExchangeInstructionArgsSize) // args
)

type ExchangeInstructionArgs struct {
	Amount uint64
}

type ExchangeInstructionAccounts struct {
	Buyer            ed25519.PublicKey
	BuyerAssetHolder ed25519.PublicKey
	Seller           ed25519.PublicKey
	Escrow           ed25519.PublicKey
	FeeRecipient     ed25519.PublicKey
	Vault            ed25519.PublicKey
	VaultAuthority   ed25519.PublicKey
}

func NewExchangeInstruction(
	accounts *ExchangeInstructionAccounts,
	args *ExchangeInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, ExchangeInstructionSize)
	putDiscriminator(data, exchangeInstructionDiscriminator, &offset)
	putUint64(data, args.Amount, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Buyer, true),
		solana.NewAccountMeta(accounts.BuyerAssetHolder, false),
		solana.NewAccountMeta(accounts.Seller, false),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewAccountMeta(accounts.FeeRecipient, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(accounts.VaultAuthority, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
	)
}

func ExchangeInstructionFromBinary(data []byte) (*ExchangeInstructionArgs, error) {
	if len(data) != ExchangeInstructionSize {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, exchangeInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	var args ExchangeInstructionArgs
	getUint64(data, &args.Amount, &offset)

	return &args, nil
}
