package nft_trade

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/nft-trade/pkg/solana"
	"github.com/code-payments/nft-trade/pkg/solana/system"
	"github.com/code-payments/nft-trade/pkg/solana/token"
)

var initializeInstructionDiscriminator = []byte{
	175, 175, 109, 31, 13, 152, 155, 237,
}

const (
	InitializeInstructionArgsSize = (1 + // vaultBump
		8 + // price
		2) // feeRate

	InitializeInstructionSize = (8 + // discriminator
		InitializeInstructionArgsSize) // args
)

type InitializeInstructionArgs struct {
	VaultBump uint8
	Price     uint64
	FeeRate   uint16
}

type InitializeInstructionAccounts struct {
	Seller            ed25519.PublicKey
	Mint              ed25519.PublicKey
	Vault             ed25519.PublicKey
	SellerAssetHolder ed25519.PublicKey
	Escrow            ed25519.PublicKey
}

func NewInitializeInstruction(
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte, InitializeInstructionSize)
	putDiscriminator(data, initializeInstructionDiscriminator, &offset)
	putUint8(data, args.VaultBump, &offset)
	putUint64(data, args.Price, &offset)
	putUint16(data, args.FeeRate, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Seller, true),
		solana.NewReadonlyAccountMeta(accounts.Mint, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.SellerAssetHolder, false),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

func InitializeInstructionFromBinary(data []byte) (*InitializeInstructionArgs, error) {
	if len(data) != InitializeInstructionSize {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, initializeInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	var args InitializeInstructionArgs
	getUint8(data, &args.VaultBump, &offset)
	getUint64(data, &args.Price, &offset)
	getUint16(data, &args.FeeRate, &offset)

	return &args, nil
}
