package nft_trade

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/nft-trade/pkg/solana"
	"github.com/code-payments/nft-trade/pkg/solana/token"
)

var cancelInstructionDiscriminator = []byte{
	232, 219, 223, 41, 219, 236, 220, 190,
}

const CancelInstructionSize = 8 // discriminator

type CancelInstructionAccounts struct {
	Seller            ed25519.PublicKey
	Vault             ed25519.PublicKey
	VaultAuthority    ed25519.PublicKey
	SellerAssetHolder ed25519.PublicKey
	Escrow            ed25519.PublicKey
}

func NewCancelInstruction(
	accounts *CancelInstructionAccounts,
) solana.Instruction {
	var offset int

	data := make([]byte, CancelInstructionSize)
	putDiscriminator(data, cancelInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Seller, true),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(accounts.VaultAuthority, false),
		solana.NewAccountMeta(accounts.SellerAssetHolder, false),
		solana.NewAccountMeta(accounts.Escrow, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

func CancelInstructionFromBinary(data []byte) error {
	if len(data) != CancelInstructionSize {
		return ErrInvalidInstructionData
	}

	var offset int
	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, cancelInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	return nil
}
