package nft_trade

import (
	"crypto/ed25519"

	"github.com/code-payments/nft-trade/pkg/solana"
)

var (
	vaultPrefix          = []byte("genezys-sell-nft")
	vaultAuthorityPrefix = []byte("genezys-escrow")
)

type GetVaultAddressArgs struct {
	Mint   ed25519.PublicKey
	Seller ed25519.PublicKey
}

type GetVaultAuthorityAddressArgs struct {
	Seller ed25519.PublicKey
}

// GetVaultAddress derives the custody account address for one (mint,
// seller) pair. A seller cannot open a second escrow for the same asset
// without first closing the previous one, since both would collide on this
// address.
func GetVaultAddress(args *GetVaultAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		vaultPrefix,
		args.Mint,
		args.Seller,
	)
}

// GetVaultAuthorityAddress derives the keyless authority that owns a
// seller's vaults. One authority serves every escrow the seller opens.
func GetVaultAuthorityAddress(args *GetVaultAuthorityAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		vaultAuthorityPrefix,
		args.Seller,
	)
}

func vaultSeeds(mint, seller ed25519.PublicKey, bump uint8) [][]byte {
	return [][]byte{
		vaultPrefix,
		mint,
		seller,
		{bump},
	}
}

func vaultAuthoritySeeds(seller ed25519.PublicKey, bump uint8) [][]byte {
	return [][]byte{
		vaultAuthorityPrefix,
		seller,
		{bump},
	}
}
