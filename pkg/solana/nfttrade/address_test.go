package nft_trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/nft-trade/pkg/solana"
)

func TestGetVaultAddress(t *testing.T) {
	mint := generateKey(t)
	seller := generateKey(t)

	address, bump, err := GetVaultAddress(&GetVaultAddressArgs{
		Mint:   mint,
		Seller: seller,
	})
	require.NoError(t, err)

	// The bump reconstructs the same address inside program logic.
	reconstructed, err := solana.CreateProgramAddress(
		PROGRAM_ID,
		vaultSeeds(mint, seller, bump)...,
	)
	require.NoError(t, err)
	assert.Equal(t, address, reconstructed)

	// A different seller lands on a different vault.
	other, _, err := GetVaultAddress(&GetVaultAddressArgs{
		Mint:   mint,
		Seller: generateKey(t),
	})
	require.NoError(t, err)
	assert.NotEqual(t, address, other)
}

func TestGetVaultAuthorityAddress(t *testing.T) {
	seller := generateKey(t)

	address, bump, err := GetVaultAuthorityAddress(&GetVaultAuthorityAddressArgs{
		Seller: seller,
	})
	require.NoError(t, err)

	reconstructed, err := solana.CreateProgramAddress(
		PROGRAM_ID,
		vaultAuthoritySeeds(seller, bump)...,
	)
	require.NoError(t, err)
	assert.Equal(t, address, reconstructed)
}
