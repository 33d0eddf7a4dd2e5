package nft_trade

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/nft-trade/pkg/solana/emulator"
	"github.com/code-payments/nft-trade/pkg/solana/system"
	"github.com/code-payments/nft-trade/pkg/solana/token"
)

type testEnv struct {
	emu *emulator.Emulator

	seller       ed25519.PublicKey
	buyer        ed25519.PublicKey
	feeRecipient ed25519.PublicKey

	mint          ed25519.PublicKey
	mintAuthority ed25519.PublicKey

	sellerAssetHolder ed25519.PublicKey
	buyerAssetHolder  ed25519.PublicKey

	vaultAuthority ed25519.PublicKey
}

func setup(t *testing.T) *testEnv {
	env := &testEnv{
		emu:           emulator.New(),
		seller:        generateKey(t),
		buyer:         generateKey(t),
		feeRecipient:  generateKey(t),
		mint:          generateKey(t),
		mintAuthority: generateKey(t),
	}

	env.emu.RegisterProcessor(token.ProgramKey, token.NewProcessor())
	env.emu.RegisterProcessor(PROGRAM_ID, NewProcessor())

	env.emu.Fund(env.seller, 100_000_000_000)
	env.emu.Fund(env.buyer, 100_000_000_000)

	err := env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.seller, env.mint},
		system.CreateAccount(env.seller, env.mint, token.ProgramKey, emulator.MinimumBalanceForRentExemption(token.MintSize), token.MintSize),
		token.InitializeMint(env.mint, env.mintAuthority, 0),
	))
	require.NoError(t, err)

	env.sellerAssetHolder = env.createAssetHolder(t, env.seller)
	env.buyerAssetHolder = env.createAssetHolder(t, env.buyer)

	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.mintAuthority},
		token.MintTo(env.mint, env.sellerAssetHolder, env.mintAuthority, 1),
	))
	require.NoError(t, err)

	vaultAuthority, _, err := GetVaultAuthorityAddress(&GetVaultAuthorityAddressArgs{
		Seller: env.seller,
	})
	require.NoError(t, err)
	env.vaultAuthority = vaultAuthority

	return env
}

func (e *testEnv) createAssetHolder(t *testing.T, owner ed25519.PublicKey) ed25519.PublicKey {
	address := generateKey(t)

	err := e.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{e.seller, address},
		system.CreateAccount(e.seller, address, token.ProgramKey, emulator.MinimumBalanceForRentExemption(token.AccountSize), token.AccountSize),
		token.InitializeAccount(address, e.mint, owner),
	))
	require.NoError(t, err)

	return address
}

// initialize opens an escrow for the test mint, pre-creating the record
// account in the same transaction the way a seller's client would.
func (e *testEnv) initialize(t *testing.T, price uint64, feeRate uint16) (escrow, vault ed25519.PublicKey) {
	vault, vaultBump, err := GetVaultAddress(&GetVaultAddressArgs{
		Mint:   e.mint,
		Seller: e.seller,
	})
	require.NoError(t, err)

	escrow = generateKey(t)
	err = e.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{e.seller, escrow},
		system.CreateAccount(e.seller, escrow, PROGRAM_ID, emulator.MinimumBalanceForRentExemption(EscrowAccountSize), EscrowAccountSize),
		NewInitializeInstruction(
			&InitializeInstructionAccounts{
				Seller:            e.seller,
				Mint:              e.mint,
				Vault:             vault,
				SellerAssetHolder: e.sellerAssetHolder,
				Escrow:            escrow,
			},
			&InitializeInstructionArgs{
				VaultBump: vaultBump,
				Price:     price,
				FeeRate:   feeRate,
			},
		),
	))
	require.NoError(t, err)

	return escrow, vault
}

func (e *testEnv) exchange(escrow, vault ed25519.PublicKey, amount uint64) error {
	return e.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{e.buyer},
		NewExchangeInstruction(
			&ExchangeInstructionAccounts{
				Buyer:            e.buyer,
				BuyerAssetHolder: e.buyerAssetHolder,
				Seller:           e.seller,
				Escrow:           escrow,
				FeeRecipient:     e.feeRecipient,
				Vault:            vault,
				VaultAuthority:   e.vaultAuthority,
			},
			&ExchangeInstructionArgs{Amount: amount},
		),
	))
}

func (e *testEnv) cancel(escrow, vault ed25519.PublicKey) error {
	return e.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{e.seller},
		NewCancelInstruction(&CancelInstructionAccounts{
			Seller:            e.seller,
			Vault:             vault,
			VaultAuthority:    e.vaultAuthority,
			SellerAssetHolder: e.sellerAssetHolder,
			Escrow:            escrow,
		}),
	))
}

func (e *testEnv) getAssetBalance(t *testing.T, address ed25519.PublicKey) uint64 {
	raw, ok := e.emu.GetAccount(address)
	require.True(t, ok)

	var account token.Account
	require.True(t, account.Unmarshal(raw.Data))
	return account.Amount
}

func (e *testEnv) getLamports(address ed25519.PublicKey) uint64 {
	raw, ok := e.emu.GetAccount(address)
	if !ok {
		return 0
	}
	return raw.Lamports
}

func TestProcessor_Initialize(t *testing.T) {
	env := setup(t)

	escrow, vault := env.initialize(t, 5_000_000_000, 30)

	// The asset moved from the seller's holding account into the vault,
	// which is owned by the derived authority.
	assert.EqualValues(t, 0, env.getAssetBalance(t, env.sellerAssetHolder))
	assert.EqualValues(t, 1, env.getAssetBalance(t, vault))

	raw, ok := env.emu.GetAccount(vault)
	require.True(t, ok)
	var vaultState token.Account
	require.True(t, vaultState.Unmarshal(raw.Data))
	assert.Equal(t, env.vaultAuthority, vaultState.Owner)
	assert.Equal(t, env.mint, vaultState.Mint)

	raw, ok = env.emu.GetAccount(escrow)
	require.True(t, ok)
	var record EscrowAccount
	require.NoError(t, record.Unmarshal(raw.Data))
	assert.Equal(t, env.seller, record.Seller)
	assert.Equal(t, env.mint, record.Mint)
	assert.Equal(t, vault, record.Vault)
	assert.EqualValues(t, 5_000_000_000, record.Price)
	assert.EqualValues(t, 30, record.FeeRate)
}

func TestProcessor_Initialize_Validation(t *testing.T) {
	env := setup(t)

	vault, vaultBump, err := GetVaultAddress(&GetVaultAddressArgs{
		Mint:   env.mint,
		Seller: env.seller,
	})
	require.NoError(t, err)

	newRecordAccount := func() ed25519.PublicKey {
		escrow := generateKey(t)
		err := env.emu.Execute(emulator.NewTransaction(
			[]ed25519.PublicKey{env.seller, escrow},
			system.CreateAccount(env.seller, escrow, PROGRAM_ID, emulator.MinimumBalanceForRentExemption(EscrowAccountSize), EscrowAccountSize),
		))
		require.NoError(t, err)
		return escrow
	}

	accounts := &InitializeInstructionAccounts{
		Seller:            env.seller,
		Mint:              env.mint,
		Vault:             vault,
		SellerAssetHolder: env.sellerAssetHolder,
		Escrow:            newRecordAccount(),
	}

	// Fee rate beyond one thousand parts-per-thousand.
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.seller},
		NewInitializeInstruction(accounts, &InitializeInstructionArgs{
			VaultBump: vaultBump,
			Price:     1,
			FeeRate:   FeeRateDenominator + 1,
		}),
	))
	assert.ErrorIs(t, err, ErrInvalidFeeRate)

	// Vault address not derived from (mint, seller).
	badAccounts := *accounts
	badAccounts.Vault = generateKey(t)
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.seller},
		NewInitializeInstruction(&badAccounts, &InitializeInstructionArgs{
			VaultBump: vaultBump,
			Price:     1,
			FeeRate:   30,
		}),
	))
	assert.ErrorIs(t, err, ErrAddressMismatch)

	// Holding account belonging to someone else.
	badAccounts = *accounts
	badAccounts.SellerAssetHolder = env.buyerAssetHolder
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.seller},
		NewInitializeInstruction(&badAccounts, &InitializeInstructionArgs{
			VaultBump: vaultBump,
			Price:     1,
			FeeRate:   30,
		}),
	))
	assert.ErrorIs(t, err, ErrUnauthorizedHoldingAccount)

	// Valid escrow, then a second attempt against the same record.
	escrow, _ := env.initialize(t, 1_000, 30)
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.seller},
		NewInitializeInstruction(
			&InitializeInstructionAccounts{
				Seller:            env.seller,
				Mint:              env.mint,
				Vault:             vault,
				SellerAssetHolder: env.sellerAssetHolder,
				Escrow:            escrow,
			},
			&InitializeInstructionArgs{
				VaultBump: vaultBump,
				Price:     1,
				FeeRate:   30,
			},
		),
	))
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	// A fresh record doesn't help either: the vault for (mint, seller)
	// already exists while the first escrow is live.
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.seller},
		NewInitializeInstruction(
			&InitializeInstructionAccounts{
				Seller:            env.seller,
				Mint:              env.mint,
				Vault:             vault,
				SellerAssetHolder: env.sellerAssetHolder,
				Escrow:            newRecordAccount(),
			},
			&InitializeInstructionArgs{
				VaultBump: vaultBump,
				Price:     1,
				FeeRate:   30,
			},
		),
	))
	assert.ErrorIs(t, err, emulator.ErrAccountAlreadyInitialized)
}

func TestProcessor_Exchange(t *testing.T) {
	env := setup(t)

	escrow, vault := env.initialize(t, 5_000_000_000, 30)

	buyerBefore := env.getLamports(env.buyer)
	sellerBefore := env.getLamports(env.seller)
	feeBefore := env.getLamports(env.feeRecipient)

	require.NoError(t, env.exchange(escrow, vault, 1))

	// The asset landed with the buyer and the vault is gone.
	assert.EqualValues(t, 1, env.getAssetBalance(t, env.buyerAssetHolder))
	_, ok := env.emu.GetAccount(vault)
	assert.False(t, ok)

	// 3% of the price to the fee recipient, the rest to the seller, plus
	// the rent reserves of the reclaimed vault and record.
	vaultRent := emulator.MinimumBalanceForRentExemption(token.AccountSize)
	recordRent := emulator.MinimumBalanceForRentExemption(EscrowAccountSize)
	assert.Equal(t, buyerBefore-5_000_000_000, env.getLamports(env.buyer))
	assert.Equal(t, feeBefore+150_000_000, env.getLamports(env.feeRecipient))
	assert.Equal(t, sellerBefore+4_850_000_000+vaultRent+recordRent, env.getLamports(env.seller))

	// The record no longer exists, so the escrow can't be settled twice.
	_, ok = env.emu.GetAccount(escrow)
	assert.False(t, ok)
	assert.ErrorIs(t, env.exchange(escrow, vault, 1), ErrEscrowNotActive)
}

func TestProcessor_Exchange_Validation(t *testing.T) {
	env := setup(t)

	escrow, vault := env.initialize(t, 5_000_000_000, 30)

	// Only a single asset unit can change hands.
	assert.ErrorIs(t, env.exchange(escrow, vault, 2), ErrInvalidAmount)
	assert.ErrorIs(t, env.exchange(escrow, vault, 0), ErrInvalidAmount)

	// Receiving into a holding account the buyer doesn't own.
	stranger := generateKey(t)
	strangerHolder := env.createAssetHolder(t, stranger)
	err := env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.buyer},
		NewExchangeInstruction(
			&ExchangeInstructionAccounts{
				Buyer:            env.buyer,
				BuyerAssetHolder: strangerHolder,
				Seller:           env.seller,
				Escrow:           escrow,
				FeeRecipient:     env.feeRecipient,
				Vault:            vault,
				VaultAuthority:   env.vaultAuthority,
			},
			&ExchangeInstructionArgs{Amount: 1},
		),
	))
	assert.ErrorIs(t, err, ErrUnauthorizedHoldingAccount)

	// Redirecting proceeds to an account other than the recorded seller.
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.buyer},
		NewExchangeInstruction(
			&ExchangeInstructionAccounts{
				Buyer:            env.buyer,
				BuyerAssetHolder: env.buyerAssetHolder,
				Seller:           stranger,
				Escrow:           escrow,
				FeeRecipient:     env.feeRecipient,
				Vault:            vault,
				VaultAuthority:   env.vaultAuthority,
			},
			&ExchangeInstructionArgs{Amount: 1},
		),
	))
	assert.ErrorIs(t, err, ErrAddressMismatch)

	// A buyer who can't cover the price.
	poor := generateKey(t)
	poorHolder := env.createAssetHolder(t, poor)
	env.emu.Fund(poor, 1_000_000)
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{poor},
		NewExchangeInstruction(
			&ExchangeInstructionAccounts{
				Buyer:            poor,
				BuyerAssetHolder: poorHolder,
				Seller:           env.seller,
				Escrow:           escrow,
				FeeRecipient:     env.feeRecipient,
				Vault:            vault,
				VaultAuthority:   env.vaultAuthority,
			},
			&ExchangeInstructionArgs{Amount: 1},
		),
	))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// A buyer meta not marked as signer is rejected by the program even
	// if the runtime's signature list would allow it through.
	instruction := NewExchangeInstruction(
		&ExchangeInstructionAccounts{
			Buyer:            env.buyer,
			BuyerAssetHolder: env.buyerAssetHolder,
			Seller:           env.seller,
			Escrow:           escrow,
			FeeRecipient:     env.feeRecipient,
			Vault:            vault,
			VaultAuthority:   env.vaultAuthority,
		},
		&ExchangeInstructionArgs{Amount: 1},
	)
	instruction.Accounts[0].IsSigner = false
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.buyer},
		instruction,
	))
	assert.ErrorIs(t, err, ErrMissingSignature)

	// None of the failures consumed the escrow.
	assert.EqualValues(t, 1, env.getAssetBalance(t, vault))
	require.NoError(t, env.exchange(escrow, vault, 1))
}

func TestProcessor_Cancel(t *testing.T) {
	env := setup(t)

	escrow, vault := env.initialize(t, 5_000_000_000, 30)
	sellerBefore := env.getLamports(env.seller)

	require.NoError(t, env.cancel(escrow, vault))

	// The asset is back with the seller, and both program accounts were
	// reclaimed with their rent returned.
	assert.EqualValues(t, 1, env.getAssetBalance(t, env.sellerAssetHolder))
	_, ok := env.emu.GetAccount(vault)
	assert.False(t, ok)
	_, ok = env.emu.GetAccount(escrow)
	assert.False(t, ok)

	vaultRent := emulator.MinimumBalanceForRentExemption(token.AccountSize)
	recordRent := emulator.MinimumBalanceForRentExemption(EscrowAccountSize)
	assert.Equal(t, sellerBefore+vaultRent+recordRent, env.getLamports(env.seller))

	// A settled escrow can't be exchanged or cancelled again.
	assert.ErrorIs(t, env.exchange(escrow, vault, 1), ErrEscrowNotActive)
	assert.ErrorIs(t, env.cancel(escrow, vault), ErrEscrowNotActive)
}

func TestProcessor_Cancel_OnlySeller(t *testing.T) {
	env := setup(t)

	escrow, vault := env.initialize(t, 5_000_000_000, 30)

	// The buyer attempting to masquerade as the seller.
	attackerHolder := env.createAssetHolder(t, env.buyer)
	err := env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.buyer},
		NewCancelInstruction(&CancelInstructionAccounts{
			Seller:            env.buyer,
			Vault:             vault,
			VaultAuthority:    env.vaultAuthority,
			SellerAssetHolder: attackerHolder,
			Escrow:            escrow,
		}),
	))
	assert.ErrorIs(t, err, ErrWrongSeller)

	// The escrow is untouched and still settles.
	require.NoError(t, env.exchange(escrow, vault, 1))
}

func TestProcessor_ReopenAfterCancel(t *testing.T) {
	env := setup(t)

	escrow, vault := env.initialize(t, 5_000_000_000, 30)
	require.NoError(t, env.cancel(escrow, vault))

	// Cancelling released the (mint, seller) vault address, so the same
	// asset can be listed again at a new price.
	escrow, vault = env.initialize(t, 7_000_000_000, 50)

	raw, ok := env.emu.GetAccount(escrow)
	require.True(t, ok)
	var record EscrowAccount
	require.NoError(t, record.Unmarshal(raw.Data))
	assert.EqualValues(t, 7_000_000_000, record.Price)
	assert.EqualValues(t, 50, record.FeeRate)

	require.NoError(t, env.exchange(escrow, vault, 1))
	assert.EqualValues(t, 1, env.getAssetBalance(t, env.buyerAssetHolder))
}

func TestComputeFee(t *testing.T) {
	for _, tc := range []struct {
		price   uint64
		feeRate uint16
		fee     uint64
	}{
		{5_000_000_000, 30, 150_000_000},
		{1_000, 0, 0},
		{1_000, 1000, 1_000},
		{999, 30, 29}, // 29.97 rounded down
		{1, 999, 0},   // fee always rounds toward the seller
		{0, 30, 0},
	} {
		fee, sellerAmount := ComputeFee(tc.price, tc.feeRate)
		assert.Equal(t, tc.fee, fee, "price=%d feeRate=%d", tc.price, tc.feeRate)
		assert.Equal(t, tc.price-tc.fee, sellerAmount, "price=%d feeRate=%d", tc.price, tc.feeRate)
	}
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}
