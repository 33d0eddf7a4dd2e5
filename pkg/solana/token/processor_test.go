package token

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/nft-trade/pkg/solana"
	"github.com/code-payments/nft-trade/pkg/solana/emulator"
	"github.com/code-payments/nft-trade/pkg/solana/system"
)

type testEnv struct {
	emu *emulator.Emulator

	payer         ed25519.PublicKey
	mint          ed25519.PublicKey
	mintAuthority ed25519.PublicKey
}

func setup(t *testing.T) *testEnv {
	env := &testEnv{
		emu:           emulator.New(),
		payer:         generateKey(t),
		mint:          generateKey(t),
		mintAuthority: generateKey(t),
	}

	env.emu.RegisterProcessor(ProgramKey, NewProcessor())
	env.emu.Fund(env.payer, 100_000_000_000)

	err := env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.payer, env.mint},
		system.CreateAccount(env.payer, env.mint, ProgramKey, emulator.MinimumBalanceForRentExemption(MintSize), MintSize),
		InitializeMint(env.mint, env.mintAuthority, 0),
	))
	require.NoError(t, err)

	return env
}

func (e *testEnv) createTokenAccount(t *testing.T, owner ed25519.PublicKey) ed25519.PublicKey {
	address := generateKey(t)

	err := e.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{e.payer, address},
		system.CreateAccount(e.payer, address, ProgramKey, emulator.MinimumBalanceForRentExemption(AccountSize), AccountSize),
		InitializeAccount(address, e.mint, owner),
	))
	require.NoError(t, err)

	return address
}

func (e *testEnv) getTokenAccount(t *testing.T, address ed25519.PublicKey) *Account {
	raw, ok := e.emu.GetAccount(address)
	require.True(t, ok)

	var account Account
	require.True(t, account.Unmarshal(raw.Data))
	return &account
}

func TestProcessor_InitializeAccount(t *testing.T) {
	env := setup(t)

	owner := generateKey(t)
	address := env.createTokenAccount(t, owner)

	account := env.getTokenAccount(t, address)
	assert.Equal(t, env.mint, account.Mint)
	assert.Equal(t, owner, account.Owner)
	assert.EqualValues(t, 0, account.Amount)
	assert.Equal(t, AccountStateInitialized, account.State)

	// Double initialization is rejected.
	err := env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{address},
		InitializeAccount(address, env.mint, owner),
	))
	assert.ErrorIs(t, err, ErrorAlreadyInUse)
}

func TestProcessor_MintToAndTransfer(t *testing.T) {
	env := setup(t)

	alice := generateKey(t)
	bob := generateKey(t)
	aliceAccount := env.createTokenAccount(t, alice)
	bobAccount := env.createTokenAccount(t, bob)

	err := env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.mintAuthority},
		MintTo(env.mint, aliceAccount, env.mintAuthority, 10),
	))
	require.NoError(t, err)
	assert.EqualValues(t, 10, env.getTokenAccount(t, aliceAccount).Amount)

	// Only the mint authority can mint.
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{alice},
		MintTo(env.mint, aliceAccount, alice, 10),
	))
	assert.ErrorIs(t, err, ErrorOwnerMismatch)

	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{alice},
		Transfer(aliceAccount, bobAccount, alice, 4),
	))
	require.NoError(t, err)
	assert.EqualValues(t, 6, env.getTokenAccount(t, aliceAccount).Amount)
	assert.EqualValues(t, 4, env.getTokenAccount(t, bobAccount).Amount)

	// Insufficient balance.
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{alice},
		Transfer(aliceAccount, bobAccount, alice, 100),
	))
	assert.ErrorIs(t, err, ErrorInsufficientFunds)

	// Wrong owner.
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{bob},
		Transfer(aliceAccount, bobAccount, bob, 1),
	))
	assert.ErrorIs(t, err, ErrorOwnerMismatch)
}

func TestProcessor_UnflaggedOwnerRejected(t *testing.T) {
	env := setup(t)

	alice := generateKey(t)
	bob := generateKey(t)
	aliceAccount := env.createTokenAccount(t, alice)
	bobAccount := env.createTokenAccount(t, bob)

	err := env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.mintAuthority},
		MintTo(env.mint, aliceAccount, env.mintAuthority, 10),
	))
	require.NoError(t, err)

	// Naming the right owner in the instruction isn't enough: the owner
	// meta must be flagged as a signer, otherwise an unsigned transaction
	// could move the balance.
	instr := Transfer(aliceAccount, bobAccount, alice, 4)
	instr.Accounts[2] = solana.NewReadonlyAccountMeta(alice, false)

	err = env.emu.Execute(emulator.NewTransaction(nil, instr))
	assert.ErrorIs(t, err, emulator.ErrMissingSignature)
	assert.EqualValues(t, 10, env.getTokenAccount(t, aliceAccount).Amount)
	assert.EqualValues(t, 0, env.getTokenAccount(t, bobAccount).Amount)

	instr = SetAuthority(aliceAccount, alice, bob, AuthorityTypeAccountHolder)
	instr.Accounts[1] = solana.NewReadonlyAccountMeta(alice, false)

	err = env.emu.Execute(emulator.NewTransaction(nil, instr))
	assert.ErrorIs(t, err, emulator.ErrMissingSignature)
	assert.Equal(t, alice, env.getTokenAccount(t, aliceAccount).Owner)

	instr = CloseAccount(bobAccount, alice, bob)
	instr.Accounts[2] = solana.NewReadonlyAccountMeta(bob, false)

	err = env.emu.Execute(emulator.NewTransaction(nil, instr))
	assert.ErrorIs(t, err, emulator.ErrMissingSignature)
	_, ok := env.emu.GetAccount(bobAccount)
	assert.True(t, ok)
}

func TestProcessor_SetAuthority(t *testing.T) {
	env := setup(t)

	alice := generateKey(t)
	bob := generateKey(t)
	account := env.createTokenAccount(t, alice)

	err := env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{alice},
		SetAuthority(account, alice, bob, AuthorityTypeAccountHolder),
	))
	require.NoError(t, err)
	assert.Equal(t, bob, env.getTokenAccount(t, account).Owner)

	// The old owner no longer controls the account.
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{alice},
		SetAuthority(account, alice, alice, AuthorityTypeAccountHolder),
	))
	assert.ErrorIs(t, err, ErrorOwnerMismatch)
}

func TestProcessor_CloseAccount(t *testing.T) {
	env := setup(t)

	alice := generateKey(t)
	destination := generateKey(t)
	account := env.createTokenAccount(t, alice)

	err := env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{env.mintAuthority},
		MintTo(env.mint, account, env.mintAuthority, 1),
	))
	require.NoError(t, err)

	// Accounts holding a balance cannot be closed.
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{alice},
		CloseAccount(account, destination, alice),
	))
	assert.ErrorIs(t, err, ErrorNonNativeHasBalance)

	other := env.createTokenAccount(t, alice)
	err = env.emu.Execute(emulator.NewTransaction(
		[]ed25519.PublicKey{alice},
		Transfer(account, other, alice, 1),
		CloseAccount(account, destination, alice),
	))
	require.NoError(t, err)

	_, ok := env.emu.GetAccount(account)
	assert.False(t, ok)

	rent, ok := env.emu.GetAccount(destination)
	require.True(t, ok)
	assert.EqualValues(t, emulator.MinimumBalanceForRentExemption(AccountSize), rent.Lamports)
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
