package nft_trade

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("6yMsjNTLtgkC1rUaJCjPeESt34Cd4nDSyVqn2i4qm1oy")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
	ErrInvalidAccountData     = errors.New("unexpected account data")

	// Authorization errors: a required party didn't sign, or signed for
	// state it doesn't control.
	ErrMissingSignature           = errors.New("missing required signature")
	ErrWrongSeller                = errors.New("signer is not the escrow's seller")
	ErrUnauthorizedHoldingAccount = errors.New("holding account is not owned by the required party")

	// Derivation errors: a supplied address doesn't match the value
	// recomputed from seeds or recorded on the escrow.
	ErrAddressMismatch = errors.New("account does not match derived or recorded address")

	// State errors: the escrow or its vault isn't in the expected state.
	ErrEscrowNotActive    = errors.New("escrow account does not exist or is closed")
	ErrAlreadyInitialized = errors.New("escrow account already initialized")
	ErrVaultImbalance     = errors.New("vault does not hold exactly one asset unit")

	// Parameter errors.
	ErrInvalidFeeRate = errors.New("fee rate exceeds maximum")
	ErrInvalidAmount  = errors.New("asset amount must be exactly one")

	ErrInsufficientFunds = errors.New("buyer cannot cover the escrow price")
)

// FeeRateDenominator fixes the fee unit at parts-per-thousand: a fee rate
// of 30 diverts 3% of the price to the fee recipient.
const FeeRateDenominator = 1000

// ComputeFee splits a price into the fee recipient's cut and the seller's
// remainder. The fee is rounded down, so the seller absorbs the remainder
// and feeAmount+sellerAmount always reconstructs the price exactly.
func ComputeFee(price uint64, feeRate uint16) (feeAmount, sellerAmount uint64) {
	q, r := price/FeeRateDenominator, price%FeeRateDenominator
	feeAmount = q*uint64(feeRate) + r*uint64(feeRate)/FeeRateDenominator
	return feeAmount, price - feeAmount
}
