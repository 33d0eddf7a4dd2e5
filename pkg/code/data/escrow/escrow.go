package escrow

import (
	"errors"
	"time"

	nft_trade "github.com/code-payments/nft-trade/pkg/solana/nfttrade"
	"github.com/code-payments/nft-trade/pkg/pointer"
)

type State uint8

const (
	StateUnknown State = iota
	StateOpen
	StateCompleted
	StateCancelled
)

// Record mirrors one escrow's on-ledger lifecycle. The ledger forgets a
// settled escrow entirely when its record account is reclaimed, so this is
// the only place the outcome (and the buyer) survives.
type Record struct {
	Id uint64

	Address string
	Seller  string
	Mint    string
	Vault   string

	VaultAuthorityBump uint8

	Price   uint64
	FeeRate uint16

	// Set when the escrow completes via an exchange.
	Buyer *string

	State State

	CreatedAt time.Time
	ClosedAt  *time.Time
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.Seller) == 0 {
		return errors.New("seller is required")
	}

	if len(r.Mint) == 0 {
		return errors.New("mint is required")
	}

	if len(r.Vault) == 0 {
		return errors.New("vault is required")
	}

	if r.FeeRate > nft_trade.FeeRateDenominator {
		return errors.New("fee rate exceeds maximum")
	}

	if r.State == StateCompleted && r.Buyer == nil {
		return errors.New("buyer is required for a completed escrow")
	}

	if r.State != StateCompleted && r.Buyer != nil {
		return errors.New("buyer is only set on a completed escrow")
	}

	return nil
}

func (r *Record) Clone() *Record {
	return &Record{
		Id: r.Id,

		Address: r.Address,
		Seller:  r.Seller,
		Mint:    r.Mint,
		Vault:   r.Vault,

		VaultAuthorityBump: r.VaultAuthorityBump,

		Price:   r.Price,
		FeeRate: r.FeeRate,

		Buyer: pointer.StringCopy(r.Buyer),

		State: r.State,

		CreatedAt: r.CreatedAt,
		ClosedAt:  pointer.TimeCopy(r.ClosedAt),
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Address = r.Address
	dst.Seller = r.Seller
	dst.Mint = r.Mint
	dst.Vault = r.Vault

	dst.VaultAuthorityBump = r.VaultAuthorityBump

	dst.Price = r.Price
	dst.FeeRate = r.FeeRate

	dst.Buyer = pointer.StringCopy(r.Buyer)

	dst.State = r.State

	dst.CreatedAt = r.CreatedAt
	dst.ClosedAt = pointer.TimeCopy(r.ClosedAt)
}

func (s State) IsClosed() bool {
	return s == StateCompleted || s == StateCancelled
}

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateOpen:
		return "open"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}
