package escrow

import (
	"context"
	"errors"

	"github.com/code-payments/nft-trade/pkg/database/query"
)

var (
	ErrEscrowNotFound = errors.New("escrow record not found")
	ErrInvalidEscrow  = errors.New("escrow record is invalid")
)

type Store interface {
	// Save saves an escrow's state. The trade terms are fixed at creation;
	// only the lifecycle fields (state, buyer, closed time) may advance,
	// and only forward.
	Save(ctx context.Context, record *Record) error

	// GetByAddress gets an escrow by its record account address
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetByVault gets an escrow by its vault account address
	GetByVault(ctx context.Context, vault string) (*Record, error)

	// GetAllBySeller gets all escrows opened by the provided seller
	GetAllBySeller(ctx context.Context, seller string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// GetAllByState gets all escrows in the provided state
	GetAllByState(ctx context.Context, state State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// CountByState counts the number of escrows in a given state
	CountByState(ctx context.Context, state State) (uint64, error)
}
