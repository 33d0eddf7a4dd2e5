package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/nft-trade/pkg/code/data/escrow"
	"github.com/code-payments/nft-trade/pkg/database/query"
	"github.com/code-payments/nft-trade/pkg/pointer"
)

func RunTests(t *testing.T, s escrow.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s escrow.Store){
		testRoundTrip,
		testUpdateConstraints,
		testGetAllBySeller,
		testGetAllByState,
		testCountByState,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s escrow.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		expected := &escrow.Record{
			Address: "address",
			Seller:  "seller",
			Mint:    "mint",
			Vault:   "vault",

			VaultAuthorityBump: 253,

			Price:   5_000_000_000,
			FeeRate: 30,

			State: escrow.StateOpen,

			CreatedAt: time.Now(),
		}

		_, err := s.GetByAddress(ctx, expected.Address)
		assert.Equal(t, escrow.ErrEscrowNotFound, err)

		_, err = s.GetByVault(ctx, expected.Vault)
		assert.Equal(t, escrow.ErrEscrowNotFound, err)

		require.NoError(t, s.Save(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)

		actual, err = s.GetByVault(ctx, expected.Vault)
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)
	})
}

func testUpdateConstraints(t *testing.T, s escrow.Store) {
	t.Run("testUpdateConstraints", func(t *testing.T) {
		ctx := context.Background()

		record := &escrow.Record{
			Address: "address",
			Seller:  "seller",
			Mint:    "mint",
			Vault:   "vault",

			Price:   1_000,
			FeeRate: 30,

			State: escrow.StateOpen,
		}
		require.NoError(t, s.Save(ctx, record))

		// A completed escrow must name its buyer.
		invalid := record.Clone()
		invalid.State = escrow.StateCompleted
		assert.Error(t, s.Save(ctx, invalid))

		updated := record.Clone()
		updated.State = escrow.StateCompleted
		updated.Buyer = pointer.String("buyer")
		require.NoError(t, s.Save(ctx, updated))
		assert.NotNil(t, updated.ClosedAt)

		// The outcome never reverses, and the buyer never changes.
		reverted := updated.Clone()
		reverted.State = escrow.StateOpen
		reverted.Buyer = nil
		assert.Equal(t, escrow.ErrInvalidEscrow, s.Save(ctx, reverted))

		flipped := updated.Clone()
		flipped.Buyer = pointer.String("other")
		assert.Equal(t, escrow.ErrInvalidEscrow, s.Save(ctx, flipped))

		actual, err := s.GetByAddress(ctx, record.Address)
		require.NoError(t, err)
		assert.Equal(t, escrow.StateCompleted, actual.State)
		require.NotNil(t, actual.Buyer)
		assert.Equal(t, "buyer", *actual.Buyer)

		// A vault account backs at most one escrow.
		colliding := &escrow.Record{
			Address: "address2",
			Seller:  "seller",
			Mint:    "mint",
			Vault:   record.Vault,

			Price:   1_000,
			FeeRate: 30,

			State: escrow.StateOpen,
		}
		assert.Equal(t, escrow.ErrInvalidEscrow, s.Save(ctx, colliding))

		_, err = s.GetByAddress(ctx, colliding.Address)
		assert.Equal(t, escrow.ErrEscrowNotFound, err)
	})
}

func testGetAllBySeller(t *testing.T, s escrow.Store) {
	t.Run("testGetAllBySeller", func(t *testing.T) {
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			require.NoError(t, s.Save(ctx, &escrow.Record{
				Address: fmt.Sprintf("address%d", i),
				Seller:  "seller",
				Mint:    fmt.Sprintf("mint%d", i),
				Vault:   fmt.Sprintf("vault%d", i),

				Price:   1_000,
				FeeRate: 30,

				State: escrow.StateOpen,
			}))
		}

		_, err := s.GetAllBySeller(ctx, "other", query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, escrow.ErrEscrowNotFound, err)

		records, err := s.GetAllBySeller(ctx, "seller", query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, records, 5)
		assert.Equal(t, "address0", records[0].Address)
		assert.Equal(t, "address4", records[4].Address)

		records, err = s.GetAllBySeller(ctx, "seller", query.EmptyCursor, 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, records, 5)
		assert.Equal(t, "address4", records[0].Address)

		records, err = s.GetAllBySeller(ctx, "seller", query.EmptyCursor, 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, records, 2)

		records, err = s.GetAllBySeller(ctx, "seller", query.ToCursor(records[1].Id), 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "address2", records[0].Address)
	})
}

func testGetAllByState(t *testing.T, s escrow.Store) {
	t.Run("testGetAllByState", func(t *testing.T) {
		ctx := context.Background()

		for i, state := range []escrow.State{
			escrow.StateOpen,
			escrow.StateOpen,
			escrow.StateCancelled,
		} {
			require.NoError(t, s.Save(ctx, &escrow.Record{
				Address: fmt.Sprintf("address%d", i),
				Seller:  fmt.Sprintf("seller%d", i),
				Mint:    "mint",
				Vault:   fmt.Sprintf("vault%d", i),

				Price:   1_000,
				FeeRate: 30,

				State: state,
			}))
		}

		_, err := s.GetAllByState(ctx, escrow.StateCompleted, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, escrow.ErrEscrowNotFound, err)

		records, err := s.GetAllByState(ctx, escrow.StateOpen, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, records, 2)

		records, err = s.GetAllByState(ctx, escrow.StateCancelled, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "address2", records[0].Address)
	})
}

func testCountByState(t *testing.T, s escrow.Store) {
	t.Run("testCountByState", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.CountByState(ctx, escrow.StateOpen)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		for i := 0; i < 3; i++ {
			require.NoError(t, s.Save(ctx, &escrow.Record{
				Address: fmt.Sprintf("address%d", i),
				Seller:  "seller",
				Mint:    "mint",
				Vault:   fmt.Sprintf("vault%d", i),

				Price:   1_000,
				FeeRate: 30,

				State: escrow.StateOpen,
			}))
		}

		count, err = s.CountByState(ctx, escrow.StateOpen)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *escrow.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Seller, obj2.Seller)
	assert.Equal(t, obj1.Mint, obj2.Mint)
	assert.Equal(t, obj1.Vault, obj2.Vault)
	assert.Equal(t, obj1.VaultAuthorityBump, obj2.VaultAuthorityBump)
	assert.Equal(t, obj1.Price, obj2.Price)
	assert.Equal(t, obj1.FeeRate, obj2.FeeRate)
	assert.EqualValues(t, obj1.Buyer, obj2.Buyer)
	assert.Equal(t, obj1.State, obj2.State)
}
