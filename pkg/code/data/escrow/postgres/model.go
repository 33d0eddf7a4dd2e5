package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/nft-trade/pkg/code/data/escrow"
	pgutil "github.com/code-payments/nft-trade/pkg/database/postgres"
	q "github.com/code-payments/nft-trade/pkg/database/query"
)

const (
	tableName = "nfttrade__core_escrow"

	allColumns = "id, address, seller, mint, vault, vault_authority_bump, price, fee_rate, buyer, state, created_at, closed_at"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Address string `db:"address"`
	Seller  string `db:"seller"`
	Mint    string `db:"mint"`
	Vault   string `db:"vault"`

	VaultAuthorityBump uint `db:"vault_authority_bump"`

	Price   uint64 `db:"price"`
	FeeRate uint   `db:"fee_rate"`

	Buyer sql.NullString `db:"buyer"`

	State uint `db:"state"`

	CreatedAt time.Time    `db:"created_at"`
	ClosedAt  sql.NullTime `db:"closed_at"`
}

func toModel(obj *escrow.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	var buyer sql.NullString
	if obj.Buyer != nil {
		buyer.Valid = true
		buyer.String = *obj.Buyer
	}

	var closedAt sql.NullTime
	if obj.ClosedAt != nil {
		closedAt.Valid = true
		closedAt.Time = *obj.ClosedAt
	}

	return &model{
		Address: obj.Address,
		Seller:  obj.Seller,
		Mint:    obj.Mint,
		Vault:   obj.Vault,

		VaultAuthorityBump: uint(obj.VaultAuthorityBump),

		Price:   obj.Price,
		FeeRate: uint(obj.FeeRate),

		Buyer: buyer,

		State: uint(obj.State),

		CreatedAt: obj.CreatedAt,
		ClosedAt:  closedAt,
	}, nil
}

func fromModel(obj *model) *escrow.Record {
	record := &escrow.Record{
		Id: uint64(obj.Id.Int64),

		Address: obj.Address,
		Seller:  obj.Seller,
		Mint:    obj.Mint,
		Vault:   obj.Vault,

		VaultAuthorityBump: uint8(obj.VaultAuthorityBump),

		Price:   obj.Price,
		FeeRate: uint16(obj.FeeRate),

		State: escrow.State(obj.State),

		CreatedAt: obj.CreatedAt,
	}

	if obj.Buyer.Valid {
		record.Buyer = &obj.Buyer.String
	}

	if obj.ClosedAt.Valid {
		closedAt := obj.ClosedAt.Time
		record.ClosedAt = &closedAt
	}

	return record
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		buyerCondition := tableName + ".buyer IS NULL"
		if m.Buyer.Valid {
			buyerCondition = "(" + tableName + ".buyer IS NULL OR " + tableName + ".buyer = $8)"
		}

		// The trade terms never change after creation; only the lifecycle
		// fields advance, and a closed escrow never reopens or flips its
		// outcome.
		query := `INSERT INTO ` + tableName + `
		(address, seller, mint, vault, vault_authority_bump, price, fee_rate, buyer, state, created_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)

		ON CONFLICT (address)
		DO UPDATE
			SET buyer = COALESCE($8, ` + tableName + `.buyer), state = GREATEST($9, ` + tableName + `.state), closed_at = COALESCE($11, ` + tableName + `.closed_at)
			WHERE ` + tableName + `.address = $1 AND ` + tableName + `.state <= $9 AND ` + buyerCondition + `

		RETURNING ` + allColumns

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		if escrow.State(m.State).IsClosed() && !m.ClosedAt.Valid {
			m.ClosedAt.Valid = true
			m.ClosedAt.Time = time.Now()
		}

		err := tx.QueryRowxContext(
			ctx,
			query,
			m.Address,
			m.Seller,
			m.Mint,
			m.Vault,
			m.VaultAuthorityBump,
			m.Price,
			m.FeeRate,
			m.Buyer,
			m.State,
			m.CreatedAt.UTC(),
			m.ClosedAt,
		).StructScan(m)

		// A vault account backs at most one escrow, enforced by a unique
		// constraint on the vault column.
		err = pgutil.CheckUniqueViolation(err, escrow.ErrInvalidEscrow)
		return pgutil.CheckNoRows(err, escrow.ErrInvalidEscrow)
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, escrow.ErrEscrowNotFound)
	}
	return res, nil
}

func dbGetByVault(ctx context.Context, db *sqlx.DB, vault string) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE vault = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, vault)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, escrow.ErrEscrowNotFound)
	}
	return res, nil
}

func dbGetAllBySeller(ctx context.Context, db *sqlx.DB, seller string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE (seller = $1)
	`

	opts := []interface{}{seller}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, escrow.ErrEscrowNotFound)
	}

	if len(res) == 0 {
		return nil, escrow.ErrEscrowNotFound
	}
	return res, nil
}

func dbGetAllByState(ctx context.Context, db *sqlx.DB, state escrow.State, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE (state = $1)
	`

	opts := []interface{}{state}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, escrow.ErrEscrowNotFound)
	}

	if len(res) == 0 {
		return nil, escrow.ErrEscrowNotFound
	}
	return res, nil
}

func dbCountByState(ctx context.Context, db *sqlx.DB, state escrow.State) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName + ` WHERE state = $1`

	err := db.GetContext(ctx, &res, query, state)
	if err != nil {
		return 0, err
	}
	return res, nil
}
