package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/nft-trade/pkg/code/data/escrow"
	"github.com/code-payments/nft-trade/pkg/database/query"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres backed escrow.Store
func New(db *sql.DB) escrow.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Save implements escrow.Store.Save
func (s *store) Save(ctx context.Context, record *escrow.Record) error {
	model, err := toModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	res := fromModel(model)
	res.CopyTo(record)

	return nil
}

// GetByAddress implements escrow.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*escrow.Record, error) {
	model, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}

	return fromModel(model), nil
}

// GetByVault implements escrow.Store.GetByVault
func (s *store) GetByVault(ctx context.Context, vault string) (*escrow.Record, error) {
	model, err := dbGetByVault(ctx, s.db, vault)
	if err != nil {
		return nil, err
	}

	return fromModel(model), nil
}

// GetAllBySeller implements escrow.Store.GetAllBySeller
func (s *store) GetAllBySeller(ctx context.Context, seller string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*escrow.Record, error) {
	models, err := dbGetAllBySeller(ctx, s.db, seller, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*escrow.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// GetAllByState implements escrow.Store.GetAllByState
func (s *store) GetAllByState(ctx context.Context, state escrow.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*escrow.Record, error) {
	models, err := dbGetAllByState(ctx, s.db, state, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*escrow.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// CountByState implements escrow.Store.CountByState
func (s *store) CountByState(ctx context.Context, state escrow.State) (uint64, error) {
	return dbCountByState(ctx, s.db, state)
}
