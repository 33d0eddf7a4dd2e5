package pg

import (
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
)

// CheckNoRows maps sql.ErrNoRows to outErr, passing through anything else.
func CheckNoRows(inErr, outErr error) error {
	if inErr == sql.ErrNoRows {
		return outErr
	}
	return inErr
}

// CheckUniqueViolation maps a Postgres unique constraint violation to outErr,
// passing through anything else.
func CheckUniqueViolation(inErr, outErr error) error {
	var pgErr *pgconn.PgError
	if errors.As(inErr, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return outErr
	}
	return inErr
}
