// Package dbx holds the small database/sql abstractions shared by the slot
// backends: a handle interface satisfied by *sql.DB and *sql.Tx, and a
// helper for compare-and-set statements that return the new row version.
package dbx

import (
	"context"
	"database/sql"
	"errors"
)

// DBTX is the subset of database/sql the slot backends use.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ScanVersion reads the single "RETURNING version" column of a conditional
// write. ok is false when the condition did not hold and no row was written.
//
//	v, ok, err := dbx.ScanVersion(db.QueryRowContext(ctx, `UPDATE ... RETURNING version`, ...))
func ScanVersion(row *sql.Row) (version int64, ok bool, err error) {
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return version, true, nil
}
