// Package database defines the contracts every storage driver must satisfy
// plus the dialect-aware statement builders shared by both drivers.
//
// Layers above this package talk only to these interfaces; they never
// import the postgres or mysql packages directly.
package database

import "context"

// Executor is the statement surface shared by a connection handle and an
// open transaction.
type Executor interface {
	// Query executes a SQL statement that returns multiple rows.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes a SQL statement that returns at most one row.
	// Errors are deferred until Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Exec executes a statement that returns no rows (DDL, INSERT, DELETE).
	Exec(ctx context.Context, sql string, args ...any) (Result, error)
}

// DB is the central contract for a live database handle.
type DB interface {
	Executor

	// Ping verifies the database is reachable with a trivial round trip.
	Ping(ctx context.Context) error

	// Begin opens a transaction. The caller must Commit or Rollback.
	Begin(ctx context.Context) (Tx, error)

	// Dialect reports which placeholder / quoting style this handle speaks.
	Dialect() Dialect

	// Close releases all resources held by the connection pool.
	// The handle must not be used afterwards.
	Close()
}

// Tx is an open database transaction.
type Tx interface {
	Executor

	Commit() error
	Rollback() error
}

// Rows is an abstraction over a multi-row result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() ([]string, error)

	// Close releases resources held by the result set.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

// Result reports the outcome of an Exec.
type Result interface {
	// RowsAffected returns the number of rows changed by the statement.
	RowsAffected() (int64, error)

	// LastInsertId returns the key generated for an inserted row.
	// The postgres driver does not support it; use an INSERT built with
	// Returning and read the id through QueryRow instead.
	LastInsertId() (int64, error)
}

// InsertAndReturnID runs a built INSERT and returns the generated key,
// bridging the two engines' id-reporting styles: Postgres reports through a
// RETURNING clause (the builder appends it), MySQL through LastInsertId.
func InsertAndReturnID(ctx context.Context, ex Executor, d Dialect, sql string, args []any) (int64, error) {
	if d == DialectPostgres {
		var id int64
		if err := ex.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := ex.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
