package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edustack/registrar/internal/errs"
)

// PostgreSQL SQLSTATE classes relevant to this layer.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	classConnection    = "08" // connection exceptions
	classIntegrity     = "23" // integrity constraint violations
	classAuth          = "28" // invalid authorization
	classSyntaxOrTable = "42" // syntax errors, undefined tables/columns
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQueryFailed
		switch sqlstateClass(pgErr.Code) {
		case classConnection, classAuth:
			kind = errs.ErrKindConnectionFailed
		case classIntegrity:
			kind = errs.ErrKindConstraintViolation
		case classSyntaxOrTable:
			kind = errs.ErrKindQueryFailed
		}

		detail := pgErr.Message
		if pgErr.ConstraintName != "" {
			detail = fmt.Sprintf("%s (constraint %s)", pgErr.Message, pgErr.ConstraintName)
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, detail), err)
	}

	// Transport-level failures (TLS, network, refused connections).
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func sqlstateClass(code string) string {
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}
