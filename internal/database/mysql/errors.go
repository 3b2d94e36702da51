package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	godrv "github.com/go-sql-driver/mysql"

	"github.com/edustack/registrar/internal/errs"
)

// MySQL server error numbers relevant to this layer.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errBadNull         = 1048 // column cannot be null
	errAccessDenied    = 1045 // bad credentials
	errUnknownDB       = 1049 // unknown database
	errNoSuchTable     = 1146 // table doesn't exist
	errNoReferenced    = 1216 // cannot add child row (pre-5.x code)
	errRowIsReferenced = 1217 // cannot delete parent row (pre-5.x code)
	errDupEntry        = 1062 // duplicate entry for unique key
	errRowIsRefd2      = 1451 // cannot delete or update a parent row (FK)
	errNoReferencedRow = 1452 // cannot add or update a child row (FK)
	errCheckViolated   = 3819 // check constraint violated
	errCheckNotFound   = 4025 // check constraint failed (MariaDB)
)

// mapError translates go-sql-driver/mysql native errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	if errors.Is(err, godrv.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	var myErr *godrv.MySQLError
	if errors.As(err, &myErr) {
		kind := errs.ErrKindQueryFailed
		switch myErr.Number {
		case errDupEntry, errNoReferenced, errRowIsReferenced, errRowIsRefd2,
			errNoReferencedRow, errCheckViolated, errCheckNotFound, errBadNull:
			kind = errs.ErrKindConstraintViolation
		case errAccessDenied, errUnknownDB:
			kind = errs.ErrKindConnectionFailed
		case errNoSuchTable:
			kind = errs.ErrKindQueryFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, myErr.Message), err)
	}

	// Transport-level failures (dial errors, dropped sockets).
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
