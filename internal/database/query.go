package database

import (
	"fmt"
	"strings"

	"github.com/edustack/registrar/internal/errs"
)

// Dialect controls which SQL placeholder and identifier-quoting style the
// statement builders emit.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders and "double-quoted" idents.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders and `backtick-quoted` idents.
	DialectMySQL
)

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected to prevent SQL injection
// through the operator position (which cannot be parameterized).
var validOps = map[string]bool{
	"=":    true,
	"!=":   true,
	"<>":   true,
	"<":    true,
	">":    true,
	"<=":   true,
	">=":   true,
	"LIKE": true,
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	op     string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string, always passed as args.
//
// Usage (Postgres):
//
//	sql, args, err := Select("students", DialectPostgres).
//	    Columns("student_id", "full_name").
//	    Where("student_id", "=", 7).
//	    OrderBy("student_id", Asc).
//	    Build()
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   *int
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. op must be one of the allowed comparison
// operators. Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error if any WHERE operator is not in the allowlist.
func (b *SelectBuilder) Build() (string, []any, error) {
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = QuoteIdent(c, b.dialect)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(QuoteIdent(b.table, b.dialect))

	var args []any
	argIdx := 1

	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			op := strings.ToUpper(w.op)
			if !validOps[op] {
				return "", nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported WHERE operator: %q", w.op)
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", QuoteIdent(w.column, b.dialect), op, placeholder(b.dialect, argIdx)))
			args = append(args, w.value)
			argIdx++
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", QuoteIdent(o.column, b.dialect), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if b.limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %s", placeholder(b.dialect, argIdx)))
		args = append(args, *b.limit)
	}

	return sb.String(), args, nil
}

// InsertBuilder constructs a parameterized single-row INSERT.
//
// On the Postgres dialect, Returning(pk) appends a RETURNING clause so the
// generated key can be read with QueryRow; the MySQL dialect ignores it
// (callers use Result.LastInsertId). See InsertAndReturnID.
type InsertBuilder struct {
	table     string
	dialect   Dialect
	columns   []string
	values    []any
	returning string
}

// Insert starts a new InsertBuilder for the given table and dialect.
func Insert(table string, d Dialect) *InsertBuilder {
	return &InsertBuilder{table: table, dialect: d}
}

// Set appends one column/value pair. Call order defines column order.
func (b *InsertBuilder) Set(column string, value any) *InsertBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// Returning requests the generated value of column back from the engine.
func (b *InsertBuilder) Returning(column string) *InsertBuilder {
	b.returning = column
	return b
}

// Build produces the final SQL string and argument slice.
func (b *InsertBuilder) Build() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "insert requires at least one column")
	}

	quoted := make([]string, len(b.columns))
	marks := make([]string, len(b.columns))
	for i, c := range b.columns {
		quoted[i] = QuoteIdent(c, b.dialect)
		marks[i] = placeholder(b.dialect, i+1)
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(QuoteIdent(b.table, b.dialect))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(marks, ", "))
	sb.WriteString(")")

	if b.returning != "" && b.dialect == DialectPostgres {
		sb.WriteString(" RETURNING ")
		sb.WriteString(QuoteIdent(b.returning, b.dialect))
	}

	return sb.String(), b.values, nil
}

// DeleteBuilder constructs a parameterized DELETE.
type DeleteBuilder struct {
	table   string
	dialect Dialect
	where   []whereClause
}

// Delete starts a new DeleteBuilder for the given table and dialect.
func Delete(table string, d Dialect) *DeleteBuilder {
	return &DeleteBuilder{table: table, dialect: d}
}

// Where adds a WHERE condition, combined with AND across calls.
func (b *DeleteBuilder) Where(column, op string, value any) *DeleteBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// Build produces the final SQL string and argument slice.
// An unconditional DELETE is rejected.
func (b *DeleteBuilder) Build() (string, []any, error) {
	if len(b.where) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "delete requires a WHERE clause")
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(QuoteIdent(b.table, b.dialect))

	var args []any
	parts := make([]string, 0, len(b.where))
	for i, w := range b.where {
		op := strings.ToUpper(w.op)
		if !validOps[op] {
			return "", nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported WHERE operator: %q", w.op)
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", QuoteIdent(w.column, b.dialect), op, placeholder(b.dialect, i+1)))
		args = append(args, w.value)
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(parts, " AND "))

	return sb.String(), args, nil
}

// placeholder returns the correct parameter placeholder for the dialect.
// Postgres: $1, $2, …   MySQL: ? (index is ignored)
func placeholder(d Dialect, idx int) string {
	if d == DialectMySQL {
		return "?"
	}
	return fmt.Sprintf("$%d", idx)
}

// QuoteIdent wraps a SQL identifier in the dialect's quoting style, safely
// handling reserved words and mixed-case names.
func QuoteIdent(name string, d Dialect) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
