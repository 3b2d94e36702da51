// Package store provides read projections over single relations: the
// row-index/column-name addressable structures a table view displays.
package store

import (
	"context"
	"sync"

	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/schema"
)

// Row is one relation row keyed by column name. SQL NULL is a nil value,
// distinct from an empty string.
type Row map[string]any

// RecordStore loads all rows of one relation ordered by primary key and
// answers positional lookups against the last loaded snapshot.
// It is safe for concurrent use by multiple goroutines.
//
// It holds no cache in any other sense: every Load re-reads from the
// handle, and callers must Load again after any write that might have
// changed the result set.
type RecordStore struct {
	table   *schema.Table
	dialect database.Dialect

	mu   sync.Mutex
	rows []Row
}

// New returns a RecordStore over the given relation.
func New(table *schema.Table, d database.Dialect) *RecordStore {
	return &RecordStore{table: table, dialect: d}
}

// Relation returns the relation name this store projects.
func (s *RecordStore) Relation() string {
	return s.table.Name
}

// Columns returns the relation's column names in declaration order.
func (s *RecordStore) Columns() []string {
	return s.table.ColumnNames()
}

// Load re-reads the full relation ordered by primary key ascending and
// returns the fresh snapshot. The snapshot is also retained for
// PrimaryKeyAt until the next Load or Discard.
func (s *RecordStore) Load(ctx context.Context, ex database.Executor) ([]Row, error) {
	sql, args, err := database.Select(s.table.Name, s.dialect).
		OrderBy(s.table.PrimaryKey, database.Asc).
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := ex.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	maps, err := database.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	snapshot := make([]Row, len(maps))
	for i, m := range maps {
		snapshot[i] = Row(m)
	}

	s.mu.Lock()
	s.rows = snapshot
	s.mu.Unlock()
	return snapshot, nil
}

// Len returns the number of rows in the last loaded snapshot.
func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// PrimaryKeyAt returns the primary-key value of the row at the given
// position in the last loaded snapshot.
func (s *RecordStore) PrimaryKeyAt(i int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.rows) {
		return 0, errs.Newf(errs.ErrKindNotFound, "row index %d out of range (have %d rows)", i, len(s.rows))
	}
	return toInt64(s.rows[i][s.table.PrimaryKey])
}

// Discard drops the held snapshot. Called when the session closes so no
// stale projection survives a disconnect.
func (s *RecordStore) Discard() {
	s.mu.Lock()
	s.rows = nil
	s.mu.Unlock()
}

// toInt64 widens the integer types the two drivers hand back for key
// columns.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	}
	return 0, errs.Newf(errs.ErrKindQueryFailed, "primary key has unexpected type %T", v)
}

// Pair is an (id, label) projection entry for reference pickers.
type Pair struct {
	ID    int64
	Label string
}

// LabelPairs reads an ordered (id, label) projection of a relation, sorted
// by label ascending. It backs the student and course pickers in the UI
// layer.
func LabelPairs(ctx context.Context, ex database.Executor, d database.Dialect, table *schema.Table, labelColumn string) ([]Pair, error) {
	if table.Column(labelColumn) == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "relation %q has no column %q", table.Name, labelColumn)
	}

	sql, args, err := database.Select(table.Name, d).
		Columns(table.PrimaryKey, labelColumn).
		OrderBy(labelColumn, database.Asc).
		Build()
	if err != nil {
		return nil, err
	}

	rows, err := ex.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	maps, err := database.ScanRows(rows)
	if err != nil {
		return nil, err
	}

	pairs := make([]Pair, 0, len(maps))
	for _, m := range maps {
		id, err := toInt64(m[table.PrimaryKey])
		if err != nil {
			return nil, err
		}
		label, _ := m[labelColumn].(string)
		pairs = append(pairs, Pair{ID: id, Label: label})
	}
	return pairs, nil
}
