// Package session owns the connection lifecycle: one live database handle
// per process, the schema descriptor bound to it, and the operations the
// UI layer calls against that pair.
//
// A Session is an explicit value passed to every operation; there is no
// ambient "current connection". It is created by Manager.Connect and dies
// on Manager.Disconnect; using it afterwards fails with a not-connected
// error instead of reaching through a closed handle.
package session

import (
	"context"
	"sync"

	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/logger"
	"github.com/edustack/registrar/internal/schema"
	"github.com/edustack/registrar/internal/seed"
	"github.com/edustack/registrar/internal/store"
)

// Session ties a live, health-checked database handle to the schema
// descriptor for the duration of one connect/disconnect cycle.
// It is safe for concurrent use by multiple goroutines.
type Session struct {
	db     database.DB
	desc   *schema.Descriptor
	log    *logger.Logger
	schema *schema.Manager
	seeder *seed.Loader

	mu     sync.Mutex // guards stores and closed
	stores map[string]*store.RecordStore
	closed bool
}

func newSession(db database.DB, desc *schema.Descriptor, log *logger.Logger) *Session {
	return &Session{
		db:     db,
		desc:   desc,
		log:    log,
		schema: schema.NewManager(log),
		seeder: seed.NewLoader(log),
		stores: make(map[string]*store.RecordStore),
	}
}

// guard rejects any use of a session whose handle has been released.
func (s *Session) guard() error {
	if s == nil {
		return errs.New(errs.ErrKindNotConnected, "no active connection")
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errs.New(errs.ErrKindNotConnected, "no active connection")
	}
	return nil
}

// close releases the handle. Record stores are discarded first so no
// projection outlives the connection. Only the Manager calls this.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, rs := range s.stores {
		rs.Discard()
	}
	s.mu.Unlock()
	s.db.Close()
}

// Descriptor returns the schema descriptor bound to this session.
func (s *Session) Descriptor() *schema.Descriptor {
	return s.desc
}

// Dialect reports the SQL dialect of the underlying handle.
func (s *Session) Dialect() database.Dialect {
	return s.db.Dialect()
}

// Store returns the session's record store for the named relation,
// creating it on first use.
func (s *Session) Store(relation string) (*store.RecordStore, error) {
	if s == nil {
		return nil, errs.New(errs.ErrKindNotConnected, "no active connection")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errs.New(errs.ErrKindNotConnected, "no active connection")
	}
	if rs, ok := s.stores[relation]; ok {
		return rs, nil
	}
	table, err := s.desc.Table(relation)
	if err != nil {
		return nil, err
	}
	rs := store.New(table, s.db.Dialect())
	s.stores[relation] = rs
	return rs, nil
}

// ResetSchema drops and recreates all relations. Idempotent.
func (s *Session) ResetSchema(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.schema.Reset(ctx, s.db, s.desc)
}

// SeedDemoData inserts the fixed demo dataset in one transaction.
// Meant to run immediately after ResetSchema.
func (s *Session) SeedDemoData(ctx context.Context) error {
	if err := s.guard(); err != nil {
		return err
	}
	return s.seeder.Run(ctx, s.db, s.desc)
}

// LoadRelation re-reads the named relation ordered by primary key.
func (s *Session) LoadRelation(ctx context.Context, relation string) ([]store.Row, error) {
	rs, err := s.Store(relation)
	if err != nil {
		return nil, err
	}
	return rs.Load(ctx, s.db)
}

// LabelPairs returns the (id, label) projection of a relation ordered by
// label, for reference pickers.
func (s *Session) LabelPairs(ctx context.Context, relation, labelColumn string) ([]store.Pair, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	table, err := s.desc.Table(relation)
	if err != nil {
		return nil, err
	}
	return store.LabelPairs(ctx, s.db, s.db.Dialect(), table, labelColumn)
}

// InsertRow validates values against the relation's descriptor, inserts one
// row, and returns the engine-generated primary key. Required fields are
// checked before any round trip; everything else (uniqueness, checks,
// references) is the engine's verdict, surfaced as a constraint violation.
func (s *Session) InsertRow(ctx context.Context, relation string, values map[string]any) (int64, error) {
	if err := s.guard(); err != nil {
		return 0, err
	}
	table, err := s.desc.Table(relation)
	if err != nil {
		return 0, err
	}
	if err := validateValues(table, values); err != nil {
		return 0, err
	}

	b := database.Insert(table.Name, s.db.Dialect())
	for _, col := range table.InsertColumns() {
		v, ok := values[col.Name]
		if !ok {
			continue
		}
		b.Set(col.Name, v)
	}
	sql, args, err := b.Returning(table.PrimaryKey).Build()
	if err != nil {
		return 0, err
	}

	id, err := database.InsertAndReturnID(ctx, s.db, s.db.Dialect(), sql, args)
	if err != nil {
		return 0, err
	}

	s.log.With().Str("relation", relation).Int("id", int(id)).Logger().Debug("row inserted")
	return id, nil
}

// DeleteRow deletes the row with the given primary key. Deleting a student
// cascades into its enrollments; deleting a course that enrollments still
// reference is refused by the engine and surfaces as a constraint
// violation.
func (s *Session) DeleteRow(ctx context.Context, relation string, id int64) error {
	if err := s.guard(); err != nil {
		return err
	}
	table, err := s.desc.Table(relation)
	if err != nil {
		return err
	}

	sql, args, err := database.Delete(table.Name, s.db.Dialect()).
		Where(table.PrimaryKey, "=", id).
		Build()
	if err != nil {
		return err
	}

	res, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.Newf(errs.ErrKindNotFound, "%s row %d not found", relation, id)
	}

	s.log.With().Str("relation", relation).Int("id", int(id)).Logger().Debug("row deleted")
	return nil
}

// validateValues enforces the minimal pre-submission checks: only known
// columns, and every required column present with a non-empty value.
func validateValues(table *schema.Table, values map[string]any) error {
	for name := range values {
		if name == table.PrimaryKey {
			return errs.Newf(errs.ErrKindInvalidInput, "column %q is generated and cannot be set", name)
		}
		if table.Column(name) == nil {
			return errs.Newf(errs.ErrKindInvalidInput, "relation %q has no column %q", table.Name, name)
		}
	}
	for _, col := range table.InsertColumns() {
		if !col.NotNull {
			continue
		}
		v, ok := values[col.Name]
		if !ok || v == nil {
			return errs.Newf(errs.ErrKindInvalidInput, "%s is required", col.Name)
		}
		if str, isStr := v.(string); isStr && str == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "%s must not be empty", col.Name)
		}
	}
	return nil
}
