package schema

import (
	"context"
	"fmt"

	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/logger"
)

// Manager owns the drop-and-recreate reset of the schema.
type Manager struct {
	log *logger.Logger
}

// NewManager returns a Manager. A nil log uses the default logger.
func NewManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.New(nil)
	}
	return &Manager{log: log}
}

// Reset drops every described relation (dependents first, IF EXISTS) and
// recreates all of them in dependency order. It is idempotent: calling it
// from a clean, dirty, or partially-built state converges on the same empty
// schema.
//
// On Postgres the whole sequence runs in one transaction, so a failing
// statement leaves the previous schema untouched. MySQL commits each DDL
// statement implicitly; there the first error stops the sequence and is
// reported, and a follow-up Reset restores consistency.
func (m *Manager) Reset(ctx context.Context, db database.DB, desc *Descriptor) error {
	dialect := db.Dialect()
	stmts := append(desc.DropStatements(dialect), desc.CreateStatements(dialect)...)

	var err error
	if dialect == database.DialectPostgres {
		err = m.runInTx(ctx, db, stmts)
	} else {
		err = m.runSequential(ctx, db, stmts)
	}
	if err != nil {
		m.log.ErrorErr("schema reset failed", err)
		return fmt.Errorf("schema reset: %w", err)
	}

	m.log.With().Int("relations", len(desc.Tables)).Logger().Info("schema reset complete")
	return nil
}

func (m *Manager) runInTx(ctx context.Context, db database.DB, stmts []string) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (m *Manager) runSequential(ctx context.Context, db database.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
