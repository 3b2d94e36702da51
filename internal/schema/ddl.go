package schema

import (
	"fmt"
	"strings"

	"github.com/edustack/registrar/internal/database"
)

// CreateSQL renders the CREATE TABLE statement for t in the given dialect.
func (t *Table) CreateSQL(d database.Dialect) string {
	var defs []string

	for _, c := range t.Columns {
		defs = append(defs, columnDDL(c, c.Name == t.PrimaryKey, d))
	}

	for _, u := range t.Uniques {
		quoted := make([]string, len(u.Columns))
		for i, c := range u.Columns {
			quoted[i] = database.QuoteIdent(c, d)
		}
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", u.Name, strings.Join(quoted, ", ")))
	}

	for _, fk := range t.ForeignKeys {
		defs = append(defs, fmt.Sprintf(
			"CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON UPDATE %s ON DELETE %s",
			fk.Name,
			database.QuoteIdent(fk.Column, d),
			database.QuoteIdent(fk.RefTable, d),
			database.QuoteIdent(fk.RefColumn, d),
			fk.OnUpdate, fk.OnDelete,
		))
	}

	for _, ch := range t.Checks {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", ch.Name, ch.Expr))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)",
		database.QuoteIdent(t.Name, d),
		strings.Join(defs, ",\n    "))
}

// DropSQL renders the DROP TABLE statement for t. IF EXISTS makes it safe
// from both a clean and a dirty state.
func (t *Table) DropSQL(d database.Dialect) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", database.QuoteIdent(t.Name, d))
}

// CreateStatements returns one CREATE TABLE per relation in dependency
// order, so foreign keys never reference a missing table.
func (s *Descriptor) CreateStatements(d database.Dialect) []string {
	stmts := make([]string, len(s.Tables))
	for i := range s.Tables {
		stmts[i] = s.Tables[i].CreateSQL(d)
	}
	return stmts
}

// DropStatements returns one DROP TABLE per relation in reverse dependency
// order: dependents fall before the tables they reference.
func (s *Descriptor) DropStatements(d database.Dialect) []string {
	stmts := make([]string, len(s.Tables))
	for i := range s.Tables {
		stmts[len(s.Tables)-1-i] = s.Tables[i].DropSQL(d)
	}
	return stmts
}

// columnDDL renders one column definition.
func columnDDL(c Column, isPK bool, d database.Dialect) string {
	var sb strings.Builder
	sb.WriteString(database.QuoteIdent(c.Name, d))
	sb.WriteByte(' ')

	switch c.Type {
	case TypeSerial:
		if d == database.DialectMySQL {
			sb.WriteString("INT AUTO_INCREMENT")
		} else {
			sb.WriteString("SERIAL")
		}
	case TypeVarChar:
		fmt.Fprintf(&sb, "VARCHAR(%d)", c.Length)
	case TypeInteger:
		sb.WriteString("INT")
	case TypeDate:
		sb.WriteString("DATE")
	}

	if isPK {
		sb.WriteString(" PRIMARY KEY")
	}
	if c.NotNull && !isPK {
		sb.WriteString(" NOT NULL")
	}
	if c.Unique {
		sb.WriteString(" UNIQUE")
	}
	return sb.String()
}
