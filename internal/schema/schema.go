// Package schema declares the university relations and their integrity
// constraints, generates the matching DDL for both supported engines, and
// owns the drop-and-recreate reset operation.
//
// The descriptor is pure data: every rule it states (uniqueness, foreign-key
// propagation, check ranges) is enforced by the storage engine, not by Go
// code.
package schema

import (
	"github.com/edustack/registrar/internal/errs"
)

// RefAction is a foreign-key propagation policy.
type RefAction string

const (
	Cascade  RefAction = "CASCADE"
	Restrict RefAction = "RESTRICT"
)

// ColumnType is the portable column type set this schema needs.
type ColumnType int

const (
	// TypeSerial is an auto-generated integer surrogate key.
	TypeSerial ColumnType = iota
	TypeVarChar
	TypeInteger
	TypeDate
)

// Column describes a single column.
type Column struct {
	Name    string
	Type    ColumnType
	Length  int // VarChar only
	NotNull bool
	Unique  bool
}

// ForeignKey describes a reference to another table's column.
type ForeignKey struct {
	Name      string
	Column    string
	RefTable  string
	RefColumn string
	OnUpdate  RefAction
	OnDelete  RefAction
}

// Unique is a named multi-column uniqueness constraint.
type Unique struct {
	Name    string
	Columns []string
}

// Check is a named check constraint. The expression is written in the SQL
// subset both engines accept.
type Check struct {
	Name string
	Expr string
}

// Table describes one relation.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  string // name of the serial key column
	ForeignKeys []ForeignKey
	Uniques     []Unique
	Checks      []Check
}

// Column returns the named column, or nil when the table has no such column.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns all column names in declaration order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// InsertColumns returns the columns a caller supplies on insert: everything
// except the generated primary key, in declaration order.
func (t *Table) InsertColumns() []Column {
	cols := make([]Column, 0, len(t.Columns)-1)
	for _, c := range t.Columns {
		if c.Name == t.PrimaryKey {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// Descriptor is the full relational schema. Tables are listed in dependency
// order: a table appears after every table it references, so creating in
// list order and dropping in reverse order always satisfies foreign keys.
type Descriptor struct {
	Tables []Table
}

// Table returns the named relation.
func (d *Descriptor) Table(name string) (*Table, error) {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i], nil
		}
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "unknown relation %q", name)
}

// Relations returns the relation names in dependency order.
func (d *Descriptor) Relations() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}

// Terms are the admissible enrollment term values.
var Terms = []string{"autumn", "spring", "summer", "winter"}

// University returns the registry schema: students and courses are
// independent, enrollments references both. Student deletion cascades into
// enrollments; course deletion is blocked while enrollments reference it.
func University() *Descriptor {
	return &Descriptor{
		Tables: []Table{
			{
				Name:       "students",
				PrimaryKey: "student_id",
				Columns: []Column{
					{Name: "student_id", Type: TypeSerial},
					{Name: "full_name", Type: TypeVarChar, Length: 200, NotNull: true},
					{Name: "email", Type: TypeVarChar, Length: 200, NotNull: true, Unique: true},
					{Name: "birth_date", Type: TypeDate},
				},
				Checks: []Check{
					{Name: "chk_students_name", Expr: "char_length(full_name) >= 3"},
					{Name: "chk_students_email", Expr: "position('@' in email) > 1"},
					{Name: "chk_students_birth", Expr: "birth_date IS NULL OR birth_date >= '1900-01-01'"},
				},
			},
			{
				Name:       "courses",
				PrimaryKey: "course_id",
				Columns: []Column{
					{Name: "course_id", Type: TypeSerial},
					{Name: "title", Type: TypeVarChar, Length: 200, NotNull: true},
					{Name: "credits", Type: TypeInteger, NotNull: true},
					{Name: "code", Type: TypeVarChar, Length: 50, NotNull: true, Unique: true},
				},
				Checks: []Check{
					{Name: "chk_courses_credits", Expr: "credits BETWEEN 1 AND 10"},
					{Name: "chk_courses_code", Expr: "char_length(code) >= 3"},
				},
			},
			{
				Name:       "enrollments",
				PrimaryKey: "enrollment_id",
				Columns: []Column{
					{Name: "enrollment_id", Type: TypeSerial},
					{Name: "student_id", Type: TypeInteger, NotNull: true},
					{Name: "course_id", Type: TypeInteger, NotNull: true},
					{Name: "term", Type: TypeVarChar, Length: 10, NotNull: true},
					{Name: "grade", Type: TypeInteger},
				},
				ForeignKeys: []ForeignKey{
					{
						Name: "fk_enr_student", Column: "student_id",
						RefTable: "students", RefColumn: "student_id",
						OnUpdate: Cascade, OnDelete: Cascade,
					},
					{
						Name: "fk_enr_course", Column: "course_id",
						RefTable: "courses", RefColumn: "course_id",
						OnUpdate: Cascade, OnDelete: Restrict,
					},
				},
				Uniques: []Unique{
					{Name: "uq_enr_student_course_term", Columns: []string{"student_id", "course_id", "term"}},
				},
				Checks: []Check{
					{Name: "chk_enr_term", Expr: "term IN ('autumn','spring','summer','winter')"},
					{Name: "chk_enr_grade", Expr: "grade IS NULL OR (grade BETWEEN 0 AND 100)"},
				},
			},
		},
	}
}
