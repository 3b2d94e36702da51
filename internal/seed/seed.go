// Package seed inserts the fixed demonstration dataset used for manual
// testing and demos: three students, three courses, three enrollments.
package seed

import (
	"context"
	"fmt"

	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/logger"
	"github.com/edustack/registrar/internal/schema"
)

type demoStudent struct {
	fullName  string
	email     string
	birthDate string
}

type demoCourse struct {
	title   string
	credits int
	code    string
}

// demoEnrollment references students and courses by their position in the
// seed lists, never by assumed id values.
type demoEnrollment struct {
	student int
	course  int
	term    string
	grade   any // nil means no grade yet
}

var (
	demoStudents = []demoStudent{
		{"Ivan Petrov", "ivan.petrov@example.com", "2000-05-12"},
		{"Anna Smirnova", "anna.smirnova@example.com", "1999-10-01"},
		{"Jeanne d'Arc", "jeanne@example.com", "1988-01-15"},
	}

	demoCourses = []demoCourse{
		{"Databases", 5, "DB101"},
		{"Algorithms", 6, "ALG201"},
		{"Python for Data Analysis", 4, "PYDA301"},
	}

	demoEnrollments = []demoEnrollment{
		{student: 0, course: 0, term: "autumn", grade: 90},
		{student: 0, course: 1, term: "autumn", grade: nil},
		{student: 1, course: 0, term: "spring", grade: 78},
	}
)

// Loader inserts the demo dataset. Designed to run immediately after a
// schema reset; any constraint violation aborts the whole load.
type Loader struct {
	log *logger.Logger
}

// NewLoader returns a Loader. A nil log uses the default logger.
func NewLoader(log *logger.Logger) *Loader {
	if log == nil {
		log = logger.New(nil)
	}
	return &Loader{log: log}
}

// Run inserts all demo rows inside a single transaction: every row becomes
// visible together, or none do. Generated student and course ids are read
// back from the engine and fed into the enrollment rows, so the load works
// no matter where the identity sequences currently stand.
func (l *Loader) Run(ctx context.Context, db database.DB, desc *schema.Descriptor) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := l.load(ctx, tx, db.Dialect(), desc); err != nil {
		l.log.ErrorErr("seed demo data failed", err)
		return fmt.Errorf("seed demo data: %w", err)
	}

	if err := tx.Commit(); err != nil {
		l.log.ErrorErr("seed demo data failed", err)
		return fmt.Errorf("seed demo data: %w", err)
	}

	l.log.Info("demo data inserted")
	return nil
}

func (l *Loader) load(ctx context.Context, tx database.Tx, d database.Dialect, desc *schema.Descriptor) error {
	students, err := desc.Table("students")
	if err != nil {
		return err
	}
	courses, err := desc.Table("courses")
	if err != nil {
		return err
	}
	enrollments, err := desc.Table("enrollments")
	if err != nil {
		return err
	}

	studentIDs := make([]int64, len(demoStudents))
	for i, s := range demoStudents {
		sql, args, err := database.Insert(students.Name, d).
			Set("full_name", s.fullName).
			Set("email", s.email).
			Set("birth_date", s.birthDate).
			Returning(students.PrimaryKey).
			Build()
		if err != nil {
			return err
		}
		if studentIDs[i], err = database.InsertAndReturnID(ctx, tx, d, sql, args); err != nil {
			return err
		}
	}

	courseIDs := make([]int64, len(demoCourses))
	for i, c := range demoCourses {
		sql, args, err := database.Insert(courses.Name, d).
			Set("title", c.title).
			Set("credits", c.credits).
			Set("code", c.code).
			Returning(courses.PrimaryKey).
			Build()
		if err != nil {
			return err
		}
		if courseIDs[i], err = database.InsertAndReturnID(ctx, tx, d, sql, args); err != nil {
			return err
		}
	}

	for _, e := range demoEnrollments {
		sql, args, err := database.Insert(enrollments.Name, d).
			Set("student_id", studentIDs[e.student]).
			Set("course_id", courseIDs[e.course]).
			Set("term", e.term).
			Set("grade", e.grade).
			Returning(enrollments.PrimaryKey).
			Build()
		if err != nil {
			return err
		}
		if _, err = database.InsertAndReturnID(ctx, tx, d, sql, args); err != nil {
			return err
		}
	}

	return nil
}
