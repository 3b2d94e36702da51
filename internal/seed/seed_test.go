package seed

import (
	"context"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	godrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/database/mysql"
	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/logger"
	"github.com/edustack/registrar/internal/schema"
)

const (
	insertStudent    = "INSERT INTO `students` (`full_name`, `email`, `birth_date`) VALUES (?, ?, ?)"
	insertCourse     = "INSERT INTO `courses` (`title`, `credits`, `code`) VALUES (?, ?, ?)"
	insertEnrollment = "INSERT INTO `enrollments` (`student_id`, `course_id`, `term`, `grade`) VALUES (?, ?, ?, ?)"
)

func newMockDB(t *testing.T) (database.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mysql.NewFromDB(db), mock
}

func quietLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
}

func TestRunInsertsAllRowsInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	desc := schema.University()

	mock.ExpectBegin()

	// Students and courses come back with engine-assigned ids that do not
	// start at 1; the enrollments must still reference them correctly.
	mock.ExpectExec(insertStudent).
		WithArgs("Ivan Petrov", "ivan.petrov@example.com", "2000-05-12").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec(insertStudent).
		WithArgs("Anna Smirnova", "anna.smirnova@example.com", "1999-10-01").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(insertStudent).
		WithArgs("Jeanne d'Arc", "jeanne@example.com", "1988-01-15").
		WillReturnResult(sqlmock.NewResult(43, 1))

	mock.ExpectExec(insertCourse).
		WithArgs("Databases", 5, "DB101").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(insertCourse).
		WithArgs("Algorithms", 6, "ALG201").
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectExec(insertCourse).
		WithArgs("Python for Data Analysis", 4, "PYDA301").
		WillReturnResult(sqlmock.NewResult(9, 1))

	mock.ExpectExec(insertEnrollment).
		WithArgs(int64(41), int64(7), "autumn", 90).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertEnrollment).
		WithArgs(int64(41), int64(8), "autumn", nil).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(insertEnrollment).
		WithArgs(int64(42), int64(7), "spring", 78).
		WillReturnResult(sqlmock.NewResult(3, 1))

	mock.ExpectCommit()

	l := NewLoader(quietLogger())
	require.NoError(t, l.Run(context.Background(), db, desc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRollsBackOnConstraintViolation(t *testing.T) {
	db, mock := newMockDB(t)
	desc := schema.University()

	mock.ExpectBegin()
	mock.ExpectExec(insertStudent).
		WithArgs("Ivan Petrov", "ivan.petrov@example.com", "2000-05-12").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insertStudent).
		WithArgs("Anna Smirnova", "anna.smirnova@example.com", "1999-10-01").
		WillReturnError(&godrv.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	l := NewLoader(quietLogger())
	err := l.Run(context.Background(), db, desc)

	require.Error(t, err)
	assert.True(t, errs.IsConstraintViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDemoDatasetShape(t *testing.T) {
	assert.Len(t, demoStudents, 3)
	assert.Len(t, demoCourses, 3)
	assert.Len(t, demoEnrollments, 3)

	for _, e := range demoEnrollments {
		assert.GreaterOrEqual(t, e.student, 0)
		assert.Less(t, e.student, len(demoStudents))
		assert.GreaterOrEqual(t, e.course, 0)
		assert.Less(t, e.course, len(demoCourses))
		assert.Contains(t, schema.Terms, e.term)
	}
}

// pgFacade reuses the database/sql-backed mock but reports the Postgres
// dialect, steering the loader onto the RETURNING path.
type pgFacade struct {
	database.DB
}

func (pgFacade) Dialect() database.Dialect { return database.DialectPostgres }

func TestRunReadsGeneratedIDsThroughReturning(t *testing.T) {
	inner, mock := newMockDB(t)
	db := pgFacade{inner}
	desc := schema.University()

	const (
		pgInsertStudent    = `INSERT INTO "students" ("full_name", "email", "birth_date") VALUES ($1, $2, $3) RETURNING "student_id"`
		pgInsertCourse     = `INSERT INTO "courses" ("title", "credits", "code") VALUES ($1, $2, $3) RETURNING "course_id"`
		pgInsertEnrollment = `INSERT INTO "enrollments" ("student_id", "course_id", "term", "grade") VALUES ($1, $2, $3, $4) RETURNING "enrollment_id"`
	)

	mock.ExpectBegin()

	// The engine hands ids back through RETURNING; again they do not start
	// at 1, proving the enrollments use the values actually read back.
	mock.ExpectQuery(pgInsertStudent).
		WithArgs("Ivan Petrov", "ivan.petrov@example.com", "2000-05-12").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow(int64(101)))
	mock.ExpectQuery(pgInsertStudent).
		WithArgs("Anna Smirnova", "anna.smirnova@example.com", "1999-10-01").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow(int64(102)))
	mock.ExpectQuery(pgInsertStudent).
		WithArgs("Jeanne d'Arc", "jeanne@example.com", "1988-01-15").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow(int64(103)))

	mock.ExpectQuery(pgInsertCourse).
		WithArgs("Databases", 5, "DB101").
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow(int64(31)))
	mock.ExpectQuery(pgInsertCourse).
		WithArgs("Algorithms", 6, "ALG201").
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow(int64(32)))
	mock.ExpectQuery(pgInsertCourse).
		WithArgs("Python for Data Analysis", 4, "PYDA301").
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow(int64(33)))

	mock.ExpectQuery(pgInsertEnrollment).
		WithArgs(int64(101), int64(31), "autumn", 90).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id"}).AddRow(int64(1)))
	mock.ExpectQuery(pgInsertEnrollment).
		WithArgs(int64(101), int64(32), "autumn", nil).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id"}).AddRow(int64(2)))
	mock.ExpectQuery(pgInsertEnrollment).
		WithArgs(int64(102), int64(31), "spring", 78).
		WillReturnRows(sqlmock.NewRows([]string{"enrollment_id"}).AddRow(int64(3)))

	mock.ExpectCommit()

	l := NewLoader(quietLogger())
	require.NoError(t, l.Run(context.Background(), db, desc))
	assert.NoError(t, mock.ExpectationsWereMet())
}
