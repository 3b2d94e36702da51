package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/database/mysql"
	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/schema"
)

func newMockDB(t *testing.T) (database.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mysql.NewFromDB(db), mock
}

func studentsTable(t *testing.T) *schema.Table {
	t.Helper()
	tbl, err := schema.University().Table("students")
	require.NoError(t, err)
	return tbl
}

func TestLoadOrdersByPrimaryKey(t *testing.T) {
	db, mock := newMockDB(t)
	s := New(studentsTable(t), database.DialectMySQL)

	mock.ExpectQuery("SELECT * FROM `students` ORDER BY `student_id` ASC").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "full_name", "email", "birth_date"}).
			AddRow(int64(1), "Ivan Petrov", "ivan.petrov@example.com", "2000-05-12").
			AddRow(int64(2), "Anna Smirnova", "anna.smirnova@example.com", nil))

	rows, err := s.Load(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Ivan Petrov", rows[0]["full_name"])

	// NULL birth date stays nil, not "".
	assert.Nil(t, rows[1]["birth_date"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrimaryKeyAt(t *testing.T) {
	db, mock := newMockDB(t)
	s := New(studentsTable(t), database.DialectMySQL)

	mock.ExpectQuery("SELECT * FROM `students` ORDER BY `student_id` ASC").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "full_name", "email", "birth_date"}).
			AddRow(int64(11), "Ivan Petrov", "ivan.petrov@example.com", nil).
			AddRow(int64(12), "Anna Smirnova", "anna.smirnova@example.com", nil))

	_, err := s.Load(context.Background(), db)
	require.NoError(t, err)

	id, err := s.PrimaryKeyAt(1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = s.PrimaryKeyAt(2)
	assert.True(t, errs.IsNotFound(err))

	_, err = s.PrimaryKeyAt(-1)
	assert.True(t, errs.IsNotFound(err))
}

func TestLoadReplacesSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	s := New(studentsTable(t), database.DialectMySQL)

	query := "SELECT * FROM `students` ORDER BY `student_id` ASC"
	mock.ExpectQuery(query).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "full_name", "email", "birth_date"}).
			AddRow(int64(1), "Ivan Petrov", "ivan.petrov@example.com", nil))
	mock.ExpectQuery(query).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "full_name", "email", "birth_date"}))

	_, err := s.Load(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	// Every Load re-reads; after the table empties the snapshot follows.
	_, err = s.Load(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	_, err = s.PrimaryKeyAt(0)
	assert.True(t, errs.IsNotFound(err))
}

func TestDiscardDropsSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	s := New(studentsTable(t), database.DialectMySQL)

	mock.ExpectQuery("SELECT * FROM `students` ORDER BY `student_id` ASC").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "full_name", "email", "birth_date"}).
			AddRow(int64(1), "Ivan Petrov", "ivan.petrov@example.com", nil))

	_, err := s.Load(context.Background(), db)
	require.NoError(t, err)

	s.Discard()
	assert.Equal(t, 0, s.Len())
	_, err = s.PrimaryKeyAt(0)
	assert.True(t, errs.IsNotFound(err))
}

func TestLabelPairs(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("SELECT `student_id`, `full_name` FROM `students` ORDER BY `full_name` ASC").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "full_name"}).
			AddRow(int64(2), "Anna Smirnova").
			AddRow(int64(1), "Ivan Petrov"))

	pairs, err := LabelPairs(context.Background(), db, database.DialectMySQL, studentsTable(t), "full_name")
	require.NoError(t, err)

	assert.Equal(t, []Pair{
		{ID: 2, Label: "Anna Smirnova"},
		{ID: 1, Label: "Ivan Petrov"},
	}, pairs)
}

func TestLabelPairsRejectsUnknownColumn(t *testing.T) {
	db, _ := newMockDB(t)

	_, err := LabelPairs(context.Background(), db, database.DialectMySQL, studentsTable(t), "nickname")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestConcurrentLoadAndLookup(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	s := New(studentsTable(t), database.DialectMySQL)

	const workers = 4
	for i := 0; i < workers; i++ {
		mock.ExpectQuery("SELECT * FROM `students` ORDER BY `student_id` ASC").
			WillReturnRows(sqlmock.NewRows([]string{"student_id", "full_name", "email", "birth_date"}).
				AddRow(int64(1), "Ivan Petrov", "ivan.petrov@example.com", nil))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			rows, err := s.Load(context.Background(), db)
			if err == nil && len(rows) != 1 {
				err = fmt.Errorf("unexpected row count %d", len(rows))
			}
			errCh <- err
		}()
		go func() {
			defer wg.Done()
			// Racing a lookup against a reload must never fault; out of
			// range before the first load completes is a valid answer.
			if _, err := s.PrimaryKeyAt(0); err != nil && !errs.IsNotFound(err) {
				errCh <- err
				return
			}
			errCh <- nil
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
}
