package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/registrar/internal/database"
	"github.com/edustack/registrar/internal/database/mysql"
	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/logger"
	"github.com/edustack/registrar/internal/session"
)

type stubManager struct {
	err error
}

func (s stubManager) Disconnect() error { return s.err }

func captureLogger() (*logger.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logger.New(&logger.Config{Level: "debug", Format: "json", Output: buf}), buf
}

func TestReleaseManagerLogsCleanRelease(t *testing.T) {
	log, buf := captureLogger()

	releaseManager(stubManager{}, log)

	assert.Contains(t, buf.String(), "database handle released")
}

func TestReleaseManagerQuietWhenNeverConnected(t *testing.T) {
	log, buf := captureLogger()

	releaseManager(stubManager{err: errs.New(errs.ErrKindNotConnected, "no active connection")}, log)

	assert.Empty(t, buf.String())
}

func TestReleaseManagerWarnsOnCloseFailure(t *testing.T) {
	log, buf := captureLogger()

	releaseManager(stubManager{err: errors.New("close failed")}, log)

	out := buf.String()
	assert.Contains(t, out, "database handle close failed")
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "close failed")
}

func TestReleaseManagerReleasesLiveSession(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	mock.ExpectClose()

	log, buf := captureLogger()
	m := session.NewManagerWithOpener(log, func(ctx context.Context, cfg *database.Config) (database.DB, error) {
		return mysql.NewFromDB(db), nil
	})

	cfg := database.DefaultConfig()
	cfg.Driver = database.DriverMySQL
	cfg.Port = 3306
	_, err = m.Connect(context.Background(), cfg)
	require.NoError(t, err)

	releaseManager(m, log)

	assert.Contains(t, buf.String(), "database handle released")
	assert.NoError(t, mock.ExpectationsWereMet())
}
