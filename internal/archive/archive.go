// Package archive exports relation snapshots as CSV objects to an object
// store, one object per relation under a shared timestamped prefix.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/logger"
	"github.com/edustack/registrar/internal/schema"
	"github.com/edustack/registrar/internal/store"
)

// Config holds the settings for the object storage backend.
type Config struct {
	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Bucket receives the snapshot objects. Created if missing.
	Bucket string
}

// Validate checks that the config is complete enough to connect.
func (c *Config) Validate() error {
	if c == nil {
		return errs.New(errs.ErrKindInvalidInput, "archive config is nil")
	}
	if c.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "archive endpoint is required")
	}
	if c.Bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "archive bucket is required")
	}
	return nil
}

// Store is the minimal object-storage surface a snapshot needs.
type Store interface {
	// EnsureBucket creates the bucket if it does not already exist.
	EnsureBucket(ctx context.Context, bucket string) error

	// Put uploads one object.
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
}

// Source is what a snapshot reads from. *session.Session satisfies it.
type Source interface {
	Descriptor() *schema.Descriptor
	LoadRelation(ctx context.Context, relation string) ([]store.Row, error)
}

// Snapshotter writes every relation of a Source as a CSV object.
type Snapshotter struct {
	store  Store
	bucket string
	log    *logger.Logger

	// now is replaced in tests for a stable prefix.
	now func() time.Time
}

// NewSnapshotter returns a Snapshotter targeting the given bucket.
// A nil log uses the default logger.
func NewSnapshotter(s Store, bucket string, log *logger.Logger) *Snapshotter {
	if log == nil {
		log = logger.New(nil)
	}
	return &Snapshotter{store: s, bucket: bucket, log: log, now: time.Now}
}

// Snapshot exports all relations of src under a timestamped prefix and
// returns that prefix. Column order in each CSV follows the relation's
// declaration order, with a header row first. SQL NULL becomes an empty
// cell.
func (s *Snapshotter) Snapshot(ctx context.Context, src Source) (string, error) {
	if err := s.store.EnsureBucket(ctx, s.bucket); err != nil {
		return "", err
	}

	prefix := s.now().UTC().Format("20060102-150405")

	desc := src.Descriptor()
	for _, name := range desc.Relations() {
		table, err := desc.Table(name)
		if err != nil {
			return "", err
		}
		rows, err := src.LoadRelation(ctx, name)
		if err != nil {
			return "", err
		}

		data, err := encodeCSV(table, rows)
		if err != nil {
			return "", err
		}

		key := fmt.Sprintf("%s/%s.csv", prefix, name)
		if err := s.store.Put(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), "text/csv"); err != nil {
			s.log.ErrorErr("snapshot upload failed", err)
			return "", err
		}

		s.log.With().
			Str("key", key).
			Int("rows", len(rows)).
			Logger().Debug("relation archived")
	}

	s.log.With().Str("bucket", s.bucket).Str("prefix", prefix).Logger().Info("snapshot written")
	return prefix, nil
}

// encodeCSV renders rows as CSV with a header of the relation's columns.
func encodeCSV(table *schema.Table, rows []store.Row) ([]byte, error) {
	cols := table.ColumnNames()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(cols); err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "csv encode failed", err)
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			record[i] = formatCell(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, errs.Wrap(errs.ErrKindUnknown, "csv encode failed", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errs.Wrap(errs.ErrKindUnknown, "csv encode failed", err)
	}
	return buf.Bytes(), nil
}

// formatCell renders one value for CSV. NULL is an empty cell.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02")
	default:
		return fmt.Sprint(x)
	}
}
