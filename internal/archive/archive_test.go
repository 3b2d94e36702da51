package archive

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/registrar/internal/errs"
	"github.com/edustack/registrar/internal/logger"
	"github.com/edustack/registrar/internal/schema"
	"github.com/edustack/registrar/internal/store"
)

type fakeStore struct {
	buckets []string
	objects map[string]string
	putErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]string)}
}

func (f *fakeStore) EnsureBucket(ctx context.Context, bucket string) error {
	f.buckets = append(f.buckets, bucket)
	return nil
}

func (f *fakeStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errs.Newf(errs.ErrKindInvalidInput, "size mismatch: declared %d, read %d", size, len(data))
	}
	f.objects[bucket+"/"+key] = string(data)
	return nil
}

type fakeSource struct {
	desc *schema.Descriptor
	rows map[string][]store.Row
	err  error
}

func (f *fakeSource) Descriptor() *schema.Descriptor {
	return f.desc
}

func (f *fakeSource) LoadRelation(ctx context.Context, relation string) ([]store.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[relation], nil
}

func quietLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
}

func testSnapshotter(s Store) *Snapshotter {
	snap := NewSnapshotter(s, "snapshots", quietLogger())
	snap.now = func() time.Time {
		return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	}
	return snap
}

func TestSnapshotWritesOneObjectPerRelation(t *testing.T) {
	fs := newFakeStore()
	src := &fakeSource{
		desc: schema.University(),
		rows: map[string][]store.Row{
			"students": {
				{"student_id": int64(1), "full_name": "Ivan Petrov", "email": "ivan.petrov@example.com", "birth_date": "2000-05-12"},
				{"student_id": int64(2), "full_name": "Anna Smirnova", "email": "anna.smirnova@example.com", "birth_date": nil},
			},
			"courses":     {},
			"enrollments": {},
		},
	}

	prefix, err := testSnapshotter(fs).Snapshot(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "20240315-103000", prefix)

	assert.Equal(t, []string{"snapshots"}, fs.buckets)
	require.Len(t, fs.objects, 3)

	students := fs.objects["snapshots/20240315-103000/students.csv"]
	assert.Equal(t,
		"student_id,full_name,email,birth_date\n"+
			"1,Ivan Petrov,ivan.petrov@example.com,2000-05-12\n"+
			"2,Anna Smirnova,anna.smirnova@example.com,\n",
		students)

	// An empty relation still produces an object with just the header.
	assert.Equal(t, "course_id,title,credits,code\n",
		fs.objects["snapshots/20240315-103000/courses.csv"])
}

func TestSnapshotPropagatesLoadError(t *testing.T) {
	fs := newFakeStore()
	src := &fakeSource{
		desc: schema.University(),
		err:  errs.New(errs.ErrKindNotConnected, "no active connection"),
	}

	_, err := testSnapshotter(fs).Snapshot(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errs.IsNotConnected(err))
	assert.Empty(t, fs.objects)
}

func TestSnapshotPropagatesUploadError(t *testing.T) {
	fs := newFakeStore()
	fs.putErr = errs.New(errs.ErrKindConnectionFailed, "connection refused")
	src := &fakeSource{
		desc: schema.University(),
		rows: map[string][]store.Row{},
	}

	_, err := testSnapshotter(fs).Snapshot(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		ok   bool
	}{
		{"complete", &Config{Endpoint: "localhost:9000", Bucket: "snapshots"}, true},
		{"missing endpoint", &Config{Bucket: "snapshots"}, false},
		{"missing bucket", &Config{Endpoint: "localhost:9000"}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errs.IsInvalidInput(err))
			}
		})
	}
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "hello", formatCell("hello"))
	assert.Equal(t, "42", formatCell(int64(42)))
	assert.Equal(t, "2001-02-03", formatCell(time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)))
}
