package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint \"students_email_key\"")

	withCause := Wrap(ErrKindConstraintViolation, "insert rejected", cause)
	assert.Equal(t, `[constraint_violation] insert rejected: duplicate key value violates unique constraint "students_email_key"`, withCause.Error())

	plain := New(ErrKindNotConnected, "no active connection")
	assert.Equal(t, "[not_connected] no active connection", plain.Error())
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(ErrKindConnectionFailed, "connect failed", cause)

	require.ErrorIs(t, err, cause)
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"not found", New(ErrKindNotFound, "x"), IsNotFound, true},
		{"timeout", New(ErrKindTimeout, "x"), IsTimeout, true},
		{"connection failed", New(ErrKindConnectionFailed, "x"), IsConnectionFailed, true},
		{"query failed", New(ErrKindQueryFailed, "x"), IsQueryFailed, true},
		{"constraint violation", New(ErrKindConstraintViolation, "x"), IsConstraintViolation, true},
		{"not connected", New(ErrKindNotConnected, "x"), IsNotConnected, true},
		{"invalid input", New(ErrKindInvalidInput, "x"), IsInvalidInput, true},
		{"wrong kind", New(ErrKindNotFound, "x"), IsTimeout, false},
		{"plain error", errors.New("boom"), IsNotFound, false},
		{"nil error", nil, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(ErrKindConstraintViolation, "course is referenced by enrollments")
	outer := fmt.Errorf("delete course 3: %w", inner)

	assert.True(t, IsConstraintViolation(outer))
	assert.Equal(t, ErrKindConstraintViolation, KindOf(outer))
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "unknown", ErrKindUnknown.String())
	assert.Equal(t, "not_connected", ErrKindNotConnected.String())
	assert.Equal(t, "constraint_violation", ErrKindConstraintViolation.String())
	assert.Equal(t, "invalid_input", ErrKindInvalidInput.String())
}
