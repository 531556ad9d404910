package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NotFound("job not found")
		assert.Equal(t, "job not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := Wrap(cause, ErrCodeInternal, "load job")
		assert.Equal(t, "load job: boom", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestCodeHelpers(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("job %s not found", "x")))
	assert.True(t, IsValidation(Validation("bad input")))
	assert.True(t, IsConflict(Conflict("dup")))
	assert.True(t, IsUnavailable(Unavailable("directory down")))
	assert.True(t, IsInternal(Internal("oops")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
}

func TestCodeHelpersSeeThroughWrapping(t *testing.T) {
	inner := NotFound("gone")
	wrapped := fmt.Errorf("outer: %w", inner)
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, ErrCodeNotFound, GetCode(wrapped))
}

func TestWrapNilReturnsNil(t *testing.T) {
	require.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	require.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want ErrorCode
	}{
		{"no rows", pgx.ErrNoRows, ErrCodeNotFound},
		{"wrapped no rows", fmt.Errorf("get job: %w", pgx.ErrNoRows), ErrCodeNotFound},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, ErrCodeConflict},
		{"fk violation", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, ErrCodeValidation},
		{"not null", &pgconn.PgError{Code: pgerrcode.NotNullViolation}, ErrCodeValidation},
		{"connection failure", &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, ErrCodeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapDBError(tt.in)
			assert.Equal(t, tt.want, GetCode(mapped))
		})
	}

	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, MapDBError(nil))
	})

	t.Run("unrecognized error unchanged", func(t *testing.T) {
		plain := errors.New("something else")
		assert.Equal(t, plain, MapDBError(plain))
	})
}
