package clierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCode(t *testing.T) {
	t.Parallel()

	err := New("something failed", errors.New("underlying"))
	assert.Equal(t, int(ExitError), err.Code)
	assert.Equal(t, 1, err.Code)
}

func TestNewTimeoutCode(t *testing.T) {
	t.Parallel()

	err := NewTimeout("cycle exceeded budget", errors.New("deadline exceeded"))
	assert.Equal(t, int(ExitTimeout), err.Code)
	assert.Equal(t, 2, err.Code)
}

func TestErrorWithUnderlying(t *testing.T) {
	t.Parallel()

	underlying := errors.New("disk full")
	err := New("write failed", underlying)
	assert.Equal(t, "write failed: disk full", err.Error())
}

func TestErrorWithoutUnderlying(t *testing.T) {
	t.Parallel()

	err := &Error{Code: int(ExitError), Message: "bad flags"}
	assert.Equal(t, "bad flags", err.Error())
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	underlying := errors.New("boom")
	err := New("wrapped", underlying)
	assert.ErrorIs(t, err, underlying)
}
