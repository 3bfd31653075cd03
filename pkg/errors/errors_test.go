package errors_test

import (
	"errors"
	"testing"

	dderrors "github.com/icloud-dedupe/icloud-dedupe/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndError(t *testing.T) {
	err := dderrors.New(dderrors.ErrVanished, "file is gone")
	assert.Equal(t, "[VANISHED] file is gone", err.Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := dderrors.Wrap(cause, dderrors.ErrIO, "write failed")
	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "disk full")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, dderrors.Wrap(nil, dderrors.ErrIO, "noop"))
}

func TestIsCode(t *testing.T) {
	err := dderrors.Newf(dderrors.ErrContentChanged, "digest mismatch for %s", "/tmp/a")
	assert.True(t, dderrors.IsCode(err, dderrors.ErrContentChanged))
	assert.False(t, dderrors.IsCode(err, dderrors.ErrVanished))
	assert.Equal(t, dderrors.ErrContentChanged, dderrors.GetCode(err))
}

func TestGetCodeOnPlainError(t *testing.T) {
	assert.Equal(t, dderrors.ErrUnknown, dderrors.GetCode(errors.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := dderrors.New(dderrors.ErrIO, "boom").WithDetail("path", "/tmp/x")
	assert.Equal(t, "/tmp/x", err.Details["path"])
}

func TestIsMatchesSameCodeOnly(t *testing.T) {
	a := dderrors.New(dderrors.ErrIO, "a")
	b := dderrors.New(dderrors.ErrIO, "b")
	c := dderrors.New(dderrors.ErrPermission, "c")
	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}
