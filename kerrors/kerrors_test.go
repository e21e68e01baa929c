package kerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doquedb-go/hashkernel/kerrors"
)

func TestKindOf(t *testing.T) {
	err := kerrors.New(kerrors.OutOfRange, "hashtable", errors.New("advance past end"))
	require.Equal(t, kerrors.OutOfRange, kerrors.KindOf(err))
	require.True(t, kerrors.Is(err, kerrors.OutOfRange))
	require.False(t, kerrors.Is(err, kerrors.BadArgument))
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, kerrors.Kind(0), kerrors.KindOf(errors.New("plain")))
}

func TestWithState(t *testing.T) {
	err := kerrors.New(kerrors.MemoryExhausted, "memhandle", errors.New("ceiling exceeded")).WithState("HY001")
	require.Contains(t, err.Error(), "HY001")
	require.Contains(t, err.Error(), "MemoryExhausted")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := kerrors.New(kerrors.BadArgument, "hashtable", cause)
	require.ErrorIs(t, err, cause)
}
