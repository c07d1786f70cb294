package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(Configuration, "bad config")
	require.True(t, Is(err, Configuration))
	require.False(t, Is(err, RuntimeInvariant))
}

func TestIsRejectsPlainErrors(t *testing.T) {
	require.False(t, Is(errors.New("plain"), Configuration))
}

func TestWrapUnwrapsToCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Resource, "failed reading table", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "disk full")
	require.Contains(t, err.Error(), "failed reading table")
}

func TestErrorKindString(t *testing.T) {
	require.Equal(t, "configuration", Configuration.String())
	require.Equal(t, "runtime-invariant", RuntimeInvariant.String())
}
