package hms

import (
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

func TestVerifyPasscode(t *testing.T) {
	require.NoError(t, VerifyPasscode("hunter2", "hunter2"))

	err := VerifyPasscode("hunter2", "wrong")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	err = VerifyPasscode("hunter2", "")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	err = VerifyPasscode("", "hunter2")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())
}
