package hms

import (
	"crypto/subtle"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

// VerifyPasscode checks the shared passcode header in constant time.
func VerifyPasscode(expected, got string) error {
	if expected == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "passcode not configured")
	}
	if got == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "missing passcode")
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
		return pkgerrors.New(pkgerrors.CodeForbidden, "invalid passcode")
	}
	return nil
}
