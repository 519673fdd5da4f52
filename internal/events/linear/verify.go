package linear

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

// VerifySignature checks the Linear-Signature header: hex HMAC-SHA256 of the
// raw request body.
func VerifySignature(secret, signatureHeader string, body []byte) error {
	if secret == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured")
	}
	if signatureHeader == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "missing signature header")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "signature mismatch")
	}
	return nil
}

// VerifyTimestamp rejects payloads whose embedded webhookTimestamp is outside
// the allowed window around now.
func VerifyTimestamp(raw []byte, now time.Time, maxAge time.Duration) error {
	sent, err := Timestamp(raw)
	if err != nil {
		return err
	}
	age := now.Sub(sent)
	if age < 0 {
		age = -age
	}
	if age > maxAge {
		return pkgerrors.New(pkgerrors.CodeForbidden, "webhook timestamp outside allowed window")
	}
	return nil
}
