package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

const signatureVersion = "v0"

// VerifySignature checks the request signature scheme Slack documents:
// HMAC-SHA256 over "v0:<timestamp>:<body>". The timestamp must be within
// maxAge of now so a captured request cannot be replayed later.
func VerifySignature(secret, timestampHeader, signatureHeader string, body []byte, now time.Time, maxAge time.Duration) error {
	if secret == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "signing secret not configured")
	}
	if timestampHeader == "" || signatureHeader == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "missing signature headers")
	}

	unix, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid request timestamp")
	}
	sent := time.Unix(unix, 0)
	age := now.Sub(sent)
	if age < 0 {
		age = -age
	}
	if age > maxAge {
		return pkgerrors.New(pkgerrors.CodeForbidden, "request timestamp outside allowed window")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signatureVersion + ":" + timestampHeader + ":"))
	mac.Write(body)
	expected := signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "signature mismatch")
	}
	return nil
}
