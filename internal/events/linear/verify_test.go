package linear

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAccepts(t *testing.T) {
	body := []byte(`{"type":"Issue"}`)
	require.NoError(t, VerifySignature("s3cret", sign("s3cret", body), body))
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"type":"Issue"}`)
	err := VerifySignature("s3cret", sign("other", body), body)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestVerifySignatureRejectsMissingHeader(t *testing.T) {
	err := VerifySignature("s3cret", "", []byte(`{}`))
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestVerifyTimestampWindow(t *testing.T) {
	now := time.Unix(1_756_000_000, 0)
	fresh := []byte(fmt.Sprintf(`{"webhookTimestamp": %d}`, now.UnixMilli()))
	require.NoError(t, VerifyTimestamp(fresh, now, time.Minute))

	stale := []byte(fmt.Sprintf(`{"webhookTimestamp": %d}`, now.Add(-2*time.Minute).UnixMilli()))
	err := VerifyTimestamp(stale, now, time.Minute)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestVerifyTimestampMissing(t *testing.T) {
	err := VerifyTimestamp([]byte(`{}`), time.Now(), time.Minute)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
