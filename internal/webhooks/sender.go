package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
)

const signatureHeader = "Gatherly-Signature"

// Sender posts frozen payloads to subscriber endpoints. The body is signed
// with the subscription secret so receivers can verify origin the same way we
// verify inbound providers.
type Sender struct {
	client  *http.Client
	timeout time.Duration
}

func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sender{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Send delivers the stored payload. A non-2xx response or transport error is
// returned for the caller to count as a failed attempt.
func (s *Sender) Send(ctx context.Context, url, secret string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build delivery request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signatureHeader, Signature(secret, payload))

	resp, err := s.client.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deliver webhook")
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("subscriber returned %d", resp.StatusCode))
	}
	return nil
}

// Signature computes the hex HMAC-SHA256 of the payload.
func Signature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
