package webhooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderPostsSignedPayload(t *testing.T) {
	payload := []byte(`{"type":"post.created","data":{"title":"hi"}}`)
	secret := "sub-secret-0123456789"

	var gotBody []byte
	var gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("Gatherly-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(2 * time.Second)
	err := sender.Send(context.Background(), server.URL, secret, payload)
	require.NoError(t, err)

	assert.Equal(t, payload, gotBody)
	assert.Equal(t, Signature(secret, payload), gotSignature)
}

func TestSenderRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewSender(2 * time.Second)
	err := sender.Send(context.Background(), server.URL, "secret", []byte(`{}`))
	assert.Error(t, err)
}

func TestSenderTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSender(50 * time.Millisecond)
	err := sender.Send(context.Background(), server.URL, "secret", []byte(`{}`))
	assert.Error(t, err)
}
