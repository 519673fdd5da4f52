package webhooks

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

func slackSign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func slackRequest(secret string, body []byte) *http.Request {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/slack", bytes.NewBuffer(body))
	req.Header.Set("X-Slack-Request-Timestamp", timestamp)
	req.Header.Set("X-Slack-Signature", slackSign(secret, timestamp, body))
	return req
}

func slackCfg() config.SlackConfig {
	return config.SlackConfig{SigningSecret: "s3cret", MaxTimestampAge: 5 * time.Minute}
}

func TestSlackWebhookRejectsBadSignature(t *testing.T) {
	queue := &fakeQueue{}
	handler := SlackWebhook(slackCfg(), queue, testLogger())

	body := []byte(`{"type": "event_callback", "team_id": "T1", "event": {"type": "message"}}`)
	req := slackRequest("wrong-secret", body)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if len(queue.events) != 0 {
		t.Fatal("nothing should be queued on a failed signature")
	}
}

func TestSlackWebhookDevSecretFallback(t *testing.T) {
	cfg := slackCfg()
	cfg.DevSigningSecret = "dev-secret"
	queue := &fakeQueue{}
	handler := SlackWebhook(cfg, queue, testLogger())

	body := []byte(`{"type": "event_callback", "team_id": "T1", "event": {"type": "app_uninstalled"}}`)
	req := slackRequest("dev-secret", body)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(queue.events) != 1 {
		t.Fatalf("expected 1 queued event got %d", len(queue.events))
	}
}

func TestSlackWebhookEchoesChallenge(t *testing.T) {
	queue := &fakeQueue{}
	handler := SlackWebhook(slackCfg(), queue, testLogger())

	body := []byte(`{"type": "url_verification", "challenge": "abc123"}`)
	req := slackRequest("s3cret", body)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if payload["challenge"] != "abc123" {
		t.Fatalf("expected challenge echo got %q", payload["challenge"])
	}
	if len(queue.events) != 0 {
		t.Fatal("handshake must not be queued")
	}
}

func TestSlackWebhookQueuesMessage(t *testing.T) {
	queue := &fakeQueue{}
	handler := SlackWebhook(slackCfg(), queue, testLogger())

	body := []byte(`{
		"type": "event_callback",
		"team_id": "T1",
		"event": {"type": "message", "channel": "C1", "user": "U1", "text": "hi", "ts": "1.2"}
	}`)
	req := slackRequest("s3cret", body)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(queue.events) != 1 {
		t.Fatalf("expected 1 queued event got %d", len(queue.events))
	}
	if queue.events[0].provider != enums.ProviderSlack {
		t.Fatalf("unexpected provider %s", queue.events[0].provider)
	}
	if queue.events[0].eventType != "message" {
		t.Fatalf("unexpected event type %s", queue.events[0].eventType)
	}
}

func TestSlackWebhookAcksBotEchoWithoutQueueing(t *testing.T) {
	queue := &fakeQueue{}
	handler := SlackWebhook(slackCfg(), queue, testLogger())

	body := []byte(`{
		"type": "event_callback",
		"team_id": "T1",
		"event": {"type": "message", "subtype": "bot_message", "channel": "C1"}
	}`)
	req := slackRequest("s3cret", body)
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(queue.events) != 0 {
		t.Fatal("bot echoes must not be queued")
	}
}
