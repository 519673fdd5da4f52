package webhooks

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

func linearSign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func linearIssueBody(timestamp time.Time) []byte {
	return []byte(fmt.Sprintf(`{
		"action": "create",
		"type": "Issue",
		"organizationId": "ws_1",
		"data": {"id": "iss_1", "identifier": "ENG-7", "title": "Fix it", "teamId": "team_1"},
		"webhookTimestamp": %d
	}`, timestamp.UnixMilli()))
}

func linearCfg() config.LinearConfig {
	return config.LinearConfig{WebhookSecret: "s3cret", MaxTimestampAge: time.Minute}
}

func TestLinearWebhookRejectsBadSignature(t *testing.T) {
	queue := &fakeQueue{}
	handler := LinearWebhook(linearCfg(), queue, testLogger())

	body := linearIssueBody(time.Now())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewBuffer(body))
	req.Header.Set("Linear-Signature", linearSign("wrong", body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if len(queue.events) != 0 {
		t.Fatal("nothing should be queued on a failed signature")
	}
}

func TestLinearWebhookRejectsStaleTimestamp(t *testing.T) {
	queue := &fakeQueue{}
	handler := LinearWebhook(linearCfg(), queue, testLogger())

	body := linearIssueBody(time.Now().Add(-5 * time.Minute))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewBuffer(body))
	req.Header.Set("Linear-Signature", linearSign("s3cret", body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestLinearWebhookQueuesIssueCreate(t *testing.T) {
	queue := &fakeQueue{}
	handler := LinearWebhook(linearCfg(), queue, testLogger())

	body := linearIssueBody(time.Now())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewBuffer(body))
	req.Header.Set("Linear-Signature", linearSign("s3cret", body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(queue.events) != 1 {
		t.Fatalf("expected 1 queued event got %d", len(queue.events))
	}
	if queue.events[0].provider != enums.ProviderLinear {
		t.Fatalf("unexpected provider %s", queue.events[0].provider)
	}
	if queue.events[0].eventType != "issue.upserted" {
		t.Fatalf("unexpected event type %s", queue.events[0].eventType)
	}
}

func TestLinearWebhookAcksUnsupportedWithoutQueueing(t *testing.T) {
	queue := &fakeQueue{}
	handler := LinearWebhook(linearCfg(), queue, testLogger())

	body := []byte(fmt.Sprintf(`{
		"action": "create",
		"type": "Project",
		"organizationId": "ws_1",
		"data": {"id": "prj_1"},
		"webhookTimestamp": %d
	}`, time.Now().UnixMilli()))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/linear", bytes.NewBuffer(body))
	req.Header.Set("Linear-Signature", linearSign("s3cret", body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(queue.events) != 0 {
		t.Fatal("unsupported events must not be queued")
	}
}
