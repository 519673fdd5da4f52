// Package webhooks hosts the inbound provider endpoints. Each controller
// verifies authenticity, classifies the payload, and hands supported events
// to the ingest queue; processing happens in the background workers.
package webhooks

import (
	"context"
	"time"

	"github.com/gatherly-app/gatherly-backend/pkg/enums"
)

// maxBodyBytes caps inbound payload reads; providers send small JSON bodies.
const maxBodyBytes = 1 << 20

type inboundQueue interface {
	Enqueue(ctx context.Context, provider enums.Provider, eventType string, raw []byte, receivedAt time.Time) error
}
