package webhooks

import (
	"io"
	"net/http"
	"time"

	"github.com/gatherly-app/gatherly-backend/api/responses"
	"github.com/gatherly-app/gatherly-backend/internal/events/linear"
	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

const linearSignatureHeader = "Linear-Signature"

// LinearWebhook accepts Linear webhook deliveries. The signature covers the
// raw body; the replay window comes from the payload's own timestamp.
func LinearWebhook(cfg config.LinearConfig, queue inboundQueue, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if queue == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest queue unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := linear.VerifySignature(cfg.WebhookSecret, r.Header.Get(linearSignatureHeader), body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		now := time.Now()
		if err := linear.VerifyTimestamp(body, now, cfg.MaxTimestampAge); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		event, err := linear.Parse(body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if unsupported, ok := event.(linear.Unsupported); ok {
			logCtx := logg.WithField(ctx, "provider_event", unsupported.Type)
			logg.Info(logCtx, "unsupported linear event acked")
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		if err := queue.Enqueue(ctx, enums.ProviderLinear, event.EventType(), body, now.UTC()); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
