package webhooks

import (
	"io"
	"net/http"
	"time"

	"github.com/gatherly-app/gatherly-backend/api/responses"
	"github.com/gatherly-app/gatherly-backend/internal/events/hms"
	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

// HMSWebhook accepts call infrastructure events authenticated by a shared
// passcode header.
func HMSWebhook(cfg config.HMSConfig, queue inboundQueue, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if queue == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest queue unavailable"))
			return
		}

		if err := hms.VerifyPasscode(cfg.Passcode, r.Header.Get("X-Passcode")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := hms.Parse(body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if unsupported, ok := event.(hms.Unsupported); ok {
			logCtx := logg.WithField(ctx, "provider_event", unsupported.Type)
			logg.Info(logCtx, "unsupported hms event acked")
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		if err := queue.Enqueue(ctx, enums.ProviderHMS, event.EventType(), body, time.Now().UTC()); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
