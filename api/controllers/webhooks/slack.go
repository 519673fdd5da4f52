package webhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gatherly-app/gatherly-backend/api/responses"
	"github.com/gatherly-app/gatherly-backend/internal/events/slack"
	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/enums"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

const (
	slackTimestampHeader = "X-Slack-Request-Timestamp"
	slackSignatureHeader = "X-Slack-Signature"
)

// SlackWebhook accepts Slack Events API callbacks. The url_verification
// handshake is answered synchronously; everything else supported is queued.
func SlackWebhook(cfg config.SlackConfig, queue inboundQueue, logg *logger.Logger) http.HandlerFunc {
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

		timestamp := r.Header.Get(slackTimestampHeader)
		signature := r.Header.Get(slackSignatureHeader)
		now := time.Now()

		err = slack.VerifySignature(cfg.SigningSecret, timestamp, signature, body, now, cfg.MaxTimestampAge)
		if err != nil && cfg.DevSigningSecret != "" {
			// A second app registration covers local development tunnels.
			err = slack.VerifySignature(cfg.DevSigningSecret, timestamp, signature, body, now, cfg.MaxTimestampAge)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		event, err := slack.Parse(body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		switch typed := event.(type) {
		case slack.URLVerification:
			// Slack expects the challenge at the top level of the response.
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"challenge": typed.Challenge})
			return
		case slack.Unsupported:
			logCtx := logg.WithField(ctx, "provider_event", typed.Type)
			logg.Info(logCtx, "unsupported slack event acked")
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		if err := queue.Enqueue(ctx, enums.ProviderSlack, event.EventType(), body, now.UTC()); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
