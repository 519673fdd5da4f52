package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gatherly-app/gatherly-backend/api/middleware"
	"github.com/gatherly-app/gatherly-backend/api/responses"
	"github.com/gatherly-app/gatherly-backend/api/validators"
	"github.com/gatherly-app/gatherly-backend/internal/posts"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

// CreatePost creates a post in a channel and fans the event out to
// subscribed applications.
func CreatePost(svc *posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "posts service unavailable"))
			return
		}

		scope := middleware.ScopeFromContext(ctx)
		if !scope.Valid() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing"))
			return
		}

		var input posts.CreatePostInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		post, err := svc.Create(ctx, scope, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, post)
	}
}

// ListPosts returns a channel's posts newest first, paginated by cursor.
func ListPosts(svc *posts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "posts service unavailable"))
			return
		}

		scope := middleware.ScopeFromContext(ctx)
		if !scope.Valid() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing"))
			return
		}

		channelRaw := strings.TrimSpace(r.URL.Query().Get("channel_id"))
		if channelRaw == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "channel_id is required"))
			return
		}
		channelID, err := uuid.Parse(channelRaw)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel_id"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.List(ctx, scope, channelID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WritePage(w, page)
	}
}
