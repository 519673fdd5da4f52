package middleware

import (
	"net/http"
	"strings"

	"github.com/gatherly-app/gatherly-backend/api/responses"
	pkgauth "github.com/gatherly-app/gatherly-backend/pkg/auth"
	"github.com/gatherly-app/gatherly-backend/pkg/config"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
	"github.com/gatherly-app/gatherly-backend/pkg/types"
)

// Auth validates a bearer token and seeds the request context with the
// caller's scope.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			scope := types.Scope{
				OrganizationID: claims.OrganizationID,
				ApplicationID:  claims.ApplicationID,
			}
			if !scope.Valid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing organization claim"))
				return
			}

			ctx := WithScope(r.Context(), scope)
			if logg != nil {
				ctx = logg.WithOrganizationID(ctx, scope.OrganizationID.String())
				if scope.ApplicationID != nil {
					ctx = logg.WithApplicationID(ctx, scope.ApplicationID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
