package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tillworks/tillworks-backend/api/responses"
	pkgAuth "github.com/tillworks/tillworks-backend/pkg/auth"
	"github.com/tillworks/tillworks-backend/pkg/config"
	pkgerrors "github.com/tillworks/tillworks-backend/pkg/errors"
	"github.com/tillworks/tillworks-backend/pkg/logger"
)

// Auth validates the bearer token minted by the identity service and seeds
// the request context with the operator and location claims.
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

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.OperatorID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing operator claim"))
				return
			}
			if claims.LocationID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing location claim"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxOperatorID, claims.OperatorID.String())
			ctx = context.WithValue(ctx, ctxLocationID, claims.LocationID.String())

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"operator_id": claims.OperatorID.String(),
					"location_id": claims.LocationID.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
