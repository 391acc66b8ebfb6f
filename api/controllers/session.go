package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type tokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

type logoutResponse struct {
	Status string `json:"status"`
}

// AuthLogout blocks the presented access token for the rest of its lifetime.
func AuthLogout(revoker tokenRevoker, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if revoker == nil {
			responses.WriteError(ctx, logg, w, errors.New(errors.CodeInternal, "token revocation unavailable"))
			return
		}

		claims, err := middleware.Authenticate(cfg, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if claims.ExpiresAt == nil {
			responses.WriteError(ctx, logg, w, errors.New(errors.CodeUnauthorized, "token cannot be revoked"))
			return
		}
		if err := revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			responses.WriteError(ctx, logg, w, errors.Wrap(errors.CodeDependency, err, "revoke token"))
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "token_id", claims.ID), "access token revoked")
		}
		responses.WriteSuccess(w, logoutResponse{Status: "logged_out"})
	}
}
