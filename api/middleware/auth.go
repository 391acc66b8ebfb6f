package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	pkgAuth "github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/auth/session"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// Authenticate verifies the request's bearer token. Failures come back as
// UNAUTHORIZED errors ready for responses.WriteError.
func Authenticate(cfg config.JWTConfig, r *http.Request) (*pkgAuth.AccessTokenClaims, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		header = strings.TrimSpace(header[len(bearerPrefix):])
	}
	if header == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, header)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	case claims.ID == "":
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token id")
	}
	return claims, nil
}

// Auth admits requests carrying a valid, unrevoked access token and seeds the
// request context and log fields with its claims.
func Auth(cfg config.JWTConfig, revocations session.RevocationChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := Authenticate(cfg, r)
			if err == nil {
				err = checkRevoked(r.Context(), revocations, claims.ID)
			}
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims, logg)))
		})
	}
}

func checkRevoked(ctx context.Context, revocations session.RevocationChecker, tokenID string) error {
	if revocations == nil {
		return nil
	}
	revoked, err := revocations.IsRevoked(ctx, tokenID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check token revocation")
	}
	if revoked {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "token revoked")
	}
	return nil
}

func withClaims(ctx context.Context, claims *pkgAuth.AccessTokenClaims, logg *logger.Logger) context.Context {
	userID, role := claims.UserID.String(), string(claims.Role)
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxRole, role)
	ctx = context.WithValue(ctx, ctxTokenID, claims.ID)
	if logg != nil {
		ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), role)
	}
	if claims.SupplierID == nil {
		return ctx
	}
	supplierID := claims.SupplierID.String()
	ctx = context.WithValue(ctx, ctxSupplierID, supplierID)
	if logg != nil {
		ctx = logg.WithSupplierID(ctx, supplierID)
	}
	return ctx
}
