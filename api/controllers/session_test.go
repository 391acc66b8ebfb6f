package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

var sessionJWT = config.JWTConfig{
	Secret:            "session-secret",
	Issuer:            "bazaar-test",
	ExpirationMinutes: 30,
}

type recordingRevoker struct {
	tokenID   string
	expiresAt time.Time
	err       error
}

func (r *recordingRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.tokenID = tokenID
	r.expiresAt = expiresAt
	return nil
}

func logoutRequest(t *testing.T, jti string) *http.Request {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(sessionJWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleCustomer,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthLogoutRevokesTokenUntilExpiry(t *testing.T) {
	revoker := &recordingRevoker{}
	resp := httptest.NewRecorder()
	AuthLogout(revoker, sessionJWT, testLogger())(resp, logoutRequest(t, "jti-logout"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if revoker.tokenID != "jti-logout" {
		t.Fatalf("expected jti-logout revoked got %q", revoker.tokenID)
	}
	remaining := time.Until(revoker.expiresAt)
	if remaining <= 25*time.Minute || remaining > 31*time.Minute {
		t.Fatalf("expected revocation to last until token expiry, got %s", remaining)
	}
}

func TestAuthLogoutMissingToken(t *testing.T) {
	revoker := &recordingRevoker{}
	resp := httptest.NewRecorder()
	AuthLogout(revoker, sessionJWT, testLogger())(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if revoker.tokenID != "" {
		t.Fatal("expected no revocation")
	}
}

func TestAuthLogoutRejectsForeignSignature(t *testing.T) {
	other := sessionJWT
	other.Secret = "someone-else"
	token, err := pkgAuth.MintAccessToken(other, time.Now(), pkgAuth.AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleCustomer})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	AuthLogout(&recordingRevoker{}, sessionJWT, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutStoreFailure(t *testing.T) {
	revoker := &recordingRevoker{err: errors.New("redis down")}
	resp := httptest.NewRecorder()
	AuthLogout(revoker, sessionJWT, testLogger())(resp, logoutRequest(t, "jti-down"))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if code := errorCode(t, resp); code != string(pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency code got %s", code)
	}
}
