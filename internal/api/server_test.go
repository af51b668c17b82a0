// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bizaek/internal/api"
	"github.com/taibuivan/bizaek/internal/platform/apperr"
	"github.com/taibuivan/bizaek/internal/platform/config"
	"github.com/taibuivan/bizaek/internal/platform/dberr"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/users/account"
	"github.com/taibuivan/bizaek/internal/users/auth"
	"github.com/taibuivan/bizaek/pkg/uuid"
)

var (
	adminID  = uuid.New()
	memberID = uuid.New()
)

// directory serves two fixed accounts and rejects every write.
type directory struct{}

func (directory) FindByID(_ context.Context, id string) (*auth.User, error) {
	switch id {
	case adminID:
		return &auth.User{ID: adminID, Email: "root@x.com", Role: sec.RoleAdmin, Status: auth.StatusActive}, nil
	case memberID:
		return &auth.User{ID: memberID, Email: "a@x.com", Role: sec.RoleMember, Status: auth.StatusActive}, nil
	}
	return nil, dberr.ErrNotFound
}

func (directory) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, dberr.ErrNotFound
}

func (directory) FindByExternalID(context.Context, auth.Provider, string) (*auth.User, error) {
	return nil, dberr.ErrNotFound
}

func (directory) Create(context.Context, *auth.User) error { return errors.New("read only") }

func (directory) UpdatePassword(context.Context, string, string) error {
	return errors.New("read only")
}

func (directory) LinkExternalID(context.Context, string, auth.Provider, string) error {
	return errors.New("read only")
}

func (directory) UpdateStatus(_ context.Context, id string, _ auth.Status) error {
	if id != adminID && id != memberID {
		return dberr.ErrNotFound
	}
	return nil
}

// headerAuthenticator maps "Bearer <user id>" straight to an identity.
type headerAuthenticator struct{}

func (headerAuthenticator) Authenticate(ctx context.Context, header string) (*sec.Identity, error) {
	user, err := directory{}.FindByID(ctx, strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil, apperr.Unauthorized("Invalid token")
	}
	identity := user.Identity()
	return &identity, nil
}

func newTestServer(t *testing.T, readiness func(context.Context) error) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Environment:   "development",
		ServerPort:    "0",
		GuestUsername: "guest",
		GuestPassword: "let-me-in",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := directory{}
	service := auth.NewService(users, nil, nil, nil, auth.Settings{}, nil)
	options := auth.HandlerOptions{OAuthSuccessURL: "http://app.test/ok", OAuthFailureURL: "http://app.test/fail"}

	liveness, ready := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: readiness,
		CheckCache:    func(context.Context) error { return nil },
	}, log)

	server := api.NewServer(t.Context(), cfg, log, headerAuthenticator{}, api.Handlers{
		Liveness:  liveness,
		Readiness: ready,
		Auth:      auth.NewHandler(auth.NewDirectRegistrar(service, sec.RoleMember), service, auth.NewBridge(users, nil), auth.Providers{}, nil, options),
		AdminAuth: auth.NewAdminHandler(auth.NewDirectRegistrar(service, sec.RoleAdmin), service, options),
		Account:   account.NewHandler(account.NewService(users)),
	})
	return server.Handler()
}

func send(handler http.Handler, request *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	var body map[string]any
	_ = json.Unmarshal(recorder.Body.Bytes(), &body)
	return recorder, body
}

func TestServer_Routes(t *testing.T) {
	handler := newTestServer(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		bearer     string
		basic      bool
		wantStatus int
		wantCode   string
	}{
		{name: "liveness", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "me without token", method: http.MethodGet, path: "/api/v1/me", wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "me with unknown token", method: http.MethodGet, path: "/api/v1/me", bearer: "garbage", wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "me as member", method: http.MethodGet, path: "/api/v1/me", bearer: memberID, wantStatus: http.StatusOK},
		{name: "status change as member", method: http.MethodPut, path: "/api/v1/admin/users/" + memberID + "/status", body: `{"status":"BLOCKED"}`, bearer: memberID, wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
		{name: "status change as admin", method: http.MethodPut, path: "/api/v1/admin/users/" + memberID + "/status", body: `{"status":"BLOCKED"}`, bearer: adminID, wantStatus: http.StatusOK},
		{name: "admin login without guest credentials", method: http.MethodPost, path: "/api/v1/admin/auth/login", body: `{}`, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "admin login behind guest gate", method: http.MethodPost, path: "/api/v1/admin/auth/login", body: `{}`, basic: true, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "public login", method: http.MethodPost, path: "/api/v1/auth/login", body: `{"email":"nobody@x.com","password":"whatever-1"}`, wantStatus: http.StatusBadRequest, wantCode: "UNKNOWN_IDENTITY"},
		{name: "unknown provider", method: http.MethodGet, path: "/api/v1/auth/oauth/myspace", wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.bearer != "" {
				request.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			if tt.basic {
				request.SetBasicAuth("guest", "let-me-in")
			}

			recorder, body := send(handler, request)
			assert.Equal(t, tt.wantStatus, recorder.Code, recorder.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
			}
			assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
		})
	}
}

func TestServer_GuestChallenge(t *testing.T) {
	handler := newTestServer(t, nil)

	request := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/register", strings.NewReader(`{}`))
	request.SetBasicAuth("guest", "wrong")

	recorder, _ := send(handler, request)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Header().Get("WWW-Authenticate"), "Basic realm=")
}

func TestReadiness(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		handler := newTestServer(t, func(context.Context) error { return nil })

		recorder, body := send(handler, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "ready", body["data"].(map[string]any)["status"])
	})

	t.Run("degraded", func(t *testing.T) {
		handler := newTestServer(t, func(context.Context) error { return errors.New("connection refused") })

		recorder, body := send(handler, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, recorder.Code)

		data := body["data"].(map[string]any)
		assert.Equal(t, "degraded", data["status"])

		checks := data["checks"].([]any)
		require.Len(t, checks, 2)
		assert.Equal(t, false, checks[0].(map[string]any)["ok"])
		assert.Equal(t, "connection refused", checks[0].(map[string]any)["error"])
	})
}
