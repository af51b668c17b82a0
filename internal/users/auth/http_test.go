// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/users/auth"
)

const (
	successURL = "https://app.bizaek.test/welcome"
	failureURL = "https://app.bizaek.test/login?error=oauth"
)

type httpFixture struct {
	*harness
	router   chi.Router
	provider *fakeProvider
}

func newHTTPFixture(t *testing.T, production bool) *httpFixture {
	t.Helper()

	h := newHarness(t)
	provider := newFakeProvider(t)
	options := auth.HandlerOptions{
		Production:      production,
		CookieDomain:    ".bizaek.test",
		OAuthSuccessURL: successURL,
		OAuthFailureURL: failureURL,
	}

	handler := auth.NewHandler(
		auth.NewOTPRegistrar(h.service),
		h.service,
		h.bridge,
		auth.Providers{auth.ProviderGoogle: provider.client(auth.ProviderGoogle)},
		h.states,
		options,
	)
	admin := auth.NewAdminHandler(auth.NewDirectRegistrar(h.service, sec.RoleAdmin), h.service, options)

	router := chi.NewRouter()
	router.Mount("/api/v1/auth", handler.Routes())
	router.Mount("/api/v1/admin/auth", admin.Routes())

	return &httpFixture{harness: h, router: router, provider: provider}
}

func (f *httpFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func tokenCookie(recorder *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == "token" {
			return cookie
		}
	}
	return nil
}

func TestHTTP_OTPRegistrationFlow(t *testing.T) {
	f := newHTTPFixture(t, true)

	// 1. Stage
	recorder := f.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"a@x.com","name":"A","password":"correct-horse-1"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeBody(t, recorder)
	assert.EqualValues(t, 200, body["status"])
	assert.Equal(t, auth.MsgOTPSent, body["message"])
	assert.Nil(t, tokenCookie(recorder))

	// 2. Verify
	code := f.mail.lastCode(t, "a@x.com")
	recorder = f.do(t, http.MethodPost, "/api/v1/auth/register/verify", `{"email":"a@x.com","code":"`+code+`"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)
	body = decodeBody(t, recorder)
	assert.EqualValues(t, 201, body["status"])
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, user, "PasswordHash")
	assert.NotContains(t, recorder.Body.String(), "$2a$")

	cookie := tokenCookie(recorder)
	require.NotNil(t, cookie)
	assert.Equal(t, body["token"], cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "bizaek.test", cookie.Domain)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)

	// 3. Replay
	recorder = f.do(t, http.MethodPost, "/api/v1/auth/register/verify", `{"email":"a@x.com","code":"`+code+`"}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "INVALID_OR_EXPIRED_OTP", decodeBody(t, recorder)["code"])

	// 4. Duplicate
	recorder = f.do(t, http.MethodPost, "/api/v1/auth/register", `{"email":"a@x.com","name":"A"}`)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	body = decodeBody(t, recorder)
	assert.EqualValues(t, 403, body["status"])
	assert.Equal(t, "DUPLICATE_IDENTITY", body["code"])
}

func TestHTTP_Login(t *testing.T) {
	f := newHTTPFixture(t, false)
	f.users.seed(t, "a@x.com", testPassword, sec.RoleMember, auth.StatusActive)
	f.users.seed(t, "b@x.com", testPassword, sec.RoleMember, auth.StatusBlocked)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "success", body: `{"email":"a@x.com","password":"correct-horse-1"}`, wantStatus: http.StatusOK},
		{name: "wrong password", body: `{"email":"a@x.com","password":"nope-nope-nope"}`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_CREDENTIAL"},
		{name: "unknown", body: `{"email":"z@x.com","password":"correct-horse-1"}`, wantStatus: http.StatusBadRequest, wantCode: "UNKNOWN_IDENTITY"},
		{name: "blocked", body: `{"email":"b@x.com","password":"correct-horse-1"}`, wantStatus: http.StatusBadRequest, wantCode: "ACCOUNT_BLOCKED"},
		{name: "invalid json", body: `{"email":`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := f.do(t, http.MethodPost, "/api/v1/auth/login", tt.body)
			assert.Equal(t, tt.wantStatus, recorder.Code)

			body := decodeBody(t, recorder)
			assert.EqualValues(t, tt.wantStatus, body["status"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
				assert.NotEmpty(t, body["error"])
				return
			}
			assert.NotEmpty(t, body["token"])
			assert.NotContains(t, body, "user")

			// Development responses carry no cookie.
			assert.Nil(t, tokenCookie(recorder))
		})
	}
}

func TestHTTP_PasswordReset(t *testing.T) {
	f := newHTTPFixture(t, false)
	f.users.seed(t, "a@x.com", testPassword, sec.RoleMember, auth.StatusActive)

	known := f.do(t, http.MethodPost, "/api/v1/auth/password/forgot", `{"email":"a@x.com"}`)
	unknown := f.do(t, http.MethodPost, "/api/v1/auth/password/forgot", `{"email":"ghost@x.com"}`)
	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())

	code := f.mail.lastCode(t, "a@x.com")
	recorder := f.do(t, http.MethodPost, "/api/v1/auth/password/reset", `{"email":"a@x.com","code":"`+code+`","new_password":"brand-new-password"}`)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, auth.MsgPasswordReset, decodeBody(t, recorder)["message"])

	recorder = f.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"a@x.com","password":"brand-new-password"}`)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestHTTP_AdminEntryPoints(t *testing.T) {
	f := newHTTPFixture(t, false)
	f.users.seed(t, "member@x.com", testPassword, sec.RoleMember, auth.StatusActive)

	recorder := f.do(t, http.MethodPost, "/api/v1/admin/auth/register", `{"email":"root@x.com","name":"Root","password":"correct-horse-1"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)
	user := decodeBody(t, recorder)["user"].(map[string]any)
	assert.Equal(t, string(sec.RoleAdmin), user["role"])

	recorder = f.do(t, http.MethodPost, "/api/v1/admin/auth/login", `{"email":"root@x.com","password":"correct-horse-1"}`)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = f.do(t, http.MethodPost, "/api/v1/admin/auth/login", `{"email":"member@x.com","password":"correct-horse-1"}`)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, "FORBIDDEN", decodeBody(t, recorder)["code"])
}

func TestHTTP_AdminRegister(t *testing.T) {
	tests := []struct {
		name       string
		production bool
		body       string
		wantStatus int
		wantCode   string
		wantCookie bool
	}{
		{name: "production sets cookie", production: true, body: `{"email":"root@x.com","name":"Root","password":"correct-horse-1"}`, wantStatus: http.StatusCreated, wantCookie: true},
		{name: "development omits cookie", body: `{"email":"root@x.com","name":"Root","password":"correct-horse-1"}`, wantStatus: http.StatusCreated},
		{name: "password required", production: true, body: `{"email":"root@x.com","name":"Root"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHTTPFixture(t, tt.production)

			recorder := f.do(t, http.MethodPost, "/api/v1/admin/auth/register", tt.body)
			require.Equal(t, tt.wantStatus, recorder.Code)
			body := decodeBody(t, recorder)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
				assert.Nil(t, tokenCookie(recorder))
				assert.Equal(t, 0, f.users.count())
				return
			}

			cookie := tokenCookie(recorder)
			if !tt.wantCookie {
				assert.Nil(t, cookie)
				return
			}
			require.NotNil(t, cookie)
			assert.Equal(t, body["token"], cookie.Value)
			assert.True(t, cookie.Secure)
			assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		})
	}
}

func TestHTTP_MalformedCode(t *testing.T) {
	f := newHTTPFixture(t, false)

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "verify", path: "/api/v1/auth/register/verify", body: `{"email":"a@x.com","code":"12ab56"}`},
		{name: "reset", path: "/api/v1/auth/password/reset", body: `{"email":"a@x.com","code":"12ab56","new_password":"brand-new-password"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)

			body := decodeBody(t, recorder)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			details := body["details"].([]any)
			require.Len(t, details, 1)
			assert.Equal(t, auth.FieldCode, details[0].(map[string]any)["field"])
		})
	}
}

// startOAuth runs the start endpoint and returns the state it generated.
func startOAuth(t *testing.T, f *httpFixture) string {
	t.Helper()

	recorder := f.do(t, http.MethodGet, "/api/v1/auth/oauth/google", "")
	require.Equal(t, http.StatusFound, recorder.Code)

	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, f.provider.server.URL+"/authorize", location.Scheme+"://"+location.Host+location.Path)

	state := location.Query().Get("state")
	require.NotEmpty(t, state)
	assert.True(t, f.redis.Exists("auth:oauth_state:"+state))
	return state
}

func TestHTTP_OAuthRoundTrip(t *testing.T) {
	f := newHTTPFixture(t, false)
	f.provider.profile = map[string]any{"sub": "g-1", "name": "Ada", "email": "ada@x.com", "email_verified": true}

	state := startOAuth(t, f)

	recorder := f.do(t, http.MethodGet, "/api/v1/auth/oauth/google/callback?code=good-code&state="+url.QueryEscape(state), "")
	require.Equal(t, http.StatusFound, recorder.Code)

	location, err := url.Parse(recorder.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.bizaek.test", location.Host)
	assert.Equal(t, "/welcome", location.Path)

	token := location.Query().Get("token")
	require.NotEmpty(t, token)

	cookie := tokenCookie(recorder)
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)

	identity, err := f.gate.Authenticate(t.Context(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "ada@x.com", identity.Email)

	// The state is single use.
	recorder = f.do(t, http.MethodGet, "/api/v1/auth/oauth/google/callback?code=good-code&state="+url.QueryEscape(state), "")
	assert.Equal(t, http.StatusFound, recorder.Code)
	assert.Equal(t, failureURL, recorder.Header().Get("Location"))
	assert.Equal(t, 1, f.users.count())
}

func TestHTTP_OAuthProductionRedirect(t *testing.T) {
	f := newHTTPFixture(t, true)
	f.provider.profile = map[string]any{"sub": "g-1", "email": "ada@x.com", "email_verified": true}

	state := startOAuth(t, f)
	recorder := f.do(t, http.MethodGet, "/api/v1/auth/oauth/google/callback?code=good-code&state="+url.QueryEscape(state), "")

	assert.Equal(t, successURL, recorder.Header().Get("Location"))
	cookie := tokenCookie(recorder)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestHTTP_OAuthFailuresRedirect(t *testing.T) {
	tests := []struct {
		name  string
		query func(state string) string
	}{
		{name: "unknown state", query: func(string) string { return "?code=good-code&state=forged" }},
		{name: "missing state", query: func(string) string { return "?code=good-code" }},
		{name: "provider denied", query: func(state string) string { return "?error=access_denied&state=" + url.QueryEscape(state) }},
		{name: "bad code", query: func(state string) string { return "?code=bad-code&state=" + url.QueryEscape(state) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHTTPFixture(t, false)
			f.provider.profile = map[string]any{"sub": "g-1", "email": "ada@x.com", "email_verified": true}
			state := startOAuth(t, f)

			recorder := f.do(t, http.MethodGet, "/api/v1/auth/oauth/google/callback"+tt.query(state), "")
			assert.Equal(t, http.StatusFound, recorder.Code)
			assert.Equal(t, failureURL, recorder.Header().Get("Location"))
			assert.Nil(t, tokenCookie(recorder))
			assert.Equal(t, 0, f.users.count())
		})
	}
}

func TestHTTP_OAuthUnknownProvider(t *testing.T) {
	f := newHTTPFixture(t, false)

	recorder := f.do(t, http.MethodGet, "/api/v1/auth/oauth/facebook", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, recorder)["code"])
}
