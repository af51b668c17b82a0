// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/taibuivan/bizaek/internal/platform/apperr"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/users/auth"
	"github.com/taibuivan/bizaek/pkg/uuid"
)

// # Bridge

/*
TestBridge_FindOrCreateIsIdempotent covers the first-login scenario: an unseen
external id creates exactly one password-less user, a repeat callback reuses it.
*/
func TestBridge_FindOrCreateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	profile := auth.ProviderProfile{
		Provider:    auth.ProviderGoogle,
		ExternalID:  "google-123",
		DisplayName: "Ada",
		Email:       "ada@x.com",
		AvatarURL:   "https://img.example/ada.png",
	}

	first, err := h.bridge.HandleCallback(ctx, profile)
	require.NoError(t, err)
	assert.False(t, first.HasPassword())
	assert.Equal(t, "google-123", first.GoogleID)
	assert.Equal(t, "Ada", first.DisplayName)
	assert.Equal(t, "https://img.example/ada.png", first.ProfileImage)
	assert.Equal(t, sec.RoleMember, first.Role)
	assert.Equal(t, auth.StatusActive, first.Status)

	second, err := h.bridge.HandleCallback(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, h.users.count())
	assert.Equal(t, 1, h.users.creates)
}

func TestBridge_LinksExistingEmail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	existing := h.users.seed(t, "ada@x.com", testPassword, sec.RoleMember, auth.StatusActive)

	user, err := h.bridge.HandleCallback(ctx, auth.ProviderProfile{
		Provider:   auth.ProviderGithub,
		ExternalID: "4242",
		Email:      "ada@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.True(t, user.HasPassword())

	linked, err := h.users.FindByExternalID(ctx, auth.ProviderGithub, "4242")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
	assert.Equal(t, 0, h.users.creates)
}

func TestBridge_RefusesToRelinkProvider(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	existing := h.users.seed(t, "ada@x.com", testPassword, sec.RoleMember, auth.StatusActive)
	require.NoError(t, h.users.LinkExternalID(ctx, existing.ID, auth.ProviderGoogle, "google-old"))

	_, err := h.bridge.HandleCallback(ctx, auth.ProviderProfile{
		Provider:   auth.ProviderGoogle,
		ExternalID: "google-new",
		Email:      "ada@x.com",
	})
	assert.Error(t, err)
}

func TestBridge_ConcurrentFirstLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	profile := auth.ProviderProfile{Provider: auth.ProviderFacebook, ExternalID: "fb-1", Email: "ada@x.com"}

	// Another callback for the same identity inserts first.
	var winner *auth.User
	h.users.beforeCreate = func(*auth.User) {
		winner = &auth.User{ID: uuid.New(), Email: "ada@x.com", FacebookID: "fb-1", Role: sec.RoleMember, Status: auth.StatusActive}
		require.NoError(t, h.users.Create(ctx, winner))
	}

	user, err := h.bridge.HandleCallback(ctx, profile)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, winner.ID, user.ID)
	assert.Equal(t, 1, h.users.count())
}

func TestBridge_ProfileRequirements(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		profile auth.ProviderProfile
	}{
		{name: "missing external id", profile: auth.ProviderProfile{Provider: auth.ProviderGoogle, Email: "a@x.com"}},
		{name: "missing email", profile: auth.ProviderProfile{Provider: auth.ProviderGoogle, ExternalID: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.bridge.HandleCallback(context.Background(), tt.profile)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation), "got %v", err)
		})
	}
}

func TestBridge_DisplayNameFallsBackToEmail(t *testing.T) {
	h := newHarness(t)

	user, err := h.bridge.HandleCallback(context.Background(), auth.ProviderProfile{
		Provider:   auth.ProviderGithub,
		ExternalID: "7",
		Email:      "octo.cat@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "octo.cat", user.DisplayName)
}

func TestService_OAuthLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, err := h.service.OAuthLogin(ctx, h.bridge, auth.ProviderProfile{Provider: auth.ProviderGoogle, ExternalID: "g-1", Email: "a@x.com"})
	require.NoError(t, err)

	identity, err := h.gate.Authenticate(ctx, "Bearer "+session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, identity.UserID)

	// Blocked accounts cannot sign in through a provider either.
	h.users.setStatus(session.User.ID, auth.StatusBlocked)
	_, err = h.service.OAuthLogin(ctx, h.bridge, auth.ProviderProfile{Provider: auth.ProviderGoogle, ExternalID: "g-1", Email: "a@x.com"})
	assert.ErrorIs(t, err, auth.ErrAccountBlocked)
}

// # Provider clients

// fakeProvider is an authorization server plus userinfo endpoints.
type fakeProvider struct {
	server  *httptest.Server
	profile any
	emails  any
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fake := &fakeProvider{}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	})
	userinfo := func(payload func() any) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer access-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(payload())
		}
	}
	mux.HandleFunc("/userinfo", userinfo(func() any { return fake.profile }))
	mux.HandleFunc("/emails", userinfo(func() any { return fake.emails }))

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)
	return fake
}

func (fake *fakeProvider) client(name auth.Provider) *auth.OAuthProvider {
	return auth.NewOAuthProvider(name,
		auth.ProviderCredentials{ClientID: "client-1", ClientSecret: "secret-1"},
		"http://api.test/api/v1/auth/oauth/"+string(name)+"/callback",
		oauth2.Endpoint{AuthURL: fake.server.URL + "/authorize", TokenURL: fake.server.URL + "/token"},
		[]string{"email"},
		fake.server.URL+"/userinfo",
		fake.server.URL+"/emails",
	)
}

func TestOAuthProvider_AuthCodeURL(t *testing.T) {
	fake := newFakeProvider(t)

	raw := fake.client(auth.ProviderGoogle).AuthCodeURL("state-xyz")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	query := parsed.Query()
	assert.Equal(t, "state-xyz", query.Get("state"))
	assert.Equal(t, "client-1", query.Get("client_id"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "http://api.test/api/v1/auth/oauth/google/callback", query.Get("redirect_uri"))
}

func TestOAuthProvider_FetchProfile(t *testing.T) {
	tests := []struct {
		name     string
		provider auth.Provider
		profile  any
		emails   any
		want     auth.ProviderProfile
		wantErr  bool
	}{
		{
			name:     "google verified email",
			provider: auth.ProviderGoogle,
			profile:  map[string]any{"sub": "g-1", "name": "Ada", "email": "ada@x.com", "email_verified": true, "picture": "https://img/ada"},
			want:     auth.ProviderProfile{Provider: auth.ProviderGoogle, ExternalID: "g-1", DisplayName: "Ada", Email: "ada@x.com", AvatarURL: "https://img/ada"},
		},
		{
			name:     "google unverified email",
			provider: auth.ProviderGoogle,
			profile:  map[string]any{"sub": "g-1", "email": "ada@x.com", "email_verified": false},
			wantErr:  true,
		},
		{
			name:     "facebook",
			provider: auth.ProviderFacebook,
			profile:  map[string]any{"id": "fb-1", "name": "Ada", "email": "ada@x.com", "picture": map[string]any{"data": map[string]any{"url": "https://img/fb"}}},
			want:     auth.ProviderProfile{Provider: auth.ProviderFacebook, ExternalID: "fb-1", DisplayName: "Ada", Email: "ada@x.com", AvatarURL: "https://img/fb"},
		},
		{
			name:     "github public email",
			provider: auth.ProviderGithub,
			profile:  map[string]any{"id": 4242, "login": "ada", "email": "ada@x.com", "avatar_url": "https://img/gh"},
			want:     auth.ProviderProfile{Provider: auth.ProviderGithub, ExternalID: "4242", DisplayName: "ada", Email: "ada@x.com", AvatarURL: "https://img/gh"},
		},
		{
			name:     "github private email",
			provider: auth.ProviderGithub,
			profile:  map[string]any{"id": 4242, "login": "ada", "name": "Ada L"},
			emails: []map[string]any{
				{"email": "old@x.com", "primary": false, "verified": true},
				{"email": "ada@x.com", "primary": true, "verified": true},
			},
			want: auth.ProviderProfile{Provider: auth.ProviderGithub, ExternalID: "4242", DisplayName: "Ada L", Email: "ada@x.com"},
		},
		{
			name:     "github without verified email",
			provider: auth.ProviderGithub,
			profile:  map[string]any{"id": 4242, "login": "ada"},
			emails:   []map[string]any{{"email": "ada@x.com", "primary": true, "verified": false}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeProvider(t)
			fake.profile = tt.profile
			fake.emails = tt.emails

			profile, err := fake.client(tt.provider).FetchProfile(context.Background(), "good-code")
			if tt.wantErr {
				assert.True(t, apperr.HasCode(err, apperr.CodeUpstream), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, profile)
		})
	}
}

func TestOAuthProvider_ExchangeFailure(t *testing.T) {
	fake := newFakeProvider(t)

	_, err := fake.client(auth.ProviderGoogle).FetchProfile(context.Background(), "bad-code")
	assert.True(t, apperr.HasCode(err, apperr.CodeUpstream), "got %v", err)
}

func TestNewProviders_SkipsUnconfigured(t *testing.T) {
	providers := auth.NewProviders("https://api.bizaek.app/", map[auth.Provider]auth.ProviderCredentials{
		auth.ProviderGoogle: {ClientID: "g", ClientSecret: "s"},
		auth.ProviderGithub: {},
	})

	google, err := providers.Lookup("google")
	require.NoError(t, err)
	assert.Contains(t, google.AuthCodeURL("s"), url.QueryEscape("https://api.bizaek.app/api/v1/auth/oauth/google/callback"))

	_, err = providers.Lookup("github")
	assert.ErrorIs(t, err, auth.ErrUnknownProvider)

	_, err = providers.Lookup("myspace")
	assert.ErrorIs(t, err, auth.ErrUnknownProvider)
}
