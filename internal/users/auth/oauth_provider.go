// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/taibuivan/bizaek/internal/platform/apperr"
)

// # Identity Provider Clients

// Userinfo endpoints of the supported providers.
const (
	googleProfileURL   = "https://www.googleapis.com/oauth2/v3/userinfo"
	facebookProfileURL = "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"
	githubProfileURL   = "https://api.github.com/user"
	githubEmailsURL    = "https://api.github.com/user/emails"
)

// maxProfileBytes bounds a provider userinfo response.
const maxProfileBytes = 1 << 20

// ErrProviderProfile is returned when a provider answers without a usable profile.
var ErrProviderProfile = errors.New("auth: provider returned an unusable profile")

// ProviderCredentials are the client credentials registered with a provider.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
}

// OAuthProvider is an authorization-code client for one identity provider.
type OAuthProvider struct {
	name       Provider
	config     *oauth2.Config
	profileURL string
	emailsURL  string
}

// NewOAuthProvider builds a provider client against explicit endpoints.
// emailsURL is only consulted for GitHub accounts with a private email.
func NewOAuthProvider(name Provider, creds ProviderCredentials, redirectURL string, endpoint oauth2.Endpoint, scopes []string, profileURL, emailsURL string) *OAuthProvider {
	return &OAuthProvider{
		name: name,
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		profileURL: profileURL,
		emailsURL:  emailsURL,
	}
}

// Name returns the provider this client talks to.
func (provider *OAuthProvider) Name() Provider {
	return provider.name
}

// AuthCodeURL returns the consent page URL carrying the given state.
func (provider *OAuthProvider) AuthCodeURL(state string) string {
	return provider.config.AuthCodeURL(state)
}

/*
FetchProfile exchanges an authorization code and reads the user's profile.

Parameters:
  - ctx: context.Context (bounds the exchange and the userinfo calls)
  - code: string

Returns:
  - ProviderProfile: Normalised profile
  - error: apperr Upstream for provider failures
*/
func (provider *OAuthProvider) FetchProfile(ctx context.Context, code string) (ProviderProfile, error) {
	token, err := provider.config.Exchange(ctx, code)
	if err != nil {
		return ProviderProfile{}, apperr.Upstream(fmt.Errorf("oauth_exchange_failed: %s: %w", provider.name, err))
	}

	client := provider.config.Client(ctx, token)

	var profile ProviderProfile
	switch provider.name {
	case ProviderGoogle:
		profile, err = provider.googleProfile(ctx, client)
	case ProviderFacebook:
		profile, err = provider.facebookProfile(ctx, client)
	case ProviderGithub:
		profile, err = provider.githubProfile(ctx, client)
	default:
		err = fmt.Errorf("unsupported provider %q", provider.name)
	}
	if err != nil {
		return ProviderProfile{}, apperr.Upstream(fmt.Errorf("oauth_profile_failed: %s: %w", provider.name, err))
	}

	profile.Provider = provider.name
	if profile.ExternalID == "" || profile.Email == "" {
		return ProviderProfile{}, apperr.Upstream(fmt.Errorf("%w: %s", ErrProviderProfile, provider.name))
	}
	return profile, nil
}

func (provider *OAuthProvider) googleProfile(ctx context.Context, client *http.Client) (ProviderProfile, error) {
	var payload struct {
		Sub           string `json:"sub"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, client, provider.profileURL, &payload); err != nil {
		return ProviderProfile{}, err
	}

	profile := ProviderProfile{ExternalID: payload.Sub, DisplayName: payload.Name, AvatarURL: payload.Picture}
	if payload.EmailVerified {
		profile.Email = payload.Email
	}
	return profile, nil
}

func (provider *OAuthProvider) facebookProfile(ctx context.Context, client *http.Client) (ProviderProfile, error) {
	var payload struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := getJSON(ctx, client, provider.profileURL, &payload); err != nil {
		return ProviderProfile{}, err
	}

	return ProviderProfile{
		ExternalID:  payload.ID,
		DisplayName: payload.Name,
		Email:       payload.Email,
		AvatarURL:   payload.Picture.Data.URL,
	}, nil
}

func (provider *OAuthProvider) githubProfile(ctx context.Context, client *http.Client) (ProviderProfile, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, provider.profileURL, &payload); err != nil {
		return ProviderProfile{}, err
	}

	profile := ProviderProfile{
		DisplayName: payload.Name,
		Email:       payload.Email,
		AvatarURL:   payload.AvatarURL,
	}
	if payload.ID != 0 {
		profile.ExternalID = strconv.FormatInt(payload.ID, 10)
	}
	if profile.DisplayName == "" {
		profile.DisplayName = payload.Login
	}

	// Accounts with a private email only expose it through the emails endpoint.
	if profile.Email == "" && provider.emailsURL != "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, provider.emailsURL, &emails); err != nil {
			return ProviderProfile{}, err
		}
		for _, candidate := range emails {
			if candidate.Primary && candidate.Verified {
				profile.Email = candidate.Email
				break
			}
		}
	}

	return profile, nil
}

// getJSON issues an authenticated GET and decodes a bounded JSON body.
func getJSON(ctx context.Context, client *http.Client, url string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("userinfo %s answered %d", url, response.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(response.Body, maxProfileBytes)).Decode(target); err != nil {
		return fmt.Errorf("decode userinfo: %w", err)
	}
	return nil
}

// # Provider Registry

// Providers indexes the enabled provider clients by name.
type Providers map[Provider]*OAuthProvider

// Lookup returns the client for a provider name taken from a URL.
func (providers Providers) Lookup(name string) (*OAuthProvider, error) {
	provider, ok := providers[Provider(strings.ToLower(name))]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return provider, nil
}

/*
NewProviders builds clients for every provider with a configured client id.

Parameters:
  - callbackBaseURL: string (public origin of this API)
  - creds: map[Provider]ProviderCredentials

Returns:
  - Providers: Enabled providers only
*/
func NewProviders(callbackBaseURL string, creds map[Provider]ProviderCredentials) Providers {
	providers := Providers{}
	base := strings.TrimRight(callbackBaseURL, "/")

	callback := func(name Provider) string {
		return base + "/api/v1/auth/oauth/" + string(name) + "/callback"
	}

	if c := creds[ProviderGoogle]; c.ClientID != "" {
		providers[ProviderGoogle] = NewOAuthProvider(ProviderGoogle, c, callback(ProviderGoogle),
			endpoints.Google, []string{"openid", "email", "profile"}, googleProfileURL, "")
	}
	if c := creds[ProviderFacebook]; c.ClientID != "" {
		providers[ProviderFacebook] = NewOAuthProvider(ProviderFacebook, c, callback(ProviderFacebook),
			endpoints.Facebook, []string{"email", "public_profile"}, facebookProfileURL, "")
	}
	if c := creds[ProviderGithub]; c.ClientID != "" {
		providers[ProviderGithub] = NewOAuthProvider(ProviderGithub, c, callback(ProviderGithub),
			endpoints.GitHub, []string{"read:user", "user:email"}, githubProfileURL, githubEmailsURL)
	}

	return providers
}
