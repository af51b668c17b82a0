// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/taibuivan/bizaek/internal/platform/constants"
	"github.com/taibuivan/bizaek/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/bizaek/internal/platform/request"
	"github.com/taibuivan/bizaek/internal/platform/respond"
	"github.com/taibuivan/bizaek/internal/platform/sec"
)

/*
OAuthStart redirects the browser to the provider's consent page.

GET /api/v1/auth/oauth/{provider}

Description: A random state is stored for [OAuthStateTTL] and checked once on
the callback.

Response:
  - 302: Provider consent page
  - 404: Provider unknown or not configured
*/
func (handler *Handler) oauthStart(writer http.ResponseWriter, request *http.Request) {
	provider, err := handler.providers.Lookup(requestutil.Param(request, "provider"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	state, err := sec.RandomToken(OAuthStateLength)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	value := OAuthState{Provider: provider.Name(), CreatedAt: handler.now()}
	if err := handler.states.Save(request.Context(), state, value, OAuthStateTTL); err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.Redirect(writer, request, provider.AuthCodeURL(state), http.StatusFound)
}

/*
OAuthCallback completes the provider round trip.

GET /api/v1/auth/oauth/{provider}/callback?code=...&state=...

Description: Consumes the state, exchanges the code, reconciles the profile
through the [Bridge] and issues a member token. The browser always ends up on
one of the configured front-end URLs; failures are only visible in the logs.

Response:
  - 302: OAuthSuccessURL with the token cookie (and ?token= outside production)
  - 302: OAuthFailureURL on any failure
*/
func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()
	logger := ctxutil.GetLogger(ctx)

	fail := func(reason string, err error) {
		logger.WarnContext(ctx, "oauth_callback_failed", slog.String("reason", reason), slog.Any("error", err))
		http.Redirect(writer, request, handler.options.OAuthFailureURL, http.StatusFound)
	}

	provider, err := handler.providers.Lookup(requestutil.Param(request, "provider"))
	if err != nil {
		fail("unknown_provider", err)
		return
	}

	query := request.URL.Query()
	if providerError := query.Get("error"); providerError != "" {
		fail("provider_denied", ErrProviderProfile)
		return
	}

	state, err := handler.states.Consume(ctx, query.Get("state"))
	if err != nil {
		fail("invalid_state", err)
		return
	}
	if state.Provider != provider.Name() {
		fail("state_provider_mismatch", ErrInvalidState)
		return
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, constants.OAuthExchangeTimeout)
	defer cancel()

	profile, err := provider.FetchProfile(exchangeCtx, query.Get("code"))
	if err != nil {
		fail("profile_fetch", err)
		return
	}

	session, err := handler.service.OAuthLogin(ctx, handler.bridge, profile)
	if err != nil {
		fail("login", err)
		return
	}

	setTokenCookie(writer, session.Token, handler.options)
	http.Redirect(writer, request, handler.successURL(session.Token), http.StatusFound)
}

// successURL appends the token as a query parameter outside production, where
// the front end may not share the cookie's site.
func (handler *Handler) successURL(token string) string {
	if handler.options.Production {
		return handler.options.OAuthSuccessURL
	}

	target, err := url.Parse(handler.options.OAuthSuccessURL)
	if err != nil {
		return handler.options.OAuthSuccessURL
	}
	values := target.Query()
	values.Set(constants.FieldToken, token)
	target.RawQuery = values.Encode()
	return target.String()
}
