// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/taibuivan/bizaek/internal/platform/apperr"
	"github.com/taibuivan/bizaek/internal/platform/constants"
	"github.com/taibuivan/bizaek/internal/platform/ctxutil"
	"github.com/taibuivan/bizaek/internal/platform/respond"
	"github.com/taibuivan/bizaek/internal/platform/sec"
)

// Authenticator resolves a raw Authorization header to a live identity.
//
// Implementations verify the token and then re-read the account, so a token
// for a blocked or deleted user is rejected even though its signature is valid.
// Errors must be [*apperr.AppError] values (401 or 403) or infrastructure errors.
type Authenticator interface {
	Authenticate(ctx context.Context, authorizationHeader string) (*sec.Identity, error)
}

// RequireAuth is the permission gate in front of every protected route.
//
// # Flow
//  1. A missing Authorization header is rejected with 401.
//  2. The header is handed to the [Authenticator].
//  3. On success the [*sec.Identity] is stored in the request context.
func RequireAuth(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			header := request.Header.Get(constants.HeaderAuthorization)

			// ── 1. Presence ───────────────────────────────────────────────────
			if header == "" {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Verification + liveness ────────────────────────────────────
			identity, err := authenticator.Authenticate(request.Context(), header)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			setLoggedUser(request.Context(), identity.UserID)
			ctx := ctxutil.WithIdentity(request.Context(), identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose role fails the predicate.
//
// # Usage
//
// Mount after [RequireAuth]; a request without an identity is answered 401.
//
//	r.With(middleware.RequireAuth(gate), middleware.RequireRole(sec.AtLeast(sec.RoleAdmin)))
func RequireRole(allow sec.RolePredicate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			if identity == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if !allow(identity.Role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// GuestAccess guards bootstrap endpoints (admin register/login) with HTTP
// Basic credentials shared out of band. With no username configured every
// request is refused.
func GuestAccess(username, password string) func(http.Handler) http.Handler {
	wantUser := sha256.Sum256([]byte(username))
	wantPass := sha256.Sum256([]byte(password))
	challenge := "Basic realm=" + strconv.Quote(constants.GuestRealm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			user, pass, ok := request.BasicAuth()

			gotUser := sha256.Sum256([]byte(user))
			gotPass := sha256.Sum256([]byte(pass))
			userMatch := subtle.ConstantTimeCompare(gotUser[:], wantUser[:])
			passMatch := subtle.ConstantTimeCompare(gotPass[:], wantPass[:])

			if !ok || username == "" || userMatch&passMatch != 1 {
				writer.Header().Set(constants.HeaderWWWAuthenticate, challenge)
				respond.Error(writer, request, apperr.Unauthorized("Guest credentials required"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
