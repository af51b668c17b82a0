// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, OTP
// generation) from the domain logic. It acts as an Infrastructure service
// injected into the Application layer via small interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by [TokenService.Verify] for every rejected token.
// Callers map it to 401 without inspecting the underlying reason.
var ErrInvalidToken = errors.New("sec: invalid token")

// Identity is the authenticated principal: a user id, its email and a single role tag.
//
// The same type is the input of [TokenService.Issue] and the value the permission
// gate attaches to the request context.
type Identity struct {
	UserID string   `json:"id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// Claims is the whitelisted JWT payload. Nothing else from the user record
// (and never the password hash) is serialised into a token.
type Claims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID string `json:"uid"`
	Email  string `json:"eml"`
	Role   string `json:"rol"`
}

// TokenService issues and verifies HS256 bearer tokens.
//
// The secret and issuer are fixed at construction; the clock is injectable so
// that issuance and expiry checks are deterministic under test.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
//
// # Parameters
//   - secret: HMAC key, at least 32 bytes (enforced by config validation)
//   - issuer: value written to and required in the 'iss' claim
//   - now: clock; nil means [time.Now]
func NewTokenService(secret []byte, issuer string, now func() time.Time) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("sec: token secret is empty")
	}
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		now:    now,
	}, nil
}

// Issue signs a token for the identity valid for timeToLive from now.
func (service *TokenService) Issue(identity Identity, timeToLive time.Duration) (string, error) {
	currentTime := service.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID: identity.UserID,
		Email:  identity.Email,
		Role:   string(identity.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, algorithm, issuer and expiry of a raw token.
//
// A token whose expiry instant equals the current time is already expired.
// Every failure wraps [ErrInvalidToken].
func (service *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			return service.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
