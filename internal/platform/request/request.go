// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/bizaek/internal/platform/apperr"
	"github.com/taibuivan/bizaek/internal/platform/ctxutil"
	"github.com/taibuivan/bizaek/internal/platform/sec"
	"github.com/taibuivan/bizaek/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies; identity payloads are tiny.
const maxBodyBytes = 1 << 16

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (used to cap the body size)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Identity extracts the authenticated identity from the request context.

Returns nil if the request did not pass the permission gate.
*/
func Identity(request *http.Request) *sec.Identity {
	return ctxutil.GetIdentity(request.Context())
}

/*
RequiredIdentity ensures the request is authenticated and returns the identity.

Returns:
  - *sec.Identity: The identity resolved by the permission gate
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredIdentity(request *http.Request) (*sec.Identity, error) {

	// Get identity
	identity := ctxutil.GetIdentity(request.Context())

	// If the user is not authenticated, return an error
	if identity == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return identity, nil
}
