// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/bizaek/internal/platform/request"
	"github.com/taibuivan/bizaek/internal/platform/respond"
)

// Handler implements the HTTP layer for account endpoints.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Routes returns the routes available to any authenticated user.
//
// # Endpoints
//   - GET /me : The caller's own record.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/me", handler.getMe)
	return router
}

// AdminRoutes returns the routes that require the admin role.
//
// # Endpoints
//   - PUT /users/{id}/status : Changes an account's lifecycle state.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()
	router.Put("/users/{id}/status", handler.setStatus)
	return router
}

/*
GET /api/v1/me.

Description: Retrieves the live record of the authenticated user.

Response:
  - 200: User
  - 401: UNAUTHORIZED
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), identity.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

/*
PUT /api/v1/admin/users/{id}/status.

Request:
  - id: string (UUID)
  - Body: setStatusRequest (ACTIVE | INACTIVE | BLOCKED)

Response:
  - 200: User: The updated record
  - 400: VALIDATION_ERROR
  - 403: FORBIDDEN for the caller's own account
  - 404: NOT_FOUND
*/
func (handler *Handler) setStatus(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input setStatusRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.SetStatus(request.Context(), identity, requestutil.Param(request, FieldID), input.Status)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}
