// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// Every body, success or error, carries a numeric "status" mirroring the HTTP
// status code so that clients reading only the body can branch on it.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taibuivan/bizaek/internal/platform/apperr"
	"github.com/taibuivan/bizaek/internal/platform/ctxutil"
)

// SuccessEnvelope is the JSON envelope for successful single-resource responses.
type SuccessEnvelope struct {
	Status int `json:"status"`
	Data   any `json:"data"`
}

// MessageEnvelope is returned by operations whose only output is a notice,
// such as "a code has been sent".
type MessageEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// TokenEnvelope carries a freshly issued bearer token and, optionally, the user it belongs to.
type TokenEnvelope struct {
	Status int    `json:"status"`
	Token  string `json:"token"`
	User   any    `json:"user,omitempty"`
}

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Status  int                 `json:"status"`
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with data wrapped in the standard success envelope.
func OK(writer http.ResponseWriter, data any) {
	JSON(writer, http.StatusOK, SuccessEnvelope{Status: http.StatusOK, Data: data})
}

// Message writes {status, message} with the given status code.
func Message(writer http.ResponseWriter, statusCode int, message string) {
	JSON(writer, statusCode, MessageEnvelope{Status: statusCode, Message: message})
}

// Token writes {status, token, user?} with the given status code.
func Token(writer http.ResponseWriter, statusCode int, token string, user any) {
	JSON(writer, statusCode, TokenEnvelope{Status: statusCode, Token: token, User: user})
}

// Error converts any Go error into a standardized JSON API error response.
//
// Non-AppErrors are treated as upstream failures: the cause is logged with the
// request-scoped logger and the client receives a generic 500.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	logger := ctxutil.GetLogger(request.Context())

	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		// Unexpected internal error: log full details but hide them from the client for security.
		logger.ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
		)
		appError = apperr.Internal(err)
	}

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= 500 {
		logger.ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
			slog.Any("cause", appError.Cause),
		)
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Status:  appError.HTTPStatus,
		Error:   appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}
