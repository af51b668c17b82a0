// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/bizaek/internal/platform/constants"
	requestutil "github.com/taibuivan/bizaek/internal/platform/request"
	"github.com/taibuivan/bizaek/internal/platform/respond"
)

// # Definitions & Constructors

// HandlerOptions carry the deployment-dependent transport settings.
type HandlerOptions struct {
	// Production switches the token cookie to Secure, SameSite=Lax.
	Production   bool
	CookieDomain string

	// OAuth redirect targets after a callback.
	OAuthSuccessURL string
	OAuthFailureURL string
}

// Handler implements the public authentication endpoints.
//
// # Scope
//
// Registration (in whichever mode the registrar implements), code verification,
// login, password reset and the OAuth round trip.
type Handler struct {
	registrar Registrar
	service   *Service
	bridge    *Bridge
	providers Providers
	states    StateStore
	options   HandlerOptions
	now       func() time.Time
}

// NewHandler constructs a new [Handler].
func NewHandler(
	registrar Registrar,
	service *Service,
	bridge *Bridge,
	providers Providers,
	states StateStore,
	options HandlerOptions,
) *Handler {
	return &Handler{
		registrar: registrar,
		service:   service,
		bridge:    bridge,
		providers: providers,
		states:    states,
		options:   options,
		now:       time.Now,
	}
}

// Routes returns a [chi.Router] configured with the public authentication routes.
//
// # Endpoints
//   - POST /register                 : Creates or stages an account.
//   - POST /register/verify          : Completes an OTP registration.
//   - POST /login                    : Authenticates and returns a token.
//   - POST /password/forgot          : Mails a reset code.
//   - POST /password/reset           : Sets a new password with a reset code.
//   - GET  /oauth/{provider}         : Redirects to the provider.
//   - GET  /oauth/{provider}/callback: Completes the provider round trip.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/register/verify", handler.verifyRegistration)
	router.Post("/login", handler.login)
	router.Post("/password/forgot", handler.forgotPassword)
	router.Post("/password/reset", handler.resetPassword)

	router.Get("/oauth/{provider}", handler.oauthStart)
	router.Get("/oauth/{provider}/callback", handler.oauthCallback)

	return router
}

// AdminHandler implements the guest-gated administrator entry points.
type AdminHandler struct {
	registrar Registrar
	service   *Service
	options   HandlerOptions
}

// NewAdminHandler constructs a new [AdminHandler]. The registrar should create
// accounts with the admin role.
func NewAdminHandler(registrar Registrar, service *Service, options HandlerOptions) *AdminHandler {
	return &AdminHandler{registrar: registrar, service: service, options: options}
}

// Routes returns a [chi.Router] with the admin authentication routes.
//
// # Endpoints
//   - POST /register : Creates an administrator.
//   - POST /login    : Authenticates an administrator.
func (handler *AdminHandler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	return router
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// # Public Handlers

/*
Register creates an account or stages one behind an emailed code.

POST /api/v1/auth/register

Request:
  - Body: registerRequest (Email, Name, Password optional)

Response:
  - 200: {status, message}: Code sent (OTP mode)
  - 201: {status, token, user}: Account created (direct mode)
  - 400: VALIDATION_ERROR
  - 403: DUPLICATE_IDENTITY
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.registrar.Register(request.Context(), RegisterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if outcome.Pending {
		respond.Message(writer, http.StatusOK, MsgOTPSent)
		return
	}

	if handler.options.Production {
		setTokenCookie(writer, outcome.Token, handler.options)
	}
	respond.Token(writer, http.StatusCreated, outcome.Token, outcome.User)
}

/*
VerifyRegistration completes an OTP registration.

POST /api/v1/auth/register/verify

Request:
  - Body: verifyRequest (Email, Code)

Response:
  - 201: {status, token, user}: Account created, token cookie set in production
  - 400: INVALID_OR_EXPIRED_OTP
  - 403: DUPLICATE_IDENTITY
*/
func (handler *Handler) verifyRegistration(writer http.ResponseWriter, request *http.Request) {
	var input verifyRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.VerifyAndRegister(request.Context(), input.Email, input.Code)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if handler.options.Production {
		setTokenCookie(writer, session.Token, handler.options)
	}
	respond.Token(writer, http.StatusCreated, session.Token, session.User)
}

/*
Login authenticates a user with email and password.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: {status, token}: Token cookie set in production
  - 400: UNKNOWN_IDENTITY, INVALID_CREDENTIAL, ACCOUNT_BLOCKED, ACCOUNT_INACTIVE
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Login(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if handler.options.Production {
		setTokenCookie(writer, session.Token, handler.options)
	}
	respond.Token(writer, http.StatusOK, session.Token, nil)
}

/*
ForgotPassword mails a reset code if the account exists.

POST /api/v1/auth/password/forgot

Response:
  - 200: {status, message}: Same message whether or not the email is registered
  - 400: VALIDATION_ERROR
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MsgResetRequested)
}

/*
ResetPassword sets a new password using a reset code.

POST /api/v1/auth/password/reset

Response:
  - 200: {status, message}
  - 400: INVALID_OR_EXPIRED_OTP or VALIDATION_ERROR
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ResetPassword(request.Context(), input.Email, input.Code, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, http.StatusOK, MsgPasswordReset)
}

// # Admin Handlers

/*
Register creates an administrator account.

POST /api/v1/admin/auth/register (guest basic auth)

Response:
  - 201: {status, token, user}
  - 403: DUPLICATE_IDENTITY
*/
func (handler *AdminHandler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.registrar.Register(request.Context(), RegisterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if handler.options.Production {
		setTokenCookie(writer, outcome.Token, handler.options)
	}
	respond.Token(writer, http.StatusCreated, outcome.Token, outcome.User)
}

/*
Login authenticates an administrator.

POST /api/v1/admin/auth/login (guest basic auth)

Response:
  - 200: {status, token}
  - 400: as the public login
  - 403: FORBIDDEN for non-admin accounts
*/
func (handler *AdminHandler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.AdminLogin(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if handler.options.Production {
		setTokenCookie(writer, session.Token, handler.options)
	}
	respond.Token(writer, http.StatusOK, session.Token, nil)
}

// # Cookies

// setTokenCookie writes the token cookie. Outside production the cookie is
// not Secure and uses SameSite=None so local front ends on other ports can
// read the OAuth result.
func setTokenCookie(writer http.ResponseWriter, token string, options HandlerOptions) {
	cookie := &http.Cookie{
		Name:     constants.TokenCookieName,
		Value:    token,
		Path:     constants.TokenCookiePath,
		MaxAge:   int(constants.TokenCookieMaxAge / time.Second),
		HttpOnly: true,
		Secure:   options.Production,
		SameSite: http.SameSiteNoneMode,
	}
	if options.Production {
		cookie.SameSite = http.SameSiteLaxMode
		cookie.Domain = options.CookieDomain
	}
	http.SetCookie(writer, cookie)
}
