// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package spa is the browser facing client tier. It drives the
// authorization code flow with an oidc.Client and keeps the resulting
// tokens in a server side session.
package spa

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/hashicorp/go-hclog"
	"github.com/seclab/oidclab/internal/httplog"
	"github.com/seclab/oidclab/oidc"
	"github.com/seclab/oidclab/oidc/callback"
	"golang.org/x/text/language"
)

// Landing is the body of GET /.
type Landing struct {
	Authenticated bool                   `json:"authenticated"`
	User          map[string]interface{} `json:"user"`
	LoginURL      string                 `json:"login_url"`
	LogoutURL     string                 `json:"logout_url"`
}

// TokenResponse is the body of GET /token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expiry      time.Time `json:"expiry,omitempty"`
}

// Server routes the client tier.
type Server struct {
	client        *oidc.Client
	requests      *requestCache
	sessions      *sessionStore
	logger        hclog.Logger
	requestTTL    time.Duration
	uiLocales     []language.Tag
	secureCookies bool
	nowFunc       func() time.Time
	router        chi.Router
}

// New creates a Server for c.
//
// Supported options: WithLogger, WithRequestTTL, WithUILocales,
// WithSecureCookies, WithNow
func New(c *oidc.Client, opt ...Option) (*Server, error) {
	const op = "spa.New"
	if c == nil {
		return nil, fmt.Errorf("%s: client is nil: %w", op, oidc.ErrNilParameter)
	}
	opts := getServerOpts(opt...)
	s := &Server{
		client:        c,
		requests:      newRequestCache(),
		sessions:      newSessionStore(),
		logger:        opts.withLogger,
		requestTTL:    opts.withRequestTTL,
		uiLocales:     opts.withUILocales,
		secureCookies: opts.withSecureCookies,
		nowFunc:       opts.withNowFunc,
	}

	callbackHandler, err := callback.AuthCode(c, s.requests, s.loginSucceeded, s.loginFailed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Get("/", s.landing)
	r.Get("/login", s.login)
	r.Get("/logout", s.logout)
	r.Get("/callback", callbackHandler)
	r.Get("/token", s.token)
	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	oidcRequest, err := oidc.NewRequest(s.requestTTL, oidc.WithUILocales(s.uiLocales...), oidc.WithNow(s.nowFunc))
	if err != nil {
		s.serverError(w, r, "unable to start login", err)
		return
	}
	loginURL, err := s.client.LoginURL(r.Context(), oidcRequest)
	if err != nil {
		s.serverError(w, r, "unable to build login url", err)
		return
	}
	s.requests.Add(oidcRequest)
	http.Redirect(w, r, loginURL, http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var hint oidc.IDToken
	if id, t, ok := s.session(r); ok {
		hint = t.IDToken()
		s.sessions.Delete(id)
	}
	s.clearSessionCookie(w)

	logoutURL, err := s.client.LogoutURL(r.Context(), hint)
	switch {
	case errors.Is(err, oidc.ErrMissingEndSessionEndpoint):
		s.logger.Debug("provider has no end_session_endpoint, local logout only")
		http.Redirect(w, r, "/", http.StatusFound)
	case err != nil:
		s.serverError(w, r, "unable to build logout url", err)
	default:
		http.Redirect(w, r, logoutURL, http.StatusFound)
	}
}

func (s *Server) landing(w http.ResponseWriter, r *http.Request) {
	resp := Landing{LoginURL: "/login", LogoutURL: "/logout"}
	if id, t, ok := s.session(r); ok {
		claims, err := s.client.VerifyIDToken(r.Context(), t.IDToken())
		if err != nil {
			s.logger.Info("session dropped", "error", err)
			s.sessions.Delete(id)
			s.clearSessionCookie(w)
		} else {
			resp.Authenticated = true
			resp.User = claims
		}
	}
	render.JSON(w, r, resp)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.session(r)
	if !ok || !t.Valid() {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, callback.AuthenErrorResponse{Error: "login_required"})
		return
	}
	render.JSON(w, r, TokenResponse{
		AccessToken: string(t.AccessToken()),
		TokenType:   "Bearer",
		Expiry:      t.Expiry(),
	})
}

func (s *Server) loginSucceeded(state string, t *oidc.Token, w http.ResponseWriter, r *http.Request) {
	// Exchange has already verified the id_token.
	var claims struct {
		Subject  string `json:"sub"`
		Username string `json:"preferred_username"`
	}
	if err := t.IDToken().Claims(&claims); err != nil {
		s.serverError(w, r, "unable to read id_token claims", err)
		return
	}
	id, err := s.sessions.Add(t)
	if err != nil {
		s.serverError(w, r, "unable to create session", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("login completed", "state", state, "sub", claims.Subject, "user", claims.Username)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) loginFailed(state string, respErr *callback.AuthenErrorResponse, e error, w http.ResponseWriter, r *http.Request) {
	switch {
	case respErr != nil:
		s.logger.Warn("provider returned an error", "state", state, "error", respErr.Error, "description", respErr.Description)
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, respErr)
	case errors.Is(e, oidc.ErrNotFound), errors.Is(e, oidc.ErrExpiredRequest), errors.Is(e, oidc.ErrInvalidResponseState):
		s.logger.Warn("callback rejected", "state", state, "error", e)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, callback.AuthenErrorResponse{Error: "invalid_request", Description: e.Error()})
	default:
		s.serverError(w, r, "callback failed", e)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(msg, "error", err)
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, callback.AuthenErrorResponse{Error: "server_error", Description: msg})
}

func (s *Server) session(r *http.Request) (string, *oidc.Token, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", nil, false
	}
	t, ok := s.sessions.Get(c.Value)
	return c.Value, t, ok
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
