// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package api is the resource server tier: a single protected JSON endpoint
// behind a guard.Guard.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/hashicorp/go-hclog"
	"github.com/seclab/oidclab/guard"
	"github.com/seclab/oidclab/internal/httplog"
)

// ErrNilParameter is returned when a required parameter is nil.
var ErrNilParameter = errors.New("nil parameter")

// DataMessage is the message of every /data response.
const DataMessage = "Protected data from the backend"

// TimestampFormat is the UTC, millisecond precision layout of
// DataResponse.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// DataResponse is the body of a successful GET /data.
type DataResponse struct {
	Message   string                 `json:"message"`
	Timestamp string                 `json:"timestamp"`
	User      map[string]interface{} `json:"user"`
}

// ErrorResponse is the body of non auth related failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server routes the API tier.
type Server struct {
	router chi.Router
	logger hclog.Logger
	now    func() time.Time
}

// New creates a Server whose /data route is protected by g.
//
// Supported options: WithLogger, WithNow, WithCORSOrigins
func New(g *guard.Guard, opt ...Option) (*Server, error) {
	const op = "api.New"
	if g == nil {
		return nil, fmt.Errorf("%s: guard is nil: %w", op, ErrNilParameter)
	}
	opts := getServerOpts(opt...)
	s := &Server{
		logger: opts.withLogger,
		now:    opts.withNowFunc,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if len(opts.withCORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.withCORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusMethodNotAllowed)
		render.JSON(w, r, ErrorResponse{Error: "method not allowed"})
	})

	r.Get("/healthz", s.health)
	r.Group(func(r chi.Router) {
		r.Use(g.Handler)
		r.Get("/data", s.data)
	})
	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) data(w http.ResponseWriter, r *http.Request) {
	claims, ok := guard.ClaimsFromContext(r.Context())
	if !ok {
		// only reachable when the route is mounted without the guard
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "missing claims"})
		return
	}
	render.JSON(w, r, DataResponse{
		Message:   DataMessage,
		Timestamp: s.now().UTC().Format(TimestampFormat),
		User:      claims,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}
