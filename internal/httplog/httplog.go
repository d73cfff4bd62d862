// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package httplog is the request logging middleware shared by the servers.
package httplog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
)

// RequestLogger logs one line per request at debug level, or at warn level
// for 4xx and error level for 5xx responses.
func RequestLogger(l hclog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				args := []interface{}{
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
				}
				if id := middleware.GetReqID(r.Context()); id != "" {
					args = append(args, "request_id", id)
				}
				switch {
				case status >= 500:
					l.Error("request", args...)
				case status >= 400:
					l.Warn("request", args...)
				default:
					l.Debug("request", args...)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
