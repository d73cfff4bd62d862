// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrTooManyRequests is returned when a remote key set would be fetched more
// often than allowed by WithRequestsPerMinute.
var ErrTooManyRequests = errors.New("too many requests to the key set endpoint")

// rateLimitedTransport refuses requests beyond a per-minute budget instead of
// queueing them. Remote key sets are only fetched for unknown key ids, so a
// flood of tokens with made up "kid" headers can't be turned into a flood of
// requests to the issuer.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func newRateLimitedTransport(next http.RoundTripper, perMinute int) *rateLimitedTransport {
	return &rateLimitedTransport{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		next:    next,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.limiter.Allow() {
		return nil, fmt.Errorf("%s: %w", req.URL.Redacted(), ErrTooManyRequests)
	}
	return t.next.RoundTrip(req)
}
