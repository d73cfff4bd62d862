// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package guard

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/hashicorp/go-hclog"
	"github.com/seclab/oidclab/jwt"
)

// Guard verifies bearer tokens against a single issuer.
type Guard struct {
	validator    *jwt.Validator
	expected     jwt.Expected
	validateOpts []jwt.Option
	logger       hclog.Logger
}

// New creates a Guard that accepts tokens signed by a key in keySet and
// issued by issuer. The issuer must match the "iss" claim exactly.
//
// Audiences are not verified unless WithVerifyAudience(true) is given, in
// which case WithAudiences is required.
//
// Supported options: WithAudiences, WithVerifyAudience,
// WithNormalizedAudiences, WithKeySets, WithSigningAlgorithms, WithLogger,
// WithNow, WithClockSkewLeeway
func New(keySet jwt.KeySet, issuer string, opt ...Option) (*Guard, error) {
	const op = "guard.New"
	if keySet == nil {
		return nil, fmt.Errorf("%s: key set is nil: %w", op, ErrNilParameter)
	}
	if issuer == "" {
		return nil, fmt.Errorf("%s: issuer is empty: %w", op, ErrInvalidParameter)
	}
	opts := getGuardOpts(opt...)
	if err := jwt.SupportedSigningAlgorithm(opts.withSigningAlgorithms...); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, ErrInvalidParameter)
	}
	if opts.withVerifyAudience && len(opts.withAudiences) == 0 {
		return nil, fmt.Errorf("%s: audience verification requires at least one audience: %w", op, ErrInvalidParameter)
	}

	validator, err := jwt.NewValidator(append([]jwt.KeySet{keySet}, opts.withKeySets...)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, err, ErrInvalidParameter)
	}

	leeway := opts.withClockSkewLeeway
	if leeway <= 0 {
		// jwt treats zero as its default leeway
		leeway = -1
	}
	expected := jwt.Expected{
		Issuer:            issuer,
		SigningAlgorithms: opts.withSigningAlgorithms,
		ClockSkewLeeway:   leeway,
		Now:               opts.withNowFunc,
	}
	var validateOpts []jwt.Option
	if opts.withVerifyAudience {
		expected.Audiences = opts.withAudiences
		if opts.withNormalizedAudiences {
			validateOpts = append(validateOpts, jwt.WithNormalizedAudiences())
		}
	}

	return &Guard{
		validator:    validator,
		expected:     expected,
		validateOpts: validateOpts,
		logger:       opts.withLogger,
	}, nil
}

// Result is the outcome of verifying one request. Exactly one of Claims and
// Err is set.
type Result struct {
	Claims map[string]interface{}
	Err    *AuthError
}

// OK reports whether the request carried an acceptable token.
func (r Result) OK() bool { return r.Err == nil }

// Verify checks the request's bearer token. Failures are logged.
func (g *Guard) Verify(r *http.Request) Result {
	token, err := BearerToken(r)
	if err != nil {
		return g.reject(r, newAuthError(err))
	}
	claims, err := g.validator.Validate(r.Context(), token, g.expected, g.validateOpts...)
	if err != nil {
		authErr := newAuthError(err)
		authErr.err = fmt.Errorf("%w: %w", ErrInvalidToken, err)
		return g.reject(r, authErr)
	}
	return Result{Claims: claims}
}

func (g *Guard) reject(r *http.Request, authErr *AuthError) Result {
	g.logger.Warn("jwt verification failed", "error", authErr.Details, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	return Result{Err: authErr}
}

// Handler only calls next for requests that pass Verify, with the verified
// claims attached to the request context. All other requests get a 401 and
// the AuthError as JSON.
func (g *Guard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.Verify(r)
		if !res.OK() {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, res.Err)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), res.Claims)))
	})
}

// BearerToken returns the token of an "Authorization: Bearer <token>"
// header. The scheme is case insensitive.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrMissingToken
	}
	parts := strings.Fields(h)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}

type claimsKey struct{}

// NewContext returns a copy of ctx carrying claims.
func NewContext(ctx context.Context, claims map[string]interface{}) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims attached by Handler, if any.
func ClaimsFromContext(ctx context.Context) (map[string]interface{}, bool) {
	claims, ok := ctx.Value(claimsKey{}).(map[string]interface{})
	return claims, ok
}
