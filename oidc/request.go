// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/text/language"
)

// Request basically represents one OIDC authentication flow for a user. It
// contains the data needed to uniquely represent that one-time flow across the
// multiple interactions needed to complete the OIDC flow the user is
// attempting.
//
// State() is passed throughout the OIDC interactions to uniquely identify the
// flow's request. The State() and Nonce() cannot be equal, and will be used
// during the OIDC flow to prevent CSRF and replay attacks.
type Request interface {
	// State is a unique identifier and an opaque value used to maintain
	// request between the oidc request and the callback. State cannot equal
	// the Nonce.
	State() string

	// Nonce is a unique nonce and a string value used to associate a Client
	// session with an ID Token, and to mitigate replay attacks. Nonce cannot
	// equal the State.
	Nonce() string

	// PKCEVerifier is the code verifier sent with the code exchange. Its S256
	// challenge is sent with the authentication request.
	PKCEVerifier() string

	// UILocales optionally specifies End-User's preferred languages via
	// the "ui_locales" parameter.
	UILocales() []language.Tag

	// IsExpired returns true if the request has expired.
	IsExpired() bool
}

// Req represents the oidc request used for oidc flows and implements the
// Request interface.
type Req struct {
	state        string
	nonce        string
	pkceVerifier string
	uiLocales    []language.Tag

	// expiration is the expiration time for the Request.
	expiration time.Time

	// nowFunc is an optional function that returns the current time
	nowFunc func() time.Time
}

// ensure that Req implements the Request interface
var _ Request = (*Req)(nil)

// NewRequest creates a new Request (*Req).
//
// Supported options: WithState, WithNonce, WithUILocales, WithNow
func NewRequest(expireIn time.Duration, opt ...Option) (*Req, error) {
	const op = "oidc.NewRequest"
	opts := getReqOpts(opt...)
	if expireIn <= 0 {
		return nil, fmt.Errorf("%s: expireIn not greater than zero: %w", op, ErrInvalidParameter)
	}

	nonce := opts.withNonce
	if nonce == "" {
		var err error
		if nonce, err = NewID(WithPrefix("n")); err != nil {
			return nil, fmt.Errorf("%s: unable to generate a request's nonce: %w", op, err)
		}
	}

	state := opts.withState
	if state == "" {
		var err error
		if state, err = NewID(WithPrefix("st")); err != nil {
			return nil, fmt.Errorf("%s: unable to generate a request's state: %w", op, err)
		}
	}
	if state == nonce {
		return nil, fmt.Errorf("%s: state and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}

	r := &Req{
		state:        state,
		nonce:        nonce,
		pkceVerifier: oauth2.GenerateVerifier(),
		uiLocales:    opts.withUILocales,
		nowFunc:      opts.withNowFunc,
	}
	r.expiration = r.now().Add(expireIn)
	return r, nil
}

// State implements the Request.State() interface function.
func (r *Req) State() string { return r.state }

// Nonce implements the Request.Nonce() interface function.
func (r *Req) Nonce() string { return r.nonce }

// PKCEVerifier implements the Request.PKCEVerifier() interface function.
func (r *Req) PKCEVerifier() string { return r.pkceVerifier }

// UILocales implements the Request.UILocales() interface function.
func (r *Req) UILocales() []language.Tag { return r.uiLocales }

// IsExpired returns true if the request has expired.
func (r *Req) IsExpired() bool {
	return !r.expiration.After(r.now())
}

// Expiration returns the time the request expires.
func (r *Req) Expiration() time.Time { return r.expiration }

// now returns the current time using the optional timeFn
func (r *Req) now() time.Time {
	if r.nowFunc != nil {
		return r.nowFunc()
	}
	return time.Now() // fallback to this default
}

// reqOptions is the set of available options for Req functions
type reqOptions struct {
	withState     string
	withNonce     string
	withUILocales []language.Tag
	withNowFunc   func() time.Time
}

// reqDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func reqDefaults() reqOptions {
	return reqOptions{}
}

// getReqOpts gets the request defaults and applies the opt overrides passed in
func getReqOpts(opt ...Option) reqOptions {
	opts := reqDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithState optionally specifies a value to use for the request's state.
// Typically, state is a random string generated for you when you create
// a new Request.
func WithState(s string) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withState = s
		}
	}
}

// WithNonce optionally specifies a value to use for the request's nonce.
// Typically, nonce is a random string generated for you when you create
// a new Request.
func WithNonce(n string) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withNonce = n
		}
	}
}

// WithUILocales optionally specifies End-User's preferred languages via
// the "ui_locales" parameter, as a list of language tag values, ordered by
// preference.
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*reqOptions); ok {
			o.withUILocales = locales
		}
	}
}
