// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package guard

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/seclab/oidclab/jwt"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// guardOptions is the set of available options for a Guard
type guardOptions struct {
	withAudiences           []string
	withVerifyAudience      bool
	withNormalizedAudiences bool
	withKeySets             []jwt.KeySet
	withSigningAlgorithms   []jwt.Alg
	withLogger              hclog.Logger
	withNowFunc             func() time.Time
	withClockSkewLeeway     time.Duration
}

// guardDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func guardDefaults() guardOptions {
	return guardOptions{
		withSigningAlgorithms: []jwt.Alg{jwt.RS256},
		withLogger:            hclog.NewNullLogger(),
	}
}

// getGuardOpts gets the guard defaults and applies the opt overrides passed
// in
func getGuardOpts(opt ...Option) guardOptions {
	opts := guardDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithAudiences provides the audiences a token must carry (any one of) when
// audience verification is enabled.
func WithAudiences(auds ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*guardOptions); ok {
			o.withAudiences = auds
		}
	}
}

// WithVerifyAudience turns audience verification on or off. It is off
// unless this option is given with true.
func WithVerifyAudience(verify bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*guardOptions); ok {
			o.withVerifyAudience = verify
		}
	}
}

// WithNormalizedAudiences ignores a trailing slash on the expected
// audiences, so "https://api.example.com/" matches "https://api.example.com".
func WithNormalizedAudiences(normalize bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*guardOptions); ok {
			o.withNormalizedAudiences = normalize
		}
	}
}

// WithKeySets provides more key sets, tried in order after the one given to
// New when it can't verify a token's signature.
func WithKeySets(keySets ...jwt.KeySet) Option {
	return func(o interface{}) {
		if o, ok := o.(*guardOptions); ok {
			o.withKeySets = keySets
		}
	}
}

// WithSigningAlgorithms provides the accepted JWS "alg" values. Defaults to
// RS256.
func WithSigningAlgorithms(algs ...jwt.Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*guardOptions); ok && len(algs) > 0 {
			o.withSigningAlgorithms = algs
		}
	}
}

// WithLogger provides a logger for rejected requests.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*guardOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithNow provides an optional func for determining what the current time
// it is.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*guardOptions); ok {
			o.withNowFunc = now
		}
	}
}

// WithClockSkewLeeway sets the leeway allowed when checking the time based
// claims. There is no leeway unless this option is given a positive value.
func WithClockSkewLeeway(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*guardOptions); ok {
			o.withClockSkewLeeway = d
		}
	}
}
