// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package spa

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/language"
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

// DefaultRequestTTL is how long a login may take when WithRequestTTL isn't
// given.
const DefaultRequestTTL = 10 * time.Minute

// serverOptions is the set of available options for a Server
type serverOptions struct {
	withLogger        hclog.Logger
	withRequestTTL    time.Duration
	withUILocales     []language.Tag
	withSecureCookies bool
	withNowFunc       func() time.Time
}

func serverDefaults() serverOptions {
	return serverOptions{
		withLogger:     hclog.NewNullLogger(),
		withRequestTTL: DefaultRequestTTL,
	}
}

func getServerOpts(opt ...Option) serverOptions {
	opts := serverDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides a logger for the server.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithRequestTTL sets how long a started login stays valid.
func WithRequestTTL(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && d > 0 {
			o.withRequestTTL = d
		}
	}
}

// WithUILocales asks the provider to render its login page in the given
// languages, ordered by preference.
func WithUILocales(locales ...language.Tag) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withUILocales = locales
		}
	}
}

// WithSecureCookies marks the session cookie Secure. Use it whenever the
// client tier is served over https.
func WithSecureCookies(secure bool) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withSecureCookies = secure
		}
	}
}

// WithNow provides an optional func for determining what the current time
// it is.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withNowFunc = now
		}
	}
}
