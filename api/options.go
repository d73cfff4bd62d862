// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package api

import (
	"time"

	"github.com/hashicorp/go-hclog"
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

// serverOptions is the set of available options for a Server
type serverOptions struct {
	withLogger      hclog.Logger
	withNowFunc     func() time.Time
	withCORSOrigins []string
}

func serverDefaults() serverOptions {
	return serverOptions{
		withLogger:  hclog.NewNullLogger(),
		withNowFunc: time.Now,
	}
}

func getServerOpts(opt ...Option) serverOptions {
	opts := serverDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides a logger for requests.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithNow provides an optional func for determining what the current time
// it is.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok && now != nil {
			o.withNowFunc = now
		}
	}
}

// WithCORSOrigins allows browsers on the given origins to call the API. No
// CORS headers are sent without it.
func WithCORSOrigins(origins ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*serverOptions); ok {
			o.withCORSOrigins = origins
		}
	}
}
