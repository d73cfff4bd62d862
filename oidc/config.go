// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"
)

// ClientSecret is an oauth client Secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// ResponseTypeCode is the only response type this client speaks: the
// authorization code flow.
const ResponseTypeCode = "code"

// Config represents the configuration for an OIDC relying party using the
// authorization code flow. A Config is immutable once a Client has been
// created from it.
type Config struct {
	// ClientID is the relying party ID.
	ClientID string

	// ClientSecret is the relying party secret. It is empty for public
	// (browser) clients, which rely on PKCE instead.
	ClientSecret ClientSecret

	// Authority is the issuer URL of the provider, for example
	// "http://localhost:8080/realms/security-lab". It contains scheme, host,
	// and optionally port number and path components and no query or
	// fragment components.
	Authority string

	// RedirectURL is the URL the provider sends the browser back to with an
	// authorization code.
	RedirectURL string

	// PostLogoutRedirectURL is the URL the provider sends the browser back
	// to after logout. Optional.
	PostLogoutRedirectURL string

	// ResponseType must be "code".
	ResponseType string

	// Scopes is the list of scopes to request. The required "openid" scope
	// is always requested, whether or not it is part of this list.
	Scopes []string

	// SupportedSigningAlgs is a list of supported signing algorithms for the
	// id_token.
	SupportedSigningAlgs []Alg

	// ProviderCA is an optional CA certs (PEM encoded) to use when sending
	// requests to the provider.
	ProviderCA string

	// NowFunc is a time func that returns the current time.
	NowFunc func() time.Time
}

// NewConfig composes a new config for a relying party.
//
// The "openid" scope is always requested and doesn't need to be part of the
// WithScopes option.
//
// Supported options: WithClientSecret, WithScopes, WithPostLogoutRedirectURL,
// WithProviderCA, WithNow
func NewConfig(authority string, clientID string, supported []Alg, redirectURL string, opt ...Option) (*Config, error) {
	const op = "NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Authority:             authority,
		ClientID:              clientID,
		ClientSecret:          opts.withClientSecret,
		SupportedSigningAlgs:  supported,
		RedirectURL:           redirectURL,
		PostLogoutRedirectURL: opts.withPostLogoutRedirectURL,
		ResponseType:          ResponseTypeCode,
		Scopes:                opts.withScopes,
		ProviderCA:            opts.withProviderCA,
		NowFunc:               opts.withNowFunc,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid provider config: %w", op, err)
	}
	return c, nil
}

// Validate the client configuration. Among other validations, it verifies
// the authority is not empty, but it doesn't verify the authority is
// discoverable via an http request. Every problem found is reported.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client ID is empty: %w", op, ErrInvalidParameter))
	}
	if c.Authority == "" {
		result = multierror.Append(result, fmt.Errorf("%s: authority is empty: %w", op, ErrInvalidParameter))
	} else if err := validateURL(c.Authority); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: authority %q: %w", op, c.Authority, err))
	}
	if c.RedirectURL == "" {
		result = multierror.Append(result, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter))
	} else if err := validateURL(c.RedirectURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: redirect URL %q: %w", op, c.RedirectURL, err))
	}
	if c.PostLogoutRedirectURL != "" {
		if err := validateURL(c.PostLogoutRedirectURL); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: post logout redirect URL %q: %w", op, c.PostLogoutRedirectURL, err))
		}
	}
	if c.ResponseType != ResponseTypeCode {
		result = multierror.Append(result, fmt.Errorf("%s: response type %q: %w", op, c.ResponseType, ErrUnsupportedResponseType))
	}
	if len(c.SupportedSigningAlgs) == 0 {
		result = multierror.Append(result, fmt.Errorf("%s: supported algorithms is empty: %w", op, ErrInvalidParameter))
	}
	for _, a := range c.SupportedSigningAlgs {
		if !supportedAlgorithms[a] {
			result = multierror.Append(result, fmt.Errorf("%s: unsupported algorithm %q: %w", op, a, ErrInvalidParameter))
		}
	}
	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			result = multierror.Append(result, fmt.Errorf("%s: %w", op, ErrInvalidCACert))
		}
	}
	return result.ErrorOrNil()
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%s: %w", err, ErrInvalidParameter)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme is not http or https: %w", ErrInvalidParameter)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty: %w", ErrInvalidParameter)
	}
	return nil
}

// Now will return the current time which can be overridden by the NowFunc.
func (c *Config) Now() time.Time {
	if c.NowFunc != nil {
		return c.NowFunc()
	}
	return time.Now() // fallback to this default
}

// HTTPClient returns a new http client for the provider, trusting ProviderCA
// when it is set and the system roots otherwise.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	tr := cleanhttp.DefaultPooledTransport()
	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCACert)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}
	return &http.Client{
		Transport: tr,
	}, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	// simple to implement as a wrapper for the coreos package
	return oidc.ClientContext(ctx, client)
}

// configOptions is the set of available options
type configOptions struct {
	withClientSecret          ClientSecret
	withScopes                []string
	withPostLogoutRedirectURL string
	withProviderCA            string
	withNowFunc               func() time.Time
}

// configDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithClientSecret provides an optional client secret for confidential
// clients.
func WithClientSecret(secret ClientSecret) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withClientSecret = secret
		}
	}
}

// WithScopes provides an optional list of scopes.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithPostLogoutRedirectURL provides an optional URL the provider redirects
// to after logout.
func WithPostLogoutRedirectURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPostLogoutRedirectURL = u
		}
	}
}

// WithProviderCA provides optional CA certs (PEM encoded) for the provider's
// config. These certs will can be used when making http requests to the
// provider.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}
