// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/seclab/oidclab/oidc"
	"golang.org/x/text/language"
)

// SPA is the configuration of the browser facing client tier.
type SPA struct {
	Authority             string        `env:"OIDC_AUTHORITY" env-default:"http://localhost:8080/realms/security-lab"`
	ClientID              string        `env:"OIDC_CLIENT_ID" env-default:"spa-unsafe"`
	ClientSecret          string        `env:"OIDC_CLIENT_SECRET" env-description:"empty for a public client"`
	RedirectURI           string        `env:"OIDC_REDIRECT_URI" env-default:"http://localhost:5173/callback"`
	PostLogoutRedirectURI string        `env:"OIDC_POST_LOGOUT_REDIRECT_URI" env-default:"http://localhost:5173/"`
	ResponseType          string        `env:"OIDC_RESPONSE_TYPE" env-default:"code" env-description:"only code is supported"`
	Scope                 string        `env:"OIDC_SCOPE" env-default:"openid profile email" env-description:"space separated"`
	IDTokenAlgorithms     []string      `env:"OIDC_ID_TOKEN_ALGORITHMS" env-default:"RS256"`
	ProviderCAPEM         string        `env:"OIDC_PROVIDER_CA_PEM"`
	UILocales             string        `env:"OIDC_UI_LOCALES" env-description:"space separated language tags, e.g. de en"`
	Addr                  string        `env:"SPA_ADDR" env-default:":5173"`
	RequestTTL            time.Duration `env:"SPA_REQUEST_TTL" env-default:"10m" env-description:"how long a login may take"`
	CookieSecure          bool          `env:"SPA_COOKIE_SECURE" env-default:"false"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	Log                   Logging
}

// LoadSPA reads and validates the client tier configuration. See
// LoadEnvFiles for envFiles.
func LoadSPA(envFiles ...string) (*SPA, error) {
	const op = "config.LoadSPA"
	var c SPA
	if err := read(&c, envFiles...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// Validate reports every problem with the configuration.
func (c *SPA) Validate() error {
	const op = "SPA.Validate"
	var result *multierror.Error
	if _, err := c.OIDCConfig(); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %s: %w", op, err, ErrInvalidConfig))
	}
	if !strings.Contains(" "+c.Scope+" ", " openid ") {
		result = multierror.Append(result, fmt.Errorf("%s: OIDC_SCOPE must contain openid: %w", op, ErrInvalidConfig))
	}
	if _, err := c.Locales(); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: OIDC_UI_LOCALES: %s: %w", op, err, ErrInvalidConfig))
	}
	if err := validateTimeout("SPA_REQUEST_TTL", c.RequestTTL); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
	}
	if err := validateTimeout("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
	}
	if err := c.Log.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Scopes returns the configured scopes.
func (c *SPA) Scopes() []string {
	return strings.Fields(c.Scope)
}

// Locales returns the preferred login page languages, in order.
func (c *SPA) Locales() ([]language.Tag, error) {
	var tags []language.Tag
	for _, f := range strings.Fields(c.UILocales) {
		tag, err := language.Parse(f)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// OIDCConfig returns the relying party configuration of the client tier.
func (c *SPA) OIDCConfig(opt ...oidc.Option) (*oidc.Config, error) {
	algs := make([]oidc.Alg, 0, len(c.IDTokenAlgorithms))
	for _, a := range trimAll(c.IDTokenAlgorithms) {
		algs = append(algs, oidc.Alg(a))
	}
	opts := []oidc.Option{
		oidc.WithScopes(c.Scopes()...),
		oidc.WithClientSecret(oidc.ClientSecret(c.ClientSecret)),
		oidc.WithPostLogoutRedirectURL(c.PostLogoutRedirectURI),
		oidc.WithProviderCA(c.ProviderCAPEM),
	}
	oc, err := oidc.NewConfig(c.Authority, c.ClientID, algs, c.RedirectURI, append(opts, opt...)...)
	if err != nil {
		return nil, err
	}
	// only "code" is accepted, which NewConfig already set
	oc.ResponseType = c.ResponseType
	if err := oc.Validate(); err != nil {
		return nil, err
	}
	return oc, nil
}
