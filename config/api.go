// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/seclab/oidclab/jwt"
)

// KeycloakCertsPath is the realm relative path of Keycloak's JWKS endpoint.
const KeycloakCertsPath = "/protocol/openid-connect/certs"

// API is the configuration of the API tier.
type API struct {
	Issuer          string        `env:"KEYCLOAK_ISSUER" env-required:"true" env-description:"issuer URL, e.g. http://localhost:8080/realms/security-lab"`
	Addr            string        `env:"API_ADDR" env-default:":3000" env-description:"listen address"`
	Algorithms      []string      `env:"JWT_ALGORITHMS" env-default:"RS256" env-description:"accepted JWS algorithms, comma separated"`
	VerifyAudience  bool          `env:"JWT_VERIFY_AUDIENCE" env-default:"false" env-description:"reject tokens without one of JWT_AUDIENCES"`
	Audiences          []string      `env:"JWT_AUDIENCES" env-description:"accepted audiences, comma separated"`
	NormalizeAudiences bool          `env:"JWT_NORMALIZE_AUDIENCES" env-default:"false" env-description:"ignore a trailing slash when comparing audiences"`
	ClockSkew          time.Duration `env:"JWT_CLOCK_SKEW" env-default:"0s" env-description:"leeway for exp, nbf and iat"`
	PublicKeysPEM      string        `env:"JWT_PUBLIC_KEYS_PEM" env-description:"PEM encoded public keys; used instead of the JWKS unless JWKS_URL or JWKS_DISCOVERY is set"`
	JWKSURL            string        `env:"JWKS_URL" env-description:"defaults to the issuer's Keycloak certs endpoint"`
	JWKSDiscovery      bool          `env:"JWKS_DISCOVERY" env-default:"false" env-description:"find the JWKS through the issuer's discovery document"`
	JWKSCAPEM          string        `env:"JWKS_CA_PEM" env-description:"PEM encoded CA for the JWKS and discovery endpoints"`
	JWKSRateLimit      int           `env:"JWKS_REQUESTS_PER_MINUTE" env-default:"5" env-description:"0 disables the limit"`
	CORSOrigins        []string      `env:"API_CORS_ORIGINS" env-default:"http://localhost:5173" env-description:"allowed browser origins, comma separated"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	Log                Logging
}

// LoadAPI reads and validates the API configuration. See LoadEnvFiles for
// envFiles.
func LoadAPI(envFiles ...string) (*API, error) {
	const op = "config.LoadAPI"
	var c API
	if err := read(&c, envFiles...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// Validate reports every problem with the configuration.
func (c *API) Validate() error {
	const op = "API.Validate"
	var result *multierror.Error
	if c.Issuer == "" {
		result = multierror.Append(result, fmt.Errorf("%s: KEYCLOAK_ISSUER is empty: %w", op, ErrInvalidConfig))
	} else if err := validateURL("KEYCLOAK_ISSUER", c.Issuer); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
	}
	if c.JWKSURL != "" {
		if err := validateURL("JWKS_URL", c.JWKSURL); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
		}
		if c.JWKSDiscovery {
			result = multierror.Append(result, fmt.Errorf("%s: JWKS_URL and JWKS_DISCOVERY are mutually exclusive: %w", op, ErrInvalidConfig))
		}
	}
	if _, err := c.PublicKeys(); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: JWT_PUBLIC_KEYS_PEM: %s: %w", op, err, ErrInvalidConfig))
	}
	if c.ClockSkew < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: JWT_CLOCK_SKEW is negative: %w", op, ErrInvalidConfig))
	}
	if _, err := c.SigningAlgorithms(); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: JWT_ALGORITHMS: %s: %w", op, err, ErrInvalidConfig))
	}
	if c.VerifyAudience && len(c.Audiences) == 0 {
		result = multierror.Append(result, fmt.Errorf("%s: JWT_VERIFY_AUDIENCE requires JWT_AUDIENCES: %w", op, ErrInvalidConfig))
	}
	if c.JWKSRateLimit < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: JWKS_REQUESTS_PER_MINUTE is negative: %w", op, ErrInvalidConfig))
	}
	if err := validateTimeout("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", op, err))
	}
	if err := c.Log.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// JWKSEndpoint returns JWKS_URL, or the Keycloak certs endpoint of the
// issuer when it isn't set.
func (c *API) JWKSEndpoint() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return strings.TrimSuffix(c.Issuer, "/") + KeycloakCertsPath
}

// RemoteKeySet reports whether keys are fetched from the JWKS endpoint.
func (c *API) RemoteKeySet() bool {
	return c.PublicKeysPEM == "" || c.JWKSURL != "" || c.JWKSDiscovery
}

// PublicKeys splits JWT_PUBLIC_KEYS_PEM into one PEM block per key. Every
// block must hold a supported public key.
func (c *API) PublicKeys() ([]string, error) {
	var keys []string
	rest := []byte(strings.TrimSpace(c.PublicKeysPEM))
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("no PEM block found in %q", truncate(string(rest), 20))
		}
		encoded := string(pem.EncodeToMemory(block))
		if _, err := jwt.ParsePublicKeyPEM([]byte(encoded)); err != nil {
			return nil, err
		}
		keys = append(keys, encoded)
		rest = []byte(strings.TrimSpace(string(rest)))
	}
	return keys, nil
}

// SigningAlgorithms returns the accepted algorithms, RS256 when none are
// configured.
func (c *API) SigningAlgorithms() ([]jwt.Alg, error) {
	if len(c.Algorithms) == 0 {
		return []jwt.Alg{jwt.RS256}, nil
	}
	return jwt.ParseAlgs(trimAll(c.Algorithms)...)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
