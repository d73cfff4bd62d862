// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/hashicorp/go-multierror"
)

// DefaultLeeway defines the amount of leeway that's used by default when
// validating the time based claims of a JWT.
const DefaultLeeway = 150 * time.Second

// ErrMissingTimeClaims is returned when a token carries none of the "iat",
// "nbf" or "exp" claims.
var ErrMissingTimeClaims = errors.New("no issued at (iat), not before (nbf), or expiration time (exp) claims in token")

// Validator validates JSON Web Tokens (JWT) by providing signature
// verification and claims set validation.
type Validator struct {
	keySets []KeySet
}

// NewValidator returns a Validator that uses the given KeySets to verify JWT signatures.
// A token is accepted if any one of the key sets verifies its signature.
func NewValidator(keySets ...KeySet) (*Validator, error) {
	if len(keySets) == 0 {
		return nil, errors.New("keySets must not be empty")
	}
	for _, ks := range keySets {
		if ks == nil {
			return nil, errors.New("keySets must not contain a nil KeySet")
		}
	}

	return &Validator{
		keySets: keySets,
	}, nil
}

// Expected defines the expected claims values to assert when validating a JWT.
// For claims that involve validation of the JWT with respect to time, leeway
// fields are provided to account for potential clock skew.
type Expected struct {
	// The expected JWT "iss" (issuer) claim value. If empty, validation is skipped.
	Issuer string

	// The list of expected JWT "aud" (audience) claim values to match against.
	// The JWT claim will be considered valid if it matches any of the expected
	// audiences. If empty, validation is skipped.
	Audiences []string

	// SigningAlgorithms provides the list of expected JWS "alg" (algorithm) header
	// parameter values to match against. The JWS header parameter will be considered
	// valid if it matches any of the expected signing algorithms. The following
	// algorithms are supported: RS256, RS384, RS512, ES256, ES384, ES512, PS256,
	// PS384, PS512, EdDSA. If empty, defaults to RS256.
	SigningAlgorithms []Alg

	// ClockSkewLeeway defines the amount of leeway allowed when comparing "now"
	// against the time based claims. Zero means DefaultLeeway, negative means
	// no leeway.
	ClockSkewLeeway time.Duration

	// Now provides the current time used during time based validation. If nil,
	// defaults to time.Now.
	Now func() time.Time
}

// Validate validates JWTs of the JWS compact serialization form.
//
// The given JWT is considered valid if:
//  1. Its signature is successfully verified.
//  2. Its claims set and header parameter values match what's given by Expected.
//  3. It's valid with respect to the current time. This means that the current
//     time must be within the times (inclusive) given by the "nbf" (Not Before)
//     and "exp" (Expiration Time) claims and after the time given by the "iat"
//     (Issued At) claim, with configurable leeway.
//
// The verified claims are returned whenever the signature check passes, even
// if a later assertion fails, so callers can log what was presented.
func (v *Validator) Validate(ctx context.Context, token string, expected Expected, opt ...Option) (map[string]interface{}, error) {
	// First, verify the signature to ensure subsequent validation is against verified claims
	allClaims, err := v.verifySignature(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error verifying token signature: %w", err)
	}

	// Validate the signing algorithm in the JWS header
	if err := validateSigningAlgorithm(token, expected.SigningAlgorithms); err != nil {
		return allClaims, fmt.Errorf("invalid algorithm (alg) header parameter: %w", err)
	}

	// Unmarshal all claims into the set of public JWT registered claims
	claims := jwt.Claims{}
	claimsJSON, err := json.Marshal(allClaims)
	if err != nil {
		return allClaims, err
	}
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return allClaims, err
	}

	if claims.IssuedAt == nil && claims.NotBefore == nil && claims.Expiry == nil {
		return allClaims, ErrMissingTimeClaims
	}

	// A token without "exp" expires DefaultLeeway after it became valid.
	if claims.Expiry == nil {
		latestStart := claims.IssuedAt
		if latestStart == nil || (claims.NotBefore != nil && *claims.NotBefore > *latestStart) {
			latestStart = claims.NotBefore
		}
		claims.Expiry = jwt.NewNumericDate(latestStart.Time().Add(DefaultLeeway))
	}

	now := time.Now
	if expected.Now != nil {
		now = expected.Now
	}

	// Validate claims by asserting they're as expected
	if err := claims.ValidateWithLeeway(jwt.Expected{
		Issuer: expected.Issuer,
		Time:   now(),
	}, leeway(expected.ClockSkewLeeway)); err != nil {
		return allClaims, err
	}

	opts := getConfigOpts(opt...)
	audiences := expected.Audiences
	if opts.withNormalizedAudiences {
		audiences = normalizeList(audiences)
	}
	if err := validateAudience(audiences, claims.Audience); err != nil {
		return allClaims, fmt.Errorf("invalid audience (aud) claim: %w", err)
	}

	return allClaims, nil
}

// verifySignature tries every key set in order and returns the claims from
// the first one that verifies the token. All failures are reported together.
func (v *Validator) verifySignature(ctx context.Context, token string) (map[string]interface{}, error) {
	var result error
	for _, ks := range v.keySets {
		claims, err := ks.VerifySignature(ctx, token)
		if err == nil {
			return claims, nil
		}
		result = multierror.Append(result, err)
	}
	if me, ok := result.(*multierror.Error); ok && len(me.Errors) == 1 {
		return nil, me.Errors[0]
	}
	return nil, result
}

func leeway(d time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case d == 0:
		return DefaultLeeway
	default:
		return d
	}
}

// validateSigningAlgorithm checks whether the JWS "alg" (Algorithm) header
// parameter value for the given JWT matches any given in expectedAlgorithms.
// If expectedAlgorithms is empty, RS256 will be expected by default.
func validateSigningAlgorithm(token string, expectedAlgorithms []Alg) error {
	if err := SupportedSigningAlgorithm(expectedAlgorithms...); err != nil {
		return err
	}

	jws, err := jose.ParseSigned(token)
	if err != nil {
		return err
	}

	if len(jws.Signatures) == 0 {
		return errors.New("token must be signed")
	}
	if len(jws.Signatures) != 1 {
		return errors.New("token with multiple signatures not supported")
	}

	if len(expectedAlgorithms) == 0 {
		expectedAlgorithms = []Alg{RS256}
	}

	actual := Alg(jws.Signatures[0].Header.Algorithm)
	for _, expected := range expectedAlgorithms {
		if expected == actual {
			return nil
		}
	}

	return fmt.Errorf("token signed with unexpected algorithm %q", actual)
}

// validateAudience returns an error if audClaim does not contain any audiences
// given by expectedAudiences. If expectedAudiences is empty, it skips validation
// and returns nil.
func validateAudience(expectedAudiences, audClaim []string) error {
	if len(expectedAudiences) == 0 {
		return nil
	}

	for _, v := range expectedAudiences {
		if contains(audClaim, v) {
			return nil
		}
	}

	return errors.New("audience claim does not match any expected audience")
}

func contains(sl []string, st string) bool {
	for _, s := range sl {
		if s == st {
			return true
		}
	}
	return false
}

func normalizeList(auds []string) []string {
	normalized := make([]string, 0, len(auds))
	for _, a := range auds {
		normalized = append(normalized, strings.TrimSuffix(a, "/"))
	}
	return normalized
}
