// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
	"golang.org/x/oauth2"
)

// IDToken is an oidc id_token.
type IDToken string

// RedactedIDToken is the redacted string or json for an oidc id_token.
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token.
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token.
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// Claims retrieves the IDToken claims without verifying them. Use
// Client.VerifyIDToken for tokens that were not just verified by Exchange.
func (t IDToken) Claims(claims interface{}) error {
	const op = "IDToken.Claims"
	if len(t) == 0 {
		return fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	return UnmarshalClaims(string(t), claims)
}

// AccessToken is an oauth access_token.
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token.
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token.
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token.
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// RefreshToken is an oauth refresh_token.
type RefreshToken string

// RedactedRefreshToken is the redacted string or json for an oauth refresh_token.
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token.
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON will redact the token.
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}

// Token is the result of a successful code exchange: an oidc id_token and
// an oauth access_token, plus an optional refresh_token.
type Token struct {
	idToken      IDToken
	accessToken  AccessToken
	refreshToken RefreshToken
	expiry       time.Time
	nowFunc      func() time.Time
}

// NewToken creates a new Token. The idToken is required and the
// *oauth2.Token must carry an access_token.
//
// Supported options: WithNow
func NewToken(i IDToken, t *oauth2.Token, opt ...Option) (*Token, error) {
	const op = "NewToken"
	if i == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrMissingIDToken)
	}
	if t == nil {
		return nil, fmt.Errorf("%s: oauth2 token is nil: %w", op, ErrNilParameter)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAccessToken)
	}
	opts := getTokenOpts(opt...)
	return &Token{
		idToken:      i,
		accessToken:  AccessToken(t.AccessToken),
		refreshToken: RefreshToken(t.RefreshToken),
		expiry:       t.Expiry,
		nowFunc:      opts.withNowFunc,
	}, nil
}

// IDToken returns the id_token.
func (t *Token) IDToken() IDToken { return t.idToken }

// AccessToken returns the access_token.
func (t *Token) AccessToken() AccessToken { return t.accessToken }

// RefreshToken returns the refresh_token, which may be empty.
func (t *Token) RefreshToken() RefreshToken { return t.refreshToken }

// Expiry returns the access_token expiry. A zero time means no expiry was
// reported by the provider.
func (t *Token) Expiry() time.Time { return t.expiry }

// tokenExpirySkew accounts for clock differences with the provider.
const tokenExpirySkew = 10 * time.Second

// IsExpired reports whether the access_token has expired.
func (t *Token) IsExpired() bool {
	if t.expiry.IsZero() {
		return false
	}
	return t.expiry.Round(0).Before(t.now().Add(tokenExpirySkew))
}

// Valid reports whether the Token carries a non-expired access_token.
func (t *Token) Valid() bool {
	if t == nil || t.accessToken == "" {
		return false
	}
	return !t.IsExpired()
}

func (t *Token) now() time.Time {
	if t.nowFunc != nil {
		return t.nowFunc()
	}
	return time.Now()
}

// tokenOptions is the set of available options for Token functions
type tokenOptions struct {
	withNowFunc func() time.Time
}

func tokenDefaults() tokenOptions {
	return tokenOptions{}
}

func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// UnmarshalClaims will retrieve the claims from the provided raw JWT token
// without verifying its signature.
func UnmarshalClaims(rawToken string, claims interface{}) error {
	const op = "UnmarshalClaims"
	parsed, err := jwt.ParseSigned(rawToken)
	if err != nil {
		return fmt.Errorf("%s: malformed jwt: %w", op, err)
	}
	if err := parsed.UnsafeClaimsWithoutVerification(claims); err != nil {
		return fmt.Errorf("%s: unable to unmarshal jwt claims: %w", op, err)
	}
	return nil
}
