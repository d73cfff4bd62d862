// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/seclab/oidclab/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	priv  *rsa.PrivateKey
	priv2 *rsa.PrivateKey
)

func init() {
	// Keys used to sign JWTs throughout most test cases. Generated once
	// since RSA key generation can be slow.
	var err error
	priv, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	priv2, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
}

// TestValidator_Validate_Valid_JWT tests cases where a JWT is expected to be valid.
func TestValidator_Validate_Valid_JWT(t *testing.T) {
	tp := oidc.StartTestProvider(t)
	tp.SetSigningKeys(priv, priv.Public(), oidc.RS256, testKeyID)

	keySet, err := NewOIDCDiscoveryKeySet(context.Background(), tp.Issuer(), tp.CACert())
	require.NoError(t, err)

	now := time.Now()
	nowUnix := float64(now.Unix())
	pastUnix := float64(now.Add(-2 * DefaultLeeway).Unix())
	futureUnix := float64(now.Add(2 * DefaultLeeway).Unix())

	tests := []struct {
		name     string
		claims   map[string]interface{}
		alg      Alg
		expected Expected
		opts     []Option
	}{
		{
			name:     "valid jwt with assertion on issuer claim",
			claims:   map[string]interface{}{"iss": tp.Issuer(), "iat": nowUnix, "exp": futureUnix},
			expected: Expected{Issuer: tp.Issuer()},
		},
		{
			name:     "valid jwt with assertion on audience claim",
			claims:   map[string]interface{}{"aud": []interface{}{"www.example.com", "www.other.com"}, "iat": nowUnix, "exp": futureUnix},
			expected: Expected{Audiences: []string{"www.other.com"}},
		},
		{
			name:     "valid jwt with string audience claim",
			claims:   map[string]interface{}{"aud": "account", "iat": nowUnix, "exp": futureUnix},
			expected: Expected{Audiences: []string{"api", "account"}},
		},
		{
			name:     "valid jwt with normalized audiences",
			claims:   map[string]interface{}{"aud": "https://api.example.com", "iat": nowUnix, "exp": futureUnix},
			expected: Expected{Audiences: []string{"https://api.example.com/"}},
			opts:     []Option{WithNormalizedAudiences()},
		},
		{
			name:     "audience not asserted when no audiences expected",
			claims:   map[string]interface{}{"aud": "someone-else", "iat": nowUnix, "exp": futureUnix},
			expected: Expected{},
		},
		{
			name:     "valid jwt with only iat",
			claims:   map[string]interface{}{"iat": nowUnix},
			expected: Expected{},
		},
		{
			name:     "valid jwt with only nbf",
			claims:   map[string]interface{}{"nbf": nowUnix},
			expected: Expected{},
		},
		{
			name:     "valid jwt with only exp",
			claims:   map[string]interface{}{"exp": futureUnix},
			expected: Expected{},
		},
		{
			name:     "valid jwt with exp within clock skew leeway",
			claims:   map[string]interface{}{"iat": pastUnix, "exp": float64(now.Add(-DefaultLeeway / 2).Unix())},
			expected: Expected{},
		},
		{
			name:     "valid jwt with expected signing algorithm",
			claims:   map[string]interface{}{"iat": nowUnix, "exp": futureUnix},
			alg:      PS256,
			expected: Expected{SigningAlgorithms: []Alg{RS256, PS256}},
		},
		{
			name:   "valid jwt with all assertions",
			claims: map[string]interface{}{"iss": tp.Issuer(), "sub": "alice", "jti": "id", "aud": "account", "iat": nowUnix, "nbf": nowUnix, "exp": futureUnix},
			expected: Expected{
				Issuer:            tp.Issuer(),
				Audiences:         []string{"account"},
				SigningAlgorithms: []Alg{RS256},
				Now:               func() time.Time { return now },
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			alg := tt.alg
			if alg == "" {
				alg = RS256
			}
			token := oidc.TestSignJWT(t, priv, string(alg), tt.claims, []byte(testKeyID))

			validator, err := NewValidator(keySet)
			require.NoError(err)
			got, err := validator.Validate(context.Background(), token, tt.expected, tt.opts...)
			require.NoError(err)
			assert.Equal(tt.claims, got)
		})
	}
}

// TestValidator_Validate_Invalid_JWT tests cases where a JWT is expected to be invalid.
func TestValidator_Validate_Invalid_JWT(t *testing.T) {
	tp := oidc.StartTestProvider(t)
	tp.SetSigningKeys(priv, priv.Public(), oidc.RS256, testKeyID)

	keySet, err := NewJSONWebKeySet(context.Background(), tp.JWKSURL(), tp.CACert())
	require.NoError(t, err)

	now := time.Now()
	nowUnix := float64(now.Unix())
	pastUnix := float64(now.Add(-2 * DefaultLeeway).Unix())
	futureUnix := float64(now.Add(2 * DefaultLeeway).Unix())

	tests := []struct {
		name            string
		claims          map[string]interface{}
		key             crypto.PrivateKey
		alg             Alg
		expected        Expected
		wantClaims      bool
		wantErrContains string
	}{
		{
			name:            "signed by an unknown key",
			claims:          map[string]interface{}{"iss": tp.Issuer(), "iat": nowUnix, "exp": futureUnix},
			key:             priv2,
			expected:        Expected{Issuer: tp.Issuer()},
			wantErrContains: "signature",
		},
		{
			name:            "issuer mismatch",
			claims:          map[string]interface{}{"iss": "https://evil.example.com/", "iat": nowUnix, "exp": futureUnix},
			expected:        Expected{Issuer: tp.Issuer()},
			wantClaims:      true,
			wantErrContains: "issuer",
		},
		{
			name:            "audience mismatch",
			claims:          map[string]interface{}{"aud": "account", "iat": nowUnix, "exp": futureUnix},
			expected:        Expected{Audiences: []string{"api"}},
			wantClaims:      true,
			wantErrContains: "audience",
		},
		{
			name:            "expired",
			claims:          map[string]interface{}{"iat": pastUnix, "exp": pastUnix},
			expected:        Expected{},
			wantClaims:      true,
			wantErrContains: "expired",
		},
		{
			name:            "expired without leeway",
			claims:          map[string]interface{}{"iat": pastUnix, "exp": float64(now.Add(-5 * time.Second).Unix())},
			expected:        Expected{ClockSkewLeeway: -1},
			wantClaims:      true,
			wantErrContains: "expired",
		},
		{
			name:            "not yet valid",
			claims:          map[string]interface{}{"nbf": futureUnix, "exp": float64(now.Add(4 * DefaultLeeway).Unix())},
			expected:        Expected{},
			wantClaims:      true,
			wantErrContains: "not valid yet",
		},
		{
			name:            "derived expiry from iat has passed",
			claims:          map[string]interface{}{"iat": float64(now.Add(-time.Hour).Unix())},
			expected:        Expected{},
			wantClaims:      true,
			wantErrContains: "expired",
		},
		{
			name:            "no time claims",
			claims:          map[string]interface{}{"iss": tp.Issuer()},
			expected:        Expected{},
			wantClaims:      true,
			wantErrContains: ErrMissingTimeClaims.Error(),
		},
		{
			name:            "unexpected signing algorithm",
			claims:          map[string]interface{}{"iat": nowUnix, "exp": futureUnix},
			expected:        Expected{SigningAlgorithms: []Alg{ES256}},
			wantClaims:      true,
			wantErrContains: "algorithm",
		},
		{
			name:            "unsupported expected signing algorithm",
			claims:          map[string]interface{}{"iat": nowUnix, "exp": futureUnix},
			expected:        Expected{SigningAlgorithms: []Alg{"HS256"}},
			wantClaims:      true,
			wantErrContains: "unsupported signing algorithm",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			key := tt.key
			if key == nil {
				key = priv
			}
			alg := tt.alg
			if alg == "" {
				alg = RS256
			}
			token := oidc.TestSignJWT(t, key, string(alg), tt.claims, []byte(testKeyID))

			validator, err := NewValidator(keySet)
			require.NoError(err)
			got, err := validator.Validate(context.Background(), token, tt.expected)
			require.Error(err)
			assert.Contains(err.Error(), tt.wantErrContains)
			if tt.wantClaims {
				assert.Equal(tt.claims, got)
			} else {
				assert.Nil(got)
			}
		})
	}

	t.Run("malformed token", func(t *testing.T) {
		validator, err := NewValidator(keySet)
		require.NoError(t, err)
		_, err = validator.Validate(context.Background(), "not-a-token", Expected{})
		require.Error(t, err)
	})
}

func TestNewValidator(t *testing.T) {
	keySet, err := NewStaticKeySet([]crypto.PublicKey{priv.Public()})
	require.NoError(t, err)

	tests := []struct {
		name    string
		keySets []KeySet
		wantErr bool
	}{
		{"new validator with one key set", []KeySet{keySet}, false},
		{"new validator with many key sets", []KeySet{keySet, keySet}, false},
		{"new validator with no key sets", nil, true},
		{"new validator with a nil key set", []KeySet{keySet, nil}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewValidator(tt.keySets...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
		})
	}
}

func TestValidator_MultipleKeySets(t *testing.T) {
	tp := oidc.StartTestProvider(t)
	tp.SetSigningKeys(priv, priv.Public(), oidc.RS256, testKeyID)

	remote, err := NewJSONWebKeySet(context.Background(), tp.JWKSURL(), tp.CACert())
	require.NoError(t, err)
	static, err := NewStaticKeySet([]crypto.PublicKey{priv2.Public()})
	require.NoError(t, err)

	validator, err := NewValidator(remote, static)
	require.NoError(t, err)

	claims := map[string]interface{}{
		"iat": float64(time.Now().Unix()),
		"exp": float64(time.Now().Add(time.Minute).Unix()),
	}

	t.Run("first key set verifies", func(t *testing.T) {
		_, err := validator.Validate(context.Background(), oidc.TestSignJWT(t, priv, string(RS256), claims, []byte(testKeyID)), Expected{})
		require.NoError(t, err)
	})
	t.Run("second key set verifies", func(t *testing.T) {
		_, err := validator.Validate(context.Background(), oidc.TestSignJWT(t, priv2, string(RS256), claims, []byte("other")), Expected{})
		require.NoError(t, err)
	})
	t.Run("no key set verifies and every failure is reported", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = validator.Validate(context.Background(), oidc.TestSignJWT(t, other, string(RS256), claims, []byte(testKeyID)), Expected{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 errors occurred")
	})
}

func Test_validateAudience(t *testing.T) {
	tests := []struct {
		name              string
		expectedAudiences []string
		audClaim          []string
		wantErr           bool
	}{
		{"skip validation for empty audiences", []string{}, []string{"aud1"}, false},
		{"at least one valid audience", []string{"aud11", "aud1", "aud12"}, []string{"aud0", "aud1"}, false},
		{"no valid audience", []string{"aud11", "aud15"}, []string{"aud0", "aud100"}, true},
		{"empty aud claim", []string{"aud1"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAudience(tt.expectedAudiences, tt.audClaim)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func Test_validateSigningAlgorithm(t *testing.T) {
	tests := []struct {
		name               string
		token              func() string
		expectedAlgorithms []Alg
		wantErr            bool
	}{
		{
			name: "default of RS256 when expected algorithms is empty",
			token: func() string {
				return oidc.TestSignJWT(t, priv, string(RS256), testJWTClaims(t), []byte(testKeyID))
			},
			expectedAlgorithms: []Alg{},
		},
		{
			name: "jwt signed with at least one expected signing algorithm",
			token: func() string {
				return oidc.TestSignJWT(t, priv, string(PS384), testJWTClaims(t), []byte(testKeyID))
			},
			expectedAlgorithms: []Alg{RS256, EdDSA, RS512, PS384, PS256},
		},
		{
			name: "jwt signed with unexpected algorithm",
			token: func() string {
				return oidc.TestSignJWT(t, priv, string(RS256), testJWTClaims(t), []byte(testKeyID))
			},
			expectedAlgorithms: []Alg{RS512, PS384, ES256},
			wantErr:            true,
		},
		{
			name: "unsupported signing algorithm",
			token: func() string {
				return oidc.TestSignJWT(t, priv, string(RS256), testJWTClaims(t), []byte(testKeyID))
			},
			expectedAlgorithms: []Alg{Alg("none")},
			wantErr:            true,
		},
		{
			name: "malformed jwt",
			token: func() string {
				return "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"
			},
			expectedAlgorithms: []Alg{},
			wantErr:            true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSigningAlgorithm(tt.token(), tt.expectedAlgorithms)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func Test_leeway(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(DefaultLeeway, leeway(0))
	assert.Equal(time.Duration(0), leeway(-1))
	assert.Equal(time.Minute, leeway(time.Minute))
}

func Test_normalizeList(t *testing.T) {
	assert.Equal(t, []string{"https://a", "b"}, normalizeList([]string{"https://a/", "b"}))
	assert.True(t, strings.HasSuffix(normalizeList([]string{"x//"})[0], "/"))
}
