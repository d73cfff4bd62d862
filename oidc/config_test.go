// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()
	tp := StartTestProvider(t)
	testNow := func() time.Time { return time.Now().Add(-1 * time.Minute) }

	type args struct {
		authority   string
		clientID    string
		supported   []Alg
		redirectURL string
		opt         []Option
	}
	tests := []struct {
		name      string
		args      args
		want      *Config
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "valid-with-all-options",
			args: args{
				authority:   tp.Issuer(),
				clientID:    "spa-unsafe",
				supported:   []Alg{RS512},
				redirectURL: "http://localhost:5173/callback",
				opt: []Option{
					WithClientSecret("secret"),
					WithScopes("profile", "email"),
					WithPostLogoutRedirectURL("http://localhost:5173/"),
					WithProviderCA(tp.CACert()),
					WithNow(testNow),
				},
			},
			want: &Config{
				Authority:             tp.Issuer(),
				ClientID:              "spa-unsafe",
				ClientSecret:          "secret",
				SupportedSigningAlgs:  []Alg{RS512},
				RedirectURL:           "http://localhost:5173/callback",
				PostLogoutRedirectURL: "http://localhost:5173/",
				ResponseType:          ResponseTypeCode,
				Scopes:                []string{"profile", "email"},
				ProviderCA:            tp.CACert(),
				NowFunc:               testNow,
			},
		},
		{
			name: "public-client",
			args: args{
				authority:   "http://localhost:8080/realms/security-lab",
				clientID:    "spa-unsafe",
				supported:   []Alg{RS256},
				redirectURL: "http://localhost:5173/callback",
			},
			want: &Config{
				Authority:            "http://localhost:8080/realms/security-lab",
				ClientID:             "spa-unsafe",
				SupportedSigningAlgs: []Alg{RS256},
				RedirectURL:          "http://localhost:5173/callback",
				ResponseType:         ResponseTypeCode,
			},
		},
		{
			name: "empty-authority",
			args: args{
				clientID:    "spa-unsafe",
				supported:   []Alg{RS256},
				redirectURL: "http://localhost:5173/callback",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "authority-not-http",
			args: args{
				authority:   "ftp://localhost/realms/security-lab",
				clientID:    "spa-unsafe",
				supported:   []Alg{RS256},
				redirectURL: "http://localhost:5173/callback",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "empty-client-id",
			args: args{
				authority:   tp.Issuer(),
				supported:   []Alg{RS256},
				redirectURL: "http://localhost:5173/callback",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "empty-redirect",
			args: args{
				authority: tp.Issuer(),
				clientID:  "spa-unsafe",
				supported: []Alg{RS256},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "bad-post-logout-redirect",
			args: args{
				authority:   tp.Issuer(),
				clientID:    "spa-unsafe",
				supported:   []Alg{RS256},
				redirectURL: "http://localhost:5173/callback",
				opt:         []Option{WithPostLogoutRedirectURL("/relative")},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "no-algs",
			args: args{
				authority:   tp.Issuer(),
				clientID:    "spa-unsafe",
				redirectURL: "http://localhost:5173/callback",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "unsupported-alg",
			args: args{
				authority:   tp.Issuer(),
				clientID:    "spa-unsafe",
				supported:   []Alg{"HS256"},
				redirectURL: "http://localhost:5173/callback",
			},
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name: "bad-ca",
			args: args{
				authority:   tp.Issuer(),
				clientID:    "spa-unsafe",
				supported:   []Alg{RS256},
				redirectURL: "http://localhost:5173/callback",
				opt:         []Option{WithProviderCA("bad-ca")},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidCACert,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert, require := assert.New(t), require.New(t)
			got, err := NewConfig(tt.args.authority, tt.args.clientID, tt.args.supported, tt.args.redirectURL, tt.args.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.ErrorIsf(err, tt.wantIsErr, "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			testAssertEqualFunc(t, tt.want.NowFunc, got.NowFunc, "now funcs are not equal")
			tt.want.NowFunc = nil
			got.NowFunc = nil
			assert.Equal(tt.want, got)
		})
	}
}

func TestConfig_Validate_reportsEveryProblem(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	c := &Config{
		Authority:    "not-a-url",
		ResponseType: "id_token",
	}
	err := c.Validate()
	require.Error(err)
	var merr *multierror.Error
	require.ErrorAs(err, &merr)
	// client id, authority, redirect, response type, algs
	assert.Len(merr.Errors, 5)
	assert.ErrorIs(err, ErrUnsupportedResponseType)

	var nilConfig *Config
	assert.ErrorIs(nilConfig.Validate(), ErrNilParameter)
}

func TestConfig_Now(t *testing.T) {
	assert := assert.New(t)
	past := time.Now().Add(-1 * time.Hour)
	c := &Config{NowFunc: func() time.Time { return past }}
	assert.Equal(past, c.Now())

	c = &Config{}
	assert.WithinDuration(time.Now(), c.Now(), time.Second)
}

func TestConfig_HTTPClient(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)

	c := &Config{ProviderCA: tp.CACert()}
	client, err := c.HTTPClient()
	require.NoError(err)
	resp, err := client.Get(tp.Issuer() + "/.well-known/openid-configuration")
	require.NoError(err)
	defer resp.Body.Close()
	assert.Equal(200, resp.StatusCode)

	c = &Config{ProviderCA: "bad-ca"}
	_, err = c.HTTPClient()
	assert.ErrorIs(err, ErrInvalidCACert)
}

func TestClientSecret_redacted(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	s := ClientSecret("super-secret")
	assert.Equal(RedactedClientSecret, s.String())
	assert.Equal(RedactedClientSecret, fmt.Sprintf("%s", s))
	b, err := json.Marshal(s)
	require.NoError(err)
	assert.Equal(`"`+RedactedClientSecret+`"`, string(b))
}
