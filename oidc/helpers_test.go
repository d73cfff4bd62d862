// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"net/http"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testAssertEqualFunc compares two funcs by their code pointer.
func testAssertEqualFunc(t *testing.T, wantFunc, gotFunc interface{}, format string, args ...interface{}) {
	t.Helper()
	if wantFunc == nil && gotFunc == nil {
		return
	}
	want := reflect.ValueOf(wantFunc).Pointer()
	got := reflect.ValueOf(gotFunc).Pointer()
	assert.Equalf(t, want, got, format, args...)
}

// testNewClient creates a public Client for the TestProvider's realm, with
// redirect as its only allowed redirect URI.
func testNewClient(t *testing.T, tp *TestProvider, redirect string, opt ...Option) *Client {
	t.Helper()
	require := require.New(t)
	clientID, _ := tp.ClientCreds()
	tp.SetAllowedRedirectURIs([]string{redirect})
	_, _, alg := tp.SigningKeys()
	opt = append([]Option{WithProviderCA(tp.CACert()), WithScopes("profile", "email")}, opt...)
	c, err := NewConfig(tp.Issuer(), clientID, []Alg{alg}, redirect, opt...)
	require.NoError(err)
	client, err := NewClient(c)
	require.NoError(err)
	t.Cleanup(client.Done)
	return client
}

// testLogin sends the browser leg of a login to the TestProvider and
// returns the state and code it redirects back with.
func testLogin(t *testing.T, tp *TestProvider, c *Client, r Request) (state, code string) {
	t.Helper()
	require := require.New(t)
	loginURL, err := c.LoginURL(context.Background(), r)
	require.NoError(err)

	hc := *tp.HTTPClient()
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := hc.Get(loginURL)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)
	loc, err := resp.Location()
	require.NoError(err)
	require.Empty(loc.Query().Get("error"), "provider returned an error: %s", loc.Query().Get("error"))
	return loc.Query().Get("state"), loc.Query().Get("code")
}
