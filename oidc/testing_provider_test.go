// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTestProvider(t *testing.T) {
	t.Run("default-realm", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t)
		assert.Equal(tp.Addr()+"/realms/"+DefaultTestRealm, tp.Issuer())
		assert.Equal(tp.Issuer()+"/protocol/openid-connect/certs", tp.JWKSURL())
		assert.NotEmpty(tp.CACert())

		resp, err := tp.HTTPClient().Get(tp.Issuer() + "/.well-known/openid-configuration")
		require.NoError(err)
		defer resp.Body.Close()
		require.Equal(http.StatusOK, resp.StatusCode)

		var discovery map[string]interface{}
		require.NoError(json.NewDecoder(resp.Body).Decode(&discovery))
		assert.Equal(tp.Issuer(), discovery["issuer"])
		assert.Equal(tp.JWKSURL(), discovery["jwks_uri"])
		assert.Equal(tp.EndSessionURL(), discovery["end_session_endpoint"])
		assert.Equal([]interface{}{"RS256"}, discovery["id_token_signing_alg_values_supported"])
	})
	t.Run("with-realm", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp := StartTestProvider(t, WithTestRealm("other"))
		assert.Equal(tp.Addr()+"/realms/other", tp.Issuer())

		resp, err := tp.HTTPClient().Get(tp.Addr() + "/realms/" + DefaultTestRealm + "/.well-known/openid-configuration")
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusNotFound, resp.StatusCode)
	})
}

func TestTestProvider_certs(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)
	tp.SetSigningKeys(priv, priv.Public(), ES256, "ec-key")

	resp, err := tp.HTTPClient().Get(tp.JWKSURL())
	require.NoError(err)
	defer resp.Body.Close()
	var jwks jose.JSONWebKeySet
	require.NoError(json.NewDecoder(resp.Body).Decode(&jwks))
	require.Len(jwks.Keys, 1)
	assert.Equal("ec-key", jwks.Keys[0].KeyID)
	assert.Equal("ES256", jwks.Keys[0].Algorithm)

	tp.SetDisableJWKs(true)
	resp2, err := tp.HTTPClient().Get(tp.JWKSURL())
	require.NoError(err)
	defer resp2.Body.Close()
	assert.Equal(http.StatusNotFound, resp2.StatusCode)
}

func TestTestProvider_SignJWT(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	tp := StartTestProvider(t)
	claims := tp.AccessTokenClaims()
	assert.Equal(tp.Issuer(), claims["iss"])
	assert.Equal("account", claims["aud"])

	raw := tp.SignJWT(claims)
	var got map[string]interface{}
	require.NoError(UnmarshalClaims(raw, &got))
	assert.Equal(claims["sub"], got["sub"])
	assert.Equal(claims["preferred_username"], got["preferred_username"])
}
