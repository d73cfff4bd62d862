// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/seclab/oidclab/oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_rateLimitedTransport(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: newRateLimitedTransport(http.DefaultTransport, 2)}
	for i := 0; i < 2; i++ {
		resp, err := client.Get(srv.URL)
		require.NoError(err)
		resp.Body.Close()
	}
	_, err := client.Get(srv.URL)
	require.Error(err)
	assert.ErrorIs(err, ErrTooManyRequests)
	assert.Equal(int32(2), atomic.LoadInt32(&hits))
}

func TestNewJSONWebKeySet_WithRequestsPerMinute(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	tp := oidc.StartTestProvider(t)

	keySet, err := NewJSONWebKeySet(ctx, tp.JWKSURL(), tp.CACert(), WithRequestsPerMinute(1))
	require.NoError(err)

	// first fetch is allowed and the key is cached afterwards
	_, err = keySet.VerifySignature(ctx, tp.SignJWT(testJWTClaims(t)))
	require.NoError(err)
	_, err = keySet.VerifySignature(ctx, tp.SignJWT(testJWTClaims(t)))
	require.NoError(err)

	// an unknown key forces a refresh, which is over the limit
	unknown, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)
	_, err = keySet.VerifySignature(ctx, oidc.TestSignJWT(t, unknown, string(RS256), testJWTClaims(t), []byte("unknown-kid")))
	require.Error(err)
	assert.Contains(err.Error(), ErrTooManyRequests.Error())
}
