// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/require"
)

// TestGenerateKeys will generate a test RSA 2048 pub/priv key pair, suitable
// for RS256, RS384, RS512, PS256, PS384 and PS512.
func TestGenerateKeys(t *testing.T) (crypto.PublicKey, crypto.PrivateKey) {
	t.Helper()
	require := require.New(t)
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)
	return priv.Public(), priv
}

// TestEncodePublicKeyPEM returns the PKIX PEM encoding of the public key.
func TestEncodePublicKeyPEM(t *testing.T, pub crypto.PublicKey) string {
	t.Helper()
	require := require.New(t)
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// TestSignJWT will bundle the provided claims into a signed JWT. The provided
// key must match the alg (RSA for RS*/PS*, ECDSA for ES*, ed25519 for EdDSA).
// A nil keyID leaves the "kid" header out.
func TestSignJWT(t *testing.T, key crypto.PrivateKey, alg string, claims interface{}, keyID []byte) string {
	t.Helper()
	require := require.New(t)

	hdr := map[jose.HeaderKey]interface{}{}
	if keyID != nil {
		hdr[jose.HeaderKey("kid")] = string(keyID)
	}

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.SignatureAlgorithm(alg), Key: key},
		(&jose.SignerOptions{ExtraHeaders: hdr}).WithType("JWT"),
	)
	require.NoError(err)

	raw, err := jwt.Signed(sig).
		Claims(claims).
		CompactSerialize()
	require.NoError(err)
	return raw
}
