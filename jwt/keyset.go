// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/hashicorp/go-cleanhttp"
)

// KeySet represents a set of keys that can be used to verify the signatures of JWTs.
// A KeySet is expected to be backed by a set of local or remote keys.
type KeySet interface {

	// VerifySignature parses the given JWT, verifies its signature, and returns the claims in its payload.
	VerifySignature(ctx context.Context, token string) (claims map[string]interface{}, err error)
}

// jsonWebKeySet verifies JWT signatures using keys obtained from a JWKS URL.
type jsonWebKeySet struct {
	remoteJWKS oidc.KeySet
}

// staticKeySet verifies JWT signatures using local public keys.
type staticKeySet struct {
	publicKeys []crypto.PublicKey
}

// NewOIDCDiscoveryKeySet returns a KeySet that verifies JWT signatures using keys from the
// JSON Web Key Set (JWKS) published in the discovery document at the given issuer.
// The client used to obtain the remote keys will verify server certificates using the root
// certificates provided by issuerCAPEM. If issuerCAPEM is not provided, system certificates
// are used.
//
// Supported options: WithRequestsPerMinute
func NewOIDCDiscoveryKeySet(ctx context.Context, issuer string, issuerCAPEM string, opt ...Option) (KeySet, error) {
	if issuer == "" {
		return nil, errors.New("issuer must not be empty")
	}

	caCtx, err := createCAContext(ctx, issuerCAPEM, getKeySetOpts(opt...))
	if err != nil {
		return nil, err
	}

	// Discovery is done once; the jwks_uri it returns is then handed to
	// the same remote key set the JWKS constructor uses.
	provider, err := oidc.NewProvider(caCtx, issuer)
	if err != nil {
		return nil, err
	}

	var discovered struct {
		JWKSURL string `json:"jwks_uri"`
	}
	if err := provider.Claims(&discovered); err != nil {
		return nil, err
	}
	if discovered.JWKSURL == "" {
		return nil, fmt.Errorf("discovery document for %s has no jwks_uri", issuer)
	}

	return &jsonWebKeySet{
		remoteJWKS: oidc.NewRemoteKeySet(caCtx, discovered.JWKSURL),
	}, nil
}

// NewJSONWebKeySet returns a KeySet that verifies JWT signatures using keys from the JSON Web
// Key Set (JWKS) at the given jwksURL. The client used to obtain the remote JWKS will verify
// server certificates using the root certificates provided by jwksCAPEM. If jwksCAPEM is not
// provided, system certificates are used.
//
// Keys are cached by the underlying remote key set and refreshed when a token
// references a key id that is not in the cache.
//
// Supported options: WithRequestsPerMinute
func NewJSONWebKeySet(ctx context.Context, jwksURL string, jwksCAPEM string, opt ...Option) (KeySet, error) {
	if jwksURL == "" {
		return nil, errors.New("jwksURL must not be empty")
	}

	caCtx, err := createCAContext(ctx, jwksCAPEM, getKeySetOpts(opt...))
	if err != nil {
		return nil, err
	}

	return &jsonWebKeySet{
		remoteJWKS: oidc.NewRemoteKeySet(caCtx, jwksURL),
	}, nil
}

// VerifySignature parses the given JWT, verifies its signature using JWKS keys, and returns
// the claims in its payload. The given JWT must be of the JWS compact serialization form.
func (ks *jsonWebKeySet) VerifySignature(ctx context.Context, token string) (map[string]interface{}, error) {
	payload, err := ks.remoteJWKS.VerifySignature(ctx, token)
	if err != nil {
		return nil, err
	}

	// Unmarshal payload into a set of all received claims
	allClaims := map[string]interface{}{}
	if err := json.Unmarshal(payload, &allClaims); err != nil {
		return nil, err
	}

	return allClaims, nil
}

// NewStaticKeySet returns a KeySet that verifies JWT signatures using the given publicKeys.
func NewStaticKeySet(publicKeys []crypto.PublicKey) (KeySet, error) {
	if len(publicKeys) == 0 {
		return nil, errors.New("publicKeys must not be empty")
	}
	for _, k := range publicKeys {
		switch k.(type) {
		case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
		default:
			return nil, fmt.Errorf("unsupported public key type %T", k)
		}
	}
	return &staticKeySet{
		publicKeys: publicKeys,
	}, nil
}

// NewStaticKeySetFromPEM returns a KeySet that verifies JWT signatures using PEM-encoded
// public keys. The given publicKeys must be of PEM-encoded x509 certificate or PKIX public
// key forms.
func NewStaticKeySetFromPEM(publicKeys []string) (KeySet, error) {
	parsed := make([]crypto.PublicKey, 0, len(publicKeys))
	for _, k := range publicKeys {
		key, err := ParsePublicKeyPEM([]byte(k))
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, key)
	}
	return NewStaticKeySet(parsed)
}

// VerifySignature parses the given JWT, verifies its signature using local public keys,
// and returns the claims in its payload. The given JWT must be of the JWS compact
// serialization form.
func (ks *staticKeySet) VerifySignature(_ context.Context, token string) (map[string]interface{}, error) {
	parsedJWT, err := jwt.ParseSigned(token)
	if err != nil {
		return nil, err
	}

	var valid bool
	allClaims := map[string]interface{}{}
	for _, key := range ks.publicKeys {
		if err := parsedJWT.Claims(key, &allClaims); err == nil {
			valid = true
			break
		}
	}
	if !valid {
		return nil, errors.New("no known key successfully validated the token signature")
	}

	return allClaims, nil
}

// ParsePublicKeyPEM is used to parse RSA, ECDSA and Ed25519 public keys from PEMs.
// It returns a *rsa.PublicKey, *ecdsa.PublicKey or ed25519.PublicKey.
func ParsePublicKeyPEM(data []byte) (crypto.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block != nil {
		var rawKey interface{}
		var err error
		if rawKey, err = x509.ParsePKIXPublicKey(block.Bytes); err != nil {
			if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
				rawKey = cert.PublicKey
			} else {
				return nil, err
			}
		}

		switch k := rawKey.(type) {
		case *rsa.PublicKey:
			return k, nil
		case *ecdsa.PublicKey:
			return k, nil
		case ed25519.PublicKey:
			return k, nil
		}
	}

	return nil, errors.New("data does not contain any valid RSA, ECDSA, or ED25519 public keys")
}

// createCAContext returns a context with a custom TLS client that's configured with the root
// certificates from caPEM and, when requested, a limit on outgoing key set requests. If
// neither is configured, the original context is returned.
func createCAContext(ctx context.Context, caPEM string, opts keySetOptions) (context.Context, error) {
	if caPEM == "" && opts.withRequestsPerMinute <= 0 {
		return ctx, nil
	}

	tr := cleanhttp.DefaultPooledTransport()
	if caPEM != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
			return nil, errors.New("could not parse CA PEM value successfully")
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}

	var rt http.RoundTripper = tr
	if opts.withRequestsPerMinute > 0 {
		rt = newRateLimitedTransport(tr, opts.withRequestsPerMinute)
	}
	tc := &http.Client{
		Transport: rt,
	}

	return oidc.ClientContext(ctx, tc), nil
}
