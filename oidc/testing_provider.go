// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// DefaultTestRealm is the realm the TestProvider serves unless
// WithTestRealm is used.
const DefaultTestRealm = "security-lab"

// DefaultTestKeyID is the "kid" of the TestProvider's initial signing key.
const DefaultTestKeyID = "test-key"

// Keycloak realm relative endpoint paths.
const (
	testDiscoveryPath  = "/.well-known/openid-configuration"
	testCertsPath      = "/protocol/openid-connect/certs"
	testAuthPath       = "/protocol/openid-connect/auth"
	testTokenPath      = "/protocol/openid-connect/token"
	testUserInfoPath   = "/protocol/openid-connect/userinfo"
	testEndSessionPath = "/protocol/openid-connect/logout"
)

// TestProvider is a local https server that behaves like a single Keycloak
// realm: discovery, JWKS, authorization, token, userinfo and end session
// endpoints under /realms/{realm}. It makes writing tests for both tiers
// much easier. It is based on Consul's oauthtest package with changes so it
// could become part of this package's public testing API.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string
	realm      string
	client     *http.Client

	mu                  sync.Mutex
	privKey             crypto.PrivateKey
	pubKey              crypto.PublicKey
	alg                 Alg
	keyID               string
	allowedRedirectURIs []string
	replySubject        string
	replyUserinfo       map[string]interface{}
	clientID            string
	clientSecret        string
	expectedAuthCode    string
	expectedAuthNonce   string
	expectedState       string
	nonce               string
	codeChallenge       string
	customClaims        map[string]interface{}
	customAudience      []string
	omitIDToken         bool
	disableToken        bool
	disableJWKs         bool
	disableEndSession   bool
	tokenExpiry         time.Duration
	nowFunc             func() time.Time

	t *testing.T
}

// StartTestProvider creates and starts a running TestProvider http server.
// The server is stopped when the test completes.
//
// Supported options: WithTestRealm
func StartTestProvider(t *testing.T, opt ...Option) *TestProvider {
	t.Helper()
	require := require.New(t)
	opts := getTestProviderOpts(opt...)

	pub, priv := TestGenerateKeys(t)
	p := &TestProvider{
		realm:   opts.withRealm,
		privKey: priv,
		pubKey:  pub,
		alg:     RS256,
		keyID:   DefaultTestKeyID,
		allowedRedirectURIs: []string{
			"https://example.com",
		},
		replySubject: "f8a1e2b0-6c3d-4e1a-9b7f-0a2d4c6e8f10",
		replyUserinfo: map[string]interface{}{
			"preferred_username": "alice",
			"email":              "alice@example.com",
			"email_verified":     true,
		},
		clientID:    "spa-unsafe",
		tokenExpiry: 5 * time.Minute,
		t:           t,
	}

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.Stop)

	cert := p.httpServer.Certificate()

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	certPool := x509.NewCertPool()
	require.True(certPool.AppendCertsFromPEM([]byte(p.caCert)))
	tr := cleanhttp.DefaultPooledTransport()
	tr.TLSClientConfig = &tls.Config{
		RootCAs: certPool,
	}
	p.client = &http.Client{
		Transport: tr,
	}

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// Issuer returns the realm's issuer URL; the value of the "iss" claim in
// every token the provider signs.
func (p *TestProvider) Issuer() string {
	return p.Addr() + "/realms/" + p.realm
}

// JWKSURL returns the realm's certs endpoint.
func (p *TestProvider) JWKSURL() string { return p.Issuer() + testCertsPath }

// EndSessionURL returns the realm's logout endpoint.
func (p *TestProvider) EndSessionURL() string { return p.Issuer() + testEndSessionPath }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// HTTPClient returns an http.Client that trusts the test provider's CA.
func (p *TestProvider) HTTPClient() *http.Client { return p.client }

// SetClientCreds is for configuring the client information required for the
// OIDC workflows. An empty clientSecret configures a public client.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// ClientCreds returns the configured client id and secret.
func (p *TestProvider) ClientCreds() (clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clientID, p.clientSecret
}

// SetSigningKeys sets the test provider's keys and alg used to sign JWTs.
// The keyID is published as the "kid" of the single key in the JWKS.
func (p *TestProvider) SetSigningKeys(privKey crypto.PrivateKey, pubKey crypto.PublicKey, alg Alg, keyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.privKey = privKey
	p.pubKey = pubKey
	p.alg = alg
	p.keyID = keyID
}

// SigningKeys returns the test provider's keys used to sign JWTs and its
// alg.
func (p *TestProvider) SigningKeys() (crypto.PrivateKey, crypto.PublicKey, Alg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.privKey, p.pubKey, p.alg
}

// SetExpectedAuthCode configures the auth code to return from the auth
// endpoint and the allowed auth code for the token endpoint.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedAuthNonce configures the nonce value required by the auth
// endpoint.
func (p *TestProvider) SetExpectedAuthNonce(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthNonce = nonce
}

// SetExpectedState overrides the state the auth endpoint redirects back with.
// An empty string echoes the state sent by the client.
func (p *TestProvider) SetExpectedState(state string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedState = state
}

// SetAllowedRedirectURIs allows you to configure the allowed redirect URIs for
// the OIDC workflow. If not configured a sample of "https://example.com" is
// used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetCustomClaims lets you set claims to return in the JWT issued by the OIDC
// workflow.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetCustomAudience configures what audience value to embed in the id_token
// issued by the OIDC workflow.
func (p *TestProvider) SetCustomAudience(customAudience ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = customAudience
}

// SetOmitIDTokens forces an error state where the token endpoint does not
// return an id_token.
func (p *TestProvider) SetOmitIDTokens(omitIDTokens bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = omitIDTokens
}

// SetDisableToken makes the token endpoint return 401.
func (p *TestProvider) SetDisableToken(disable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableToken = disable
}

// SetDisableJWKs makes the certs endpoint return 404.
func (p *TestProvider) SetDisableJWKs(disable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableJWKs = disable
}

// SetDisableEndSession omits end_session_endpoint from discovery and makes
// the logout endpoint return 404.
func (p *TestProvider) SetDisableEndSession(disable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableEndSession = disable
}

// SetNowFunc configures how the test provider will determine the current time.
func (p *TestProvider) SetNowFunc(n func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nowFunc = n
}

// SignJWT signs claims with the provider's current signing key, exactly as
// the realm would sign an access token.
func (p *TestProvider) SignJWT(claims map[string]interface{}) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return TestSignJWT(p.t, p.privKey, string(p.alg), claims, []byte(p.keyID))
}

// AccessTokenClaims returns a valid set of access_token claims for the
// realm, as Keycloak would issue them for the configured client. Callers
// may modify the returned map before signing it with SignJWT.
func (p *TestProvider) AccessTokenClaims() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	return map[string]interface{}{
		"iss":                p.Issuer(),
		"sub":                p.replySubject,
		"aud":                "account",
		"azp":                p.clientID,
		"typ":                "Bearer",
		"scope":              "openid profile email",
		"preferred_username": p.replyUserinfo["preferred_username"],
		"email":              p.replyUserinfo["email"],
		"iat":                float64(now.Unix()),
		"exp":                float64(now.Add(p.tokenExpiry).Unix()),
	}
}

func (p *TestProvider) now() time.Time {
	if p.nowFunc != nil {
		return p.nowFunc()
	}
	return time.Now()
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

// writeAuthErrorResponse writes a standard OIDC authentication error response.
// See: https://openid.net/specs/openid-connect-core-1_0.html#AuthError
func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, redirectURL, state, errorCode, errorMessage string) {
	p.t.Helper()
	// state and error are required error response parameters
	redirectURI := redirectURL +
		"?state=" + url.QueryEscape(state) +
		"&error=" + url.QueryEscape(errorCode)

	if errorMessage != "" {
		// add optional error response parameter
		redirectURI += "&error_description=" + url.QueryEscape(errorMessage)
	}

	http.Redirect(w, req, redirectURI, http.StatusFound)
}

// writeTokenErrorResponse writes a standard OIDC token error response.
// See: https://openid.net/specs/openid-connect-core-1_0.html#TokenErrorResponse
func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) error {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}

	w.WriteHeader(statusCode)
	return p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.t.Helper()
	require := require.New(p.t)

	prefix := "/realms/" + p.realm
	if !strings.HasPrefix(req.URL.Path, prefix) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.TrimPrefix(req.URL.Path, prefix)

	switch path {
	case testDiscoveryPath:
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := struct {
			Issuer              string   `json:"issuer"`
			AuthEndpoint        string   `json:"authorization_endpoint"`
			TokenEndpoint       string   `json:"token_endpoint"`
			JWKSURI             string   `json:"jwks_uri"`
			UserinfoEndpoint    string   `json:"userinfo_endpoint"`
			EndSessionEndpoint  string   `json:"end_session_endpoint,omitempty"`
			SupportedAlgs       []string `json:"id_token_signing_alg_values_supported"`
			ResponseTypes       []string `json:"response_types_supported"`
			CodeChallengeMethod []string `json:"code_challenge_methods_supported"`
		}{
			Issuer:              p.Issuer(),
			AuthEndpoint:        p.Issuer() + testAuthPath,
			TokenEndpoint:       p.Issuer() + testTokenPath,
			JWKSURI:             p.Issuer() + testCertsPath,
			UserinfoEndpoint:    p.Issuer() + testUserInfoPath,
			EndSessionEndpoint:  p.Issuer() + testEndSessionPath,
			SupportedAlgs:       []string{string(p.alg)},
			ResponseTypes:       []string{"code"},
			CodeChallengeMethod: []string{"S256"},
		}
		if p.disableEndSession {
			reply.EndSessionEndpoint = ""
		}
		w.Header().Set("Content-Type", "application/json")
		err := p.writeJSON(w, &reply)
		require.NoErrorf(err, "%s: internal error: %w", testDiscoveryPath, err)

	case testCertsPath:
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if p.disableJWKs {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		jwks := jose.JSONWebKeySet{
			Keys: []jose.JSONWebKey{
				{
					Key:       p.pubKey,
					KeyID:     p.keyID,
					Algorithm: string(p.alg),
					Use:       "sig",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		err := p.writeJSON(w, &jwks)
		require.NoErrorf(err, "%s: internal error: %w", testCertsPath, err)

	case testAuthPath:
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		redirectURI := qv.Get("redirect_uri")
		if redirectURI == "" || !contains(p.allowedRedirectURIs, redirectURI) {
			// Keycloak renders an error page rather than redirecting to an
			// unknown URI.
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		state := qv.Get("state")
		switch {
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, redirectURI, state, "unsupported_response_type", "")
			return
		case !contains(strings.Fields(qv.Get("scope")), "openid"):
			p.writeAuthErrorResponse(w, req, redirectURI, state, "invalid_scope", "")
			return
		case qv.Get("client_id") != p.clientID:
			p.writeAuthErrorResponse(w, req, redirectURI, state, "unauthorized_client", "")
			return
		case p.expectedAuthCode == "":
			p.writeAuthErrorResponse(w, req, redirectURI, state, "access_denied", "")
			return
		case p.expectedAuthNonce != "" && p.expectedAuthNonce != qv.Get("nonce"):
			p.writeAuthErrorResponse(w, req, redirectURI, state, "access_denied", "")
			return
		case state == "":
			p.writeAuthErrorResponse(w, req, redirectURI, state, "invalid_request", "missing state parameter")
			return
		}
		if challenge := qv.Get("code_challenge"); challenge != "" {
			if qv.Get("code_challenge_method") != "S256" {
				p.writeAuthErrorResponse(w, req, redirectURI, state, "invalid_request", "unsupported code_challenge_method")
				return
			}
			p.codeChallenge = challenge
		}
		p.nonce = qv.Get("nonce")

		if p.expectedState != "" {
			state = p.expectedState
		}
		http.Redirect(w, req, redirectURI+"?state="+url.QueryEscape(state)+"&code="+url.QueryEscape(p.expectedAuthCode), http.StatusFound)

	case testTokenPath:
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if p.disableToken {
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "unauthorized_client", "token endpoint disabled")
			return
		}
		clientID, clientSecret, ok := req.BasicAuth()
		if !ok {
			clientID, clientSecret = req.FormValue("client_id"), req.FormValue("client_secret")
		}
		switch {
		case req.FormValue("grant_type") != "authorization_code":
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "bad grant_type")
			return
		case clientID != p.clientID || clientSecret != p.clientSecret:
			_ = p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "invalid client credentials")
			return
		case !contains(p.allowedRedirectURIs, req.FormValue("redirect_uri")):
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not allowed")
			return
		case req.FormValue("code") != p.expectedAuthCode:
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "unexpected auth code")
			return
		case p.codeChallenge != "" && oauth2.S256ChallengeFromVerifier(req.FormValue("code_verifier")) != p.codeChallenge:
			_ = p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
			return
		}

		now := p.now()
		idClaims := map[string]interface{}{
			"iss":                p.Issuer(),
			"sub":                p.replySubject,
			"aud":                p.clientID,
			"azp":                p.clientID,
			"typ":                "ID",
			"iat":                float64(now.Unix()),
			"exp":                float64(now.Add(p.tokenExpiry).Unix()),
			"preferred_username": p.replyUserinfo["preferred_username"],
			"email":              p.replyUserinfo["email"],
		}
		if p.nonce != "" {
			idClaims["nonce"] = p.nonce
		}
		if len(p.customAudience) > 0 {
			idClaims["aud"] = p.customAudience
		}
		for k, v := range p.customClaims {
			idClaims[k] = v
		}
		accessClaims := map[string]interface{}{
			"iss":   p.Issuer(),
			"sub":   p.replySubject,
			"aud":   "account",
			"azp":   p.clientID,
			"typ":   "Bearer",
			"scope": "openid profile email",
			"iat":   float64(now.Unix()),
			"exp":   float64(now.Add(p.tokenExpiry).Unix()),
		}

		reply := struct {
			AccessToken string `json:"access_token"`
			IDToken     string `json:"id_token,omitempty"`
			TokenType   string `json:"token_type"`
			ExpiresIn   int64  `json:"expires_in"`
		}{
			AccessToken: TestSignJWT(p.t, p.privKey, string(p.alg), accessClaims, []byte(p.keyID)),
			IDToken:     TestSignJWT(p.t, p.privKey, string(p.alg), idClaims, []byte(p.keyID)),
			TokenType:   "Bearer",
			ExpiresIn:   int64(p.tokenExpiry.Seconds()),
		}
		if p.omitIDToken {
			reply.IDToken = ""
		}
		err := p.writeJSON(w, &reply)
		require.NoErrorf(err, "%s: internal error: %w", testTokenPath, err)

	case testUserInfoPath:
		if req.Method != http.MethodGet && req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := map[string]interface{}{"sub": p.replySubject}
		for k, v := range p.replyUserinfo {
			reply[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		err := p.writeJSON(w, reply)
		require.NoErrorf(err, "%s: internal error: %w", testUserInfoPath, err)

	case testEndSessionPath:
		if p.disableEndSession {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if u := req.FormValue("post_logout_redirect_uri"); u != "" {
			http.Redirect(w, req, u, http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func contains(sl []string, st string) bool {
	for _, s := range sl {
		if s == st {
			return true
		}
	}
	return false
}

// testProviderOptions is the set of available options for TestProvider
// functions
type testProviderOptions struct {
	withRealm string
}

// testProviderDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func testProviderDefaults() testProviderOptions {
	return testProviderOptions{
		withRealm: DefaultTestRealm,
	}
}

// getTestProviderOpts gets the test provider defaults and applies the opt
// overrides passed in
func getTestProviderOpts(opt ...Option) testProviderOptions {
	opts := testProviderDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithTestRealm provides an optional realm name for the test provider.
func WithTestRealm(realm string) Option {
	return func(o interface{}) {
		if o, ok := o.(*testProviderOptions); ok && realm != "" {
			o.withRealm = realm
		}
	}
}
