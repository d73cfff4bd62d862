// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Client is an OIDC relying party using the authorization code flow (with
// PKCE). Each flow operation is a thin pass-through to go-oidc and
// x/oauth2; the Client only decides which parameters are sent and which
// id_token claims are checked.
type Client struct {
	config   *Config
	provider *oidc.Provider
	client   *http.Client

	// endSessionURL is the provider's end_session_endpoint, if discovered.
	endSessionURL string

	mu sync.Mutex

	// backgroundCtx is the context used by the client for background
	// activities like refreshing the JWKS.
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewClient creates and initializes a Client. Initializing the client
// includes an http request to the authority's discovery endpoint.
//
// See Client.Done() which must be called to release client resources.
func NewClient(c *Config) (*Client, error) {
	const op = "NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: client config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: client config is invalid: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	// initializing the Client with its background ctx/cancel will
	// allow us to use c.Done() to release any resources when returning errors
	// from this function.
	p := &Client{
		config:              c,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}

	client, err := c.HTTPClient()
	if err != nil {
		p.Done()
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	p.client = client

	provider, err := oidc.NewProvider(HTTPClientContext(p.backgroundCtx, client), c.Authority) // makes http req to issuer for discovery
	if err != nil {
		p.Done()
		// we don't know what's causing the problem, so we won't classify the
		// error with a sentinel
		return nil, fmt.Errorf("%s: unable to create provider: %w", op, err)
	}
	p.provider = provider

	var discovered struct {
		EndSessionURL string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&discovered); err != nil {
		p.Done()
		return nil, fmt.Errorf("%s: unable to read discovery document: %w", op, err)
	}
	p.endSessionURL = discovered.EndSessionURL

	return p, nil
}

// Done with the client's background resources and must be called for every
// Client created.
func (c *Client) Done() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backgroundCtxCancel != nil {
		c.backgroundCtxCancel()
		c.backgroundCtxCancel = nil
	}
}

// Config returns the client's configuration.
func (c *Client) Config() *Config { return c.config }

// LoginURL will generate a URL the caller can use to kick off an OIDC
// authorization code flow with the provider (begin login). The browser is
// expected to be redirected to it.
//
// The URL carries response_type=code, the configured scopes, the request's
// state and nonce, and the S256 PKCE challenge of the request's verifier.
//
// See NewRequest() to create an oidc flow Request with a valid state and
// Nonce that will uniquely identify the user's authentication attempt
// throughout the flow.
func (c *Client) LoginURL(ctx context.Context, r Request) (string, error) {
	const op = "Client.LoginURL"
	if r == nil {
		return "", fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	if r.State() == r.Nonce() {
		return "", fmt.Errorf("%s: request id and nonce cannot be equal: %w", op, ErrInvalidParameter)
	}
	if r.IsExpired() {
		return "", fmt.Errorf("%s: %w", op, ErrExpiredRequest)
	}
	if r.PKCEVerifier() == "" {
		return "", fmt.Errorf("%s: request has no PKCE verifier: %w", op, ErrInvalidParameter)
	}

	oauth2Config := c.oauth2Config()
	authCodeOpts := []oauth2.AuthCodeOption{
		oidc.Nonce(r.Nonce()),
		oauth2.S256ChallengeOption(r.PKCEVerifier()),
	}
	if len(r.UILocales()) > 0 {
		locales := make([]string, 0, len(r.UILocales()))
		for _, l := range r.UILocales() {
			locales = append(locales, l.String())
		}
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam("ui_locales", strings.Join(locales, " ")))
	}
	return oauth2Config.AuthCodeURL(r.State(), authCodeOpts...), nil
}

// LogoutURL returns the provider's end session URL (begin logout) with the
// client_id, the configured post logout redirect URL and, when not empty,
// the idTokenHint.
func (c *Client) LogoutURL(ctx context.Context, idTokenHint IDToken) (string, error) {
	const op = "Client.LogoutURL"
	if c.endSessionURL == "" {
		return "", fmt.Errorf("%s: %w", op, ErrMissingEndSessionEndpoint)
	}
	u, err := url.Parse(c.endSessionURL)
	if err != nil {
		return "", fmt.Errorf("%s: unable to parse end_session_endpoint: %w", op, err)
	}
	q := u.Query()
	q.Set("client_id", c.config.ClientID)
	if c.config.PostLogoutRedirectURL != "" {
		q.Set("post_logout_redirect_uri", c.config.PostLogoutRedirectURL)
	}
	if idTokenHint != "" {
		q.Set("id_token_hint", string(idTokenHint))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange will request a token from the oidc token endpoint, using the
// authorizationCode and authorizationState it received in an earlier
// successful oidc authentication response (complete callback).
//
// It will also validate the authorizationState it receives against the
// existing Request for the user's oidc authentication flow, send the
// request's PKCE verifier, and verify the returned id_token.
func (c *Client) Exchange(ctx context.Context, r Request, authorizationState string, authorizationCode string) (*Token, error) {
	const op = "Client.Exchange"
	if r == nil {
		return nil, fmt.Errorf("%s: request is nil: %w", op, ErrNilParameter)
	}
	if r.State() != authorizationState {
		return nil, fmt.Errorf("%s: authentication request state and authorization state are not equal: %w", op, ErrInvalidResponseState)
	}
	if r.IsExpired() {
		return nil, fmt.Errorf("%s: authentication request is expired: %w", op, ErrExpiredRequest)
	}
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}

	oauth2Config := c.oauth2Config()
	oauth2Token, err := oauth2Config.Exchange(
		HTTPClientContext(ctx, c.client),
		authorizationCode,
		oauth2.VerifierOption(r.PKCEVerifier()),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %w", op, fmt.Errorf("%w: %s", ErrExchangeFailed, err))
	}

	idToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, fmt.Errorf("%s: id_token is missing from auth code exchange: %w", op, ErrMissingIDToken)
	}
	t, err := NewToken(IDToken(idToken), oauth2Token, WithNow(c.config.NowFunc))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create new token: %w", op, err)
	}
	claims, err := c.VerifyIDToken(ctx, t.IDToken())
	if err != nil {
		return nil, fmt.Errorf("%s: id_token failed verification: %w", op, err)
	}
	if nonce, _ := claims["nonce"].(string); nonce != r.Nonce() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}
	return t, nil
}

// VerifyIDToken will verify the id_token and return its claims. It verifies
// it's been signed by the provider with one of the supported algorithms,
// that it's been issued by the authority, that the client is one of its
// audiences and that it isn't expired. The nonce is checked by Exchange.
//
// See: https://openid.net/specs/openid-connect-core-1_0.html#IDTokenValidation
func (c *Client) VerifyIDToken(ctx context.Context, t IDToken) (map[string]interface{}, error) {
	const op = "Client.VerifyIDToken"
	if t == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	algs := make([]string, 0, len(c.config.SupportedSigningAlgs))
	for _, a := range c.config.SupportedSigningAlgs {
		algs = append(algs, string(a))
	}
	verifier := c.provider.Verifier(&oidc.Config{
		ClientID:             c.config.ClientID,
		SupportedSigningAlgs: algs,
		Now:                  c.config.Now,
	})

	oidcIDToken, err := verifier.Verify(HTTPClientContext(ctx, c.client), string(t))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrIDTokenVerificationFailed, err)
	}

	claims := map[string]interface{}{}
	if err := oidcIDToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: unable to get id_token claims: %w", op, err)
	}
	return claims, nil
}

// oauth2Config returns an OpenID Connect aware OAuth2 config. The "openid"
// scope is always first.
func (c *Client) oauth2Config() oauth2.Config {
	scopes := []string{oidc.ScopeOpenID}
	for _, s := range c.config.Scopes {
		if s != oidc.ScopeOpenID {
			scopes = append(scopes, s)
		}
	}
	return oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: string(c.config.ClientSecret),
		RedirectURL:  c.config.RedirectURL,
		Endpoint:     c.provider.Endpoint(),
		Scopes:       scopes,
	}
}
