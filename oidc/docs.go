// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
Package oidc is the relying party side of the lab: the browser-facing client
that sends users to the identity provider and completes the authorization
code flow when they come back.

Primary types provided by the package:

* Config: the client's configuration (authority, client id, redirect URIs,
response type, scopes, supported signing algorithms).

* Client: performs discovery once and offers the three flow operations:
LoginURL (begin login), LogoutURL (begin logout) and Exchange (complete the
callback). All of them delegate to github.com/coreos/go-oidc and
golang.org/x/oauth2.

* Request: one in-flight login attempt (state, nonce, PKCE verifier and an
expiration).

* Token: the tokens returned by a successful exchange. Raw token values are
redacted by String and MarshalJSON.

* TestProvider: an in-process, Keycloak shaped OpenID provider for tests.

The oidc/callback package turns Exchange into an http.HandlerFunc for the
redirect URI.
*/
package oidc
