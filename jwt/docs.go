// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
Package jwt verifies bearer tokens presented to the API tier.

A KeySet checks a token's signature and returns its payload claims. Key
material may come from a remote JWKS endpoint (NewJSONWebKeySet), from the
key set advertised by an issuer's discovery document
(NewOIDCDiscoveryKeySet), or from local keys (NewStaticKeySet,
NewStaticKeySetFromPEM). Fetching and caching of remote keys is left to
github.com/coreos/go-oidc; WithRequestsPerMinute caps how often the remote
endpoint is hit.

A Validator combines one or more KeySets with claim assertions described by
Expected: signing algorithm, issuer, audiences and the time based claims. Assertions on empty Expected fields are skipped, which is
how audience verification is switched off.
*/
package jwt
