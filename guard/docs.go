// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
Package guard protects API routes with bearer tokens issued by an OIDC
provider.

A Guard extracts the token from the Authorization header, verifies its
signature with a jwt.KeySet, checks the issuer and, only when enabled with
WithVerifyAudience, the audience. Verify returns an explicit Result; Handler
turns a failed Result into a 401 response of the form

	{"error": "Invalid token", "details": "<why>"}

and attaches the verified claims to the request context otherwise. See
ClaimsFromContext.
*/
package guard
