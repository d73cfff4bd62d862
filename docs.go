// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// oidclab demonstrates the OAuth2/OIDC authorization code flow against a
// Keycloak realm with two tiers: an API whose single route is guarded by
// bearer token verification (see the guard, jwt and api packages) and a
// browser facing client tier (see the oidc, oidc/callback and spa
// packages). Both are started with cmd/oidclab and configured through the
// config package.
package oidclab
