// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides the redirect_uri callback (in the form of
an http.HandlerFunc) that completes an OIDC authorization code flow with
PKCE: it matches the returned state to a pending oidc.Request, exchanges the
code and hands the verified oidc.Token to a SuccessResponseFunc.
*/
package callback
