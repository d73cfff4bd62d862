// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"net/http"

	"github.com/seclab/oidclab/oidc"
)

// SuccessResponseFunc is used by AuthCode to create a http response when the
// callback is successful.
//
// The state parameter contains the state that was returned as part of a
// successful oidc authentication response. The oidc.Token is the result of a
// successful and verified token exchange with the provider. The function
// should use the http.ResponseWriter to send back whatever content (headers,
// cookies, redirects, JSON, etc) it wishes to the browser that originated the
// oidc flow.
type SuccessResponseFunc func(state string, t *oidc.Token, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by AuthCode to create a http response when the
// callback fails.
//
// The function receives the state returned as part of the oidc authentication
// response. It also gets parameters for the oidc authentication error response
// and/or the callback error raised while processing the request. Exactly one
// of respErr and e is non-nil.
type ErrorResponseFunc func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses. See:
// https://openid.net/specs/openid-connect-core-1_0.html#AuthError
type AuthenErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	Uri         string `json:"error_uri,omitempty"`
}
