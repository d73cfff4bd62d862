// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrInvalidCACert             = errors.New("invalid CA certificate")
	ErrIDGeneratorFailed         = errors.New("id generation failed")
	ErrExpiredRequest            = errors.New("request is expired")
	ErrInvalidResponseState      = errors.New("invalid response state")
	ErrMissingIDToken            = errors.New("id_token is missing")
	ErrMissingAccessToken        = errors.New("access_token is missing")
	ErrIDTokenVerificationFailed = errors.New("id_token verification failed")
	ErrInvalidNonce              = errors.New("invalid id_token nonce")
	ErrUnsupportedResponseType   = errors.New("unsupported response type")
	ErrMissingEndSessionEndpoint = errors.New("provider has no end_session_endpoint")
	ErrNotFound                  = errors.New("not found")
	ErrExchangeFailed            = errors.New("code exchange failed")
)
