// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"

	"github.com/seclab/oidclab/oidc"
)

// RequestReader defines an interface for finding and reading an oidc.Request
//
// Implementations must be concurrently safe, since the reader will likely be
// used within a concurrent http.Handler
type RequestReader interface {
	// Read an existing Request entry. The returned request's State() must
	// match the state used to look it up. A Request that isn't found is
	// reported as (nil, nil) or as an error wrapping oidc.ErrNotFound.
	Read(ctx context.Context, state string) (oidc.Request, error)
}

// SingleRequestReader implements the RequestReader interface for a single request.
// It is concurrently safe.
type SingleRequestReader struct {
	Request oidc.Request
}

// Read will return its single request if the state matches its
// Request.State(), otherwise it returns an error of oidc.ErrNotFound. It
// satisfies the RequestReader interface.
func (sr *SingleRequestReader) Read(_ context.Context, state string) (oidc.Request, error) {
	const op = "SingleRequestReader.Read"
	if sr.Request == nil || sr.Request.State() != state {
		return nil, fmt.Errorf("%s: %w", op, oidc.ErrNotFound)
	}
	return sr.Request, nil
}
