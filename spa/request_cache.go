// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package spa

import (
	"context"
	"fmt"
	"sync"

	"github.com/seclab/oidclab/oidc"
	"github.com/seclab/oidclab/oidc/callback"
)

// requestCache holds the logins that were started but haven't come back
// through the callback yet.
type requestCache struct {
	m sync.Mutex
	c map[string]oidc.Request
}

var _ callback.RequestReader = (*requestCache)(nil)

func newRequestCache() *requestCache {
	return &requestCache{
		c: map[string]oidc.Request{},
	}
}

// Read implements the callback.RequestReader interface. A request can only
// be read once.
func (rc *requestCache) Read(_ context.Context, state string) (oidc.Request, error) {
	const op = "requestCache.Read"
	rc.m.Lock()
	defer rc.m.Unlock()
	oidcRequest, ok := rc.c[state]
	if !ok {
		return nil, fmt.Errorf("%s: state %q: %w", op, state, oidc.ErrNotFound)
	}
	delete(rc.c, state)
	if oidcRequest.IsExpired() {
		return nil, fmt.Errorf("%s: state %q: %w", op, state, oidc.ErrExpiredRequest)
	}
	return oidcRequest, nil
}

// Add stores r and drops every expired request.
func (rc *requestCache) Add(r oidc.Request) {
	rc.m.Lock()
	defer rc.m.Unlock()
	for state, existing := range rc.c {
		if existing.IsExpired() {
			delete(rc.c, state)
		}
	}
	rc.c[r.State()] = r
}

// Len returns the number of pending requests.
func (rc *requestCache) Len() int {
	rc.m.Lock()
	defer rc.m.Unlock()
	return len(rc.c)
}
