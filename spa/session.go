// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package spa

import (
	"fmt"
	"sync"

	"github.com/seclab/oidclab/oidc"
)

// SessionCookieName is the cookie holding a signed in browser's session id.
const SessionCookieName = "oidclab_session"

// sessionStore maps session ids to the tokens of a completed login. The
// tokens never leave the server unless the browser asks for them on /token.
type sessionStore struct {
	m sync.Mutex
	s map[string]*oidc.Token
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		s: map[string]*oidc.Token{},
	}
}

// Add stores t under a new session id.
func (ss *sessionStore) Add(t *oidc.Token) (string, error) {
	const op = "sessionStore.Add"
	if t == nil {
		return "", fmt.Errorf("%s: token is nil: %w", op, oidc.ErrNilParameter)
	}
	id, err := oidc.NewID(oidc.WithPrefix("s"))
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate session id: %w", op, err)
	}
	ss.m.Lock()
	defer ss.m.Unlock()
	ss.s[id] = t
	return id, nil
}

// Get returns the token of session id.
func (ss *sessionStore) Get(id string) (*oidc.Token, bool) {
	ss.m.Lock()
	defer ss.m.Unlock()
	t, ok := ss.s[id]
	return t, ok
}

// Delete ends session id.
func (ss *sessionStore) Delete(id string) {
	ss.m.Lock()
	defer ss.m.Unlock()
	delete(ss.s, id)
}
