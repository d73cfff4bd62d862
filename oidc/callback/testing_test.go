// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/seclab/oidclab/oidc"
	"github.com/stretchr/testify/require"
)

// testSuccessFn is a test SuccessResponseFunc
func testSuccessFn(state string, t *oidc.Token, w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("login successful"))
}

// testFailFn is a test ErrorResponseFunc
func testFailFn(state string, r *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
	if e != nil {
		w.WriteHeader(http.StatusInternalServerError)
		j, _ := json.Marshal(&AuthenErrorResponse{
			Error:       "internal-callback-error",
			Description: e.Error(),
		})
		_, _ = w.Write(j)
		return
	}
	if r != nil {
		w.WriteHeader(http.StatusUnauthorized)
		j, _ := json.Marshal(r)
		_, _ = w.Write(j)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	j, _ := json.Marshal(&AuthenErrorResponse{
		Error: "unknown-callback-error",
	})
	_, _ = w.Write(j)
}

// testNilRequestReader returns a nil request and no error
type testNilRequestReader struct{}

func (*testNilRequestReader) Read(context.Context, string) (oidc.Request, error) {
	return nil, nil
}

// testContextRecordingReader returns its Request and keeps the context it
// was read with.
type testContextRecordingReader struct {
	Request oidc.Request
	ctx     context.Context
}

func (r *testContextRecordingReader) Read(ctx context.Context, _ string) (oidc.Request, error) {
	r.ctx = ctx
	return r.Request, nil
}

// testNewClient creates a new public Client for the TestProvider's realm.
func testNewClient(t *testing.T, clientID, redirectURL string, tp *oidc.TestProvider) *oidc.Client {
	const op = "testNewClient"
	t.Helper()
	require := require.New(t)
	require.NotEmptyf(clientID, "%s: client id is empty", op)
	require.NotEmptyf(redirectURL, "%s: redirect URL is empty", op)

	tp.SetClientCreds(clientID, "")
	_, _, alg := tp.SigningKeys()
	c, err := oidc.NewConfig(
		tp.Issuer(),
		clientID,
		[]oidc.Alg{alg},
		redirectURL,
		oidc.WithScopes("profile", "email"),
		oidc.WithProviderCA(tp.CACert()),
	)
	require.NoError(err)
	client, err := oidc.NewClient(c)
	require.NoError(err)
	t.Cleanup(client.Done)
	return client
}
