package authtest_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-auth-client/pkg/authtest"
)

func getUser(t *testing.T, srv *authtest.Server, authorization string) int {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL()+authtest.UserPath, nil)
	require.NoError(t, err)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestServer_Login_RejectsUnsupportedGrant(t *testing.T) {
	srv := authtest.NewServer(authtest.WithUser("alice", "pw1", nil))
	defer srv.Close()

	form := url.Values{"grant_type": {"client_credentials"}, "username": {"alice"}, "password": {"pw1"}}
	resp, err := http.Post(srv.URL()+authtest.LoginPath, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_User_ChecksBearerToken(t *testing.T) {
	now := time.Now()
	srv := authtest.NewServer(
		authtest.WithUser("alice", "pw1", nil),
		authtest.WithClock(func() time.Time { return now }),
	)
	defer srv.Close()

	valid, err := srv.IssueToken("alice", now.Add(time.Minute))
	require.NoError(t, err)
	expired, err := srv.IssueToken("alice", now.Add(-time.Minute))
	require.NoError(t, err)
	unknown, err := srv.IssueToken("bob", now.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, getUser(t, srv, "Bearer "+valid))
	assert.Equal(t, http.StatusUnauthorized, getUser(t, srv, "Bearer "+expired))
	assert.Equal(t, http.StatusUnauthorized, getUser(t, srv, ""))
	assert.Equal(t, http.StatusNotFound, getUser(t, srv, "Bearer "+unknown))

	assert.Equal(t, []string{"Bearer " + valid, "Bearer " + expired, "", "Bearer " + unknown}, srv.AuthorizationHeaders(authtest.UserPath))
}
