package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/klwxsrx/go-auth-client/pkg/authtest"
	"github.com/klwxsrx/go-auth-client/pkg/client"
	"github.com/klwxsrx/go-auth-client/pkg/config"
	pkghttp "github.com/klwxsrx/go-auth-client/pkg/http"
	"github.com/klwxsrx/go-auth-client/pkg/log"
	"github.com/klwxsrx/go-auth-client/pkg/session"
	sessionmock "github.com/klwxsrx/go-auth-client/pkg/session/mock"
	"github.com/klwxsrx/go-auth-client/pkg/storage"
	storagemock "github.com/klwxsrx/go-auth-client/pkg/storage/mock"
)

var aliceProfile = map[string]any{
	"id":       "5b0c1e9a-6d43-4c8a-9d0b-1f1fbbd3f0a1",
	"username": "alice",
	"is_admin": true,
}

func newBackend(t *testing.T, opts ...authtest.Option) *authtest.Server {
	t.Helper()

	opts = append([]authtest.Option{authtest.WithUser("alice", "pw1", aliceProfile)}, opts...)
	srv := authtest.NewServer(opts...)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *authtest.Server, store storage.Storage, opts ...client.Option) *client.Client {
	opts = append([]client.Option{client.WithConfig(config.Config{APIBasePath: srv.URL(), Mode: "test"})}, opts...)
	return client.New(store, opts...)
}

func storeToken(t *testing.T, store storage.Storage, token string) {
	t.Helper()
	record := fmt.Sprintf(`{"access_token":%q,"token_type":"bearer"}`, token)
	require.NoError(t, store.Set(context.Background(), session.TokenKey, []byte(record)))
}

func TestNew_BaseURLFromOverrides(t *testing.T) {
	apiBasePath := "https://api.test"
	c := client.New(storage.NewMemory(),
		client.WithConfig(config.Default()),
		client.WithOverrides(config.Overrides{APIBasePath: &apiBasePath}),
	)

	assert.Equal(t, "https://api.test/api/", c.BaseURL())
	assert.Equal(t, config.Config{APIBasePath: "https://api.test", Mode: config.ModeDev}, c.Config())
}

func TestClient_Login_StoresTokenAndUser(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t)
	store := storage.NewMemory()
	c := newClient(srv, store)

	user, err := c.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	record, err := c.StoredToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, record.AccessToken)
	assert.Equal(t, []string{""}, srv.AuthorizationHeaders(authtest.LoginPath))
	assert.Equal(t, []string{"Bearer " + record.AccessToken}, srv.AuthorizationHeaders(authtest.UserPath))

	fetched, err := c.FetchUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, fetched, user)
	assert.Equal(t, client.User(aliceProfile), user)

	storedUser, err := c.StoredUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, storedUser)
	assert.True(t, c.IsAuthenticated(ctx))
}

func TestNew_LoggerFollowsMode(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t)

	var dev, prod bytes.Buffer
	devClient := client.New(storage.NewMemory(),
		client.WithConfig(config.Config{APIBasePath: srv.URL(), Mode: config.ModeDev}),
		client.WithLogLevel(log.LevelInfo),
		client.WithLogOutput(&dev),
	)
	prodClient := client.New(storage.NewMemory(),
		client.WithConfig(config.Config{APIBasePath: srv.URL(), Mode: "prod"}),
		client.WithLogLevel(log.LevelInfo),
		client.WithLogOutput(&prod),
	)

	_, err := devClient.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = prodClient.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	assert.Contains(t, dev.String(), "INF logged in")
	assert.False(t, json.Valid(dev.Bytes()))

	var messages []string
	for _, line := range strings.Split(strings.TrimSpace(prod.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		messages = append(messages, entry["message"].(string))
	}
	assert.Contains(t, messages, "logged in")
}

func TestClient_Login_StoresResponseVerbatim(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t, authtest.WithTokenTTL(30*time.Minute))
	store := storage.NewMemory()
	c := newClient(srv, store)

	_, err := c.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	raw, err := store.Get(ctx, session.TokenKey)
	require.NoError(t, err)

	record, err := session.ParseRecord(raw)
	require.NoError(t, err)
	assert.EqualValues(t, 1800, record.ExpiresIn)
	assert.JSONEq(t, fmt.Sprintf(`{"access_token":%q,"token_type":"bearer","expires_in":1800}`, record.AccessToken), string(raw))

	expiresAt, err := session.DecodeExpiry(record.AccessToken)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, time.Minute)
}

func TestClient_Login_IsUnauthenticatedEvenWithStoredSession(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t)
	store := storage.NewMemory()

	token, err := srv.IssueToken("alice", time.Now().Add(time.Hour))
	require.NoError(t, err)
	storeToken(t, store, token)

	c := newClient(srv, store, client.WithHTTPOptions(pkghttp.WithHeader(session.AuthorizationHeader, "Bearer default")))
	_, err = c.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	assert.Equal(t, []string{""}, srv.AuthorizationHeaders(authtest.LoginPath))
}

func TestClient_Login_ReturnsError(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		expect   func(t *testing.T, err error)
	}{
		{
			name:     "unauthorized_when_password_is_wrong",
			username: "alice",
			password: "wrong",
			expect: func(t *testing.T, err error) {
				var respErr *pkghttp.ResponseError
				require.ErrorAs(t, err, &respErr)
				assert.Equal(t, http.StatusUnauthorized, respErr.StatusCode)
			},
		},
		{
			name:     "unauthorized_when_user_is_unknown",
			username: "bob",
			password: "pw1",
			expect: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, pkghttp.ErrUnexpectedStatus)
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			srv := newBackend(t)
			store := storage.NewMemory()
			c := newClient(srv, store)

			_, err := c.Login(ctx, tc.username, tc.password)
			tc.expect(t, err)

			_, err = store.Get(ctx, session.TokenKey)
			assert.ErrorIs(t, err, storage.ErrNotFound)
			_, err = store.Get(ctx, session.UserKey)
			assert.ErrorIs(t, err, storage.ErrNotFound)
			assert.Empty(t, srv.AuthorizationHeaders(authtest.UserPath))
		})
	}
}

func TestClient_Login_ReturnsTransportError(t *testing.T) {
	srv := newBackend(t)
	c := newClient(srv, storage.NewMemory())
	srv.Close()

	_, err := c.Login(context.Background(), "alice", "pw1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, pkghttp.ErrUnexpectedStatus)
}

func TestClient_FetchUser_WithoutSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := newBackend(t)
	c := newClient(srv, storage.NewMemory(), client.WithNotifier(sessionmock.NewNotifier(ctrl)))

	_, err := c.FetchUser(context.Background())
	assert.ErrorIs(t, err, pkghttp.ErrUnexpectedStatus)
	assert.Equal(t, []string{""}, srv.AuthorizationHeaders(authtest.UserPath))
}

func TestClient_FetchUser_WithExpiredSession(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	srv := newBackend(t)
	store := storage.NewMemory()

	expiredAt := time.Now().Add(-time.Minute).Truncate(time.Second)
	token, err := srv.IssueToken("alice", expiredAt)
	require.NoError(t, err)
	storeToken(t, store, token)

	notifier := sessionmock.NewNotifier(ctrl)
	notifier.EXPECT().
		SessionExpired(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, event session.ExpiredEvent) {
			assert.True(t, expiredAt.Equal(event.ExpiredAt))
		}).
		Times(1)

	c := newClient(srv, store, client.WithNotifier(notifier))
	_, err = c.FetchUser(ctx)

	var respErr *pkghttp.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusUnauthorized, respErr.StatusCode)
	assert.Equal(t, []string{""}, srv.AuthorizationHeaders(authtest.UserPath))
	assert.False(t, c.IsAuthenticated(ctx))
}

func TestClient_FetchUser_WithMalformedSession(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t)
	store := storage.NewMemory()
	storeToken(t, store, "not-a-jwt")

	c := newClient(srv, store)
	_, err := c.FetchUser(ctx)

	assert.ErrorIs(t, err, session.ErrMalformedSession)
	assert.Empty(t, srv.AuthorizationHeaders(authtest.UserPath))

	require.NoError(t, c.Logout(ctx))
	_, err = c.FetchUser(ctx)
	assert.ErrorIs(t, err, pkghttp.ErrUnexpectedStatus)
}

func TestClient_FetchUser_ReturnsStorageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := newBackend(t)
	token, err := srv.IssueToken("alice", time.Now().Add(time.Hour))
	require.NoError(t, err)

	store := storagemock.NewStorage(ctrl)
	store.EXPECT().
		Get(gomock.Any(), session.TokenKey).
		Return([]byte(fmt.Sprintf(`{"access_token":%q}`, token)), nil)
	store.EXPECT().
		Set(gomock.Any(), session.UserKey, gomock.Any()).
		Return(errors.New("disk full"))

	c := newClient(srv, store)
	_, err = c.FetchUser(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"Bearer " + token}, srv.AuthorizationHeaders(authtest.UserPath))
}

func TestClient_FetchUser_RejectsNonObjectProfile(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "null", body: `null`},
		{name: "array", body: `[]`},
		{name: "string", body: `"alice"`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			store := storage.NewMemory()
			c := client.New(store, client.WithConfig(config.Config{APIBasePath: srv.URL}))

			user, err := c.FetchUser(ctx)
			assert.Error(t, err)
			assert.Nil(t, user)

			_, err = store.Get(ctx, session.UserKey)
			assert.ErrorIs(t, err, storage.ErrNotFound)
			_, err = c.StoredUser(ctx)
			assert.ErrorIs(t, err, session.ErrNoSession)
		})
	}
}

func TestClient_Logout_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t)
	store := storage.NewMemory()
	c := newClient(srv, store)

	require.NoError(t, c.Logout(ctx))

	_, err := c.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))
	require.NoError(t, c.Logout(ctx))

	_, err = store.Get(ctx, session.TokenKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Get(ctx, session.UserKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = c.StoredUser(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = c.StoredToken(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
	assert.False(t, c.IsAuthenticated(ctx))
}

func TestClient_TokenSource(t *testing.T) {
	ctx := context.Background()
	srv := newBackend(t)
	store := storage.NewMemory()
	c := newClient(srv, store)

	_, err := c.TokenSource(ctx).Token()
	assert.ErrorIs(t, err, session.ErrNoSession)

	_, err = c.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	token, err := c.TokenSource(ctx).Token()
	require.NoError(t, err)
	record, err := c.StoredToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.AccessToken, token.AccessToken)
	assert.True(t, token.Valid())

	expired, err := srv.IssueToken("alice", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	storeToken(t, store, expired)

	_, err = c.TokenSource(ctx).Token()
	assert.ErrorIs(t, err, session.ErrSessionExpired)
}
