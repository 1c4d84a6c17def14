// Package client is an authenticated HTTP client for the tracker API.
//
// A Client logs in with the OAuth2 password grant, keeps the token response and the user
// profile in a storage.Storage and authorizes every later request from the stored token:
//
//	c := client.New(storage.NewMemory(), client.WithNotifier(notifier))
//	user, err := c.Login(ctx, "alice", "secret")
//	...
//	user, err = c.FetchUser(ctx)
//	...
//	err = c.Logout(ctx)
//
// Token validity is checked on every request against the token's exp claim. An expired
// token is not sent; the configured session.Notifier is told instead and the request goes
// out unauthenticated. A stored token that cannot be decoded fails the request with
// session.ErrMalformedSession until Logout or the next successful Login replaces it.
//
// Transport errors and non-2xx responses are returned as they are, wrapped with the
// operation name; non-2xx responses unwrap to *http.ResponseError from pkg/http.
package client
