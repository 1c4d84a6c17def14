package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/klwxsrx/go-auth-client/pkg/log"
	"github.com/klwxsrx/go-auth-client/pkg/storage"
	pkgtime "github.com/klwxsrx/go-auth-client/pkg/time"
)

const (
	AuthorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

const anonymousContextKey contextKey = iota

type contextKey int

// Anonymous marks requests made with ctx as unauthenticated: Authorize strips the
// Authorization header and never looks at the stored session.
func Anonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousContextKey, true)
}

func IsAnonymous(ctx context.Context) bool {
	anonymous, _ := ctx.Value(anonymousContextKey).(bool)
	return anonymous
}

// Authorizer derives the authorization state from the stored token record on every call.
// Nothing is cached between calls.
type Authorizer struct {
	storage  storage.Storage
	clock    pkgtime.Clock
	notifier Notifier
	logger   log.Logger
}

func NewAuthorizer(
	storage storage.Storage,
	clock pkgtime.Clock,
	notifier Notifier,
	logger log.Logger,
) *Authorizer {
	return &Authorizer{
		storage:  storage,
		clock:    clock,
		notifier: notifier,
		logger:   logger,
	}
}

// Session loads the stored record and its expiry. Returns ErrNoSession when nothing is stored.
func (a *Authorizer) Session(ctx context.Context) (Record, time.Time, error) {
	raw, err := a.storage.Get(ctx, TokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, time.Time{}, ErrNoSession
	}
	if err != nil {
		return Record{}, time.Time{}, fmt.Errorf("load session token: %w", err)
	}

	record, err := ParseRecord(raw)
	if err != nil {
		return Record{}, time.Time{}, err
	}

	expiresAt, err := DecodeExpiry(record.AccessToken)
	if err != nil {
		return Record{}, time.Time{}, err
	}

	return record, expiresAt, nil
}

// Valid is Session plus the expiry check: a token is valid while its exp is after now.
func (a *Authorizer) Valid(ctx context.Context) (Record, time.Time, error) {
	return a.valid(ctx, a.clock.Now(ctx))
}

func (a *Authorizer) valid(ctx context.Context, now time.Time) (Record, time.Time, error) {
	record, expiresAt, err := a.Session(ctx)
	if err != nil {
		return Record{}, time.Time{}, err
	}
	if !expiresAt.After(now) {
		return record, expiresAt, ErrSessionExpired
	}

	return record, expiresAt, nil
}

// Authorize is run once per outgoing request before it is sent.
// A valid session sets "Authorization: Bearer <token>". No session or an expired one leaves
// the request without the header; the expired case notifies exactly once.
// A malformed stored session fails the request.
func (a *Authorizer) Authorize(ctx context.Context, header http.Header) error {
	header.Del(AuthorizationHeader)
	if IsAnonymous(ctx) {
		return nil
	}

	now := a.clock.Now(ctx)
	record, expiresAt, err := a.valid(ctx, now)
	switch {
	case err == nil:
		header.Set(AuthorizationHeader, bearerPrefix+record.AccessToken)
		return nil
	case errors.Is(err, ErrNoSession):
		return nil
	case errors.Is(err, ErrSessionExpired):
		a.logger.
			WithField("expiredAt", expiresAt).
			Warn(ctx, "session expired, request is sent without authorization")
		a.notifier.SessionExpired(ctx, ExpiredEvent{
			Message:    ExpiredMessage,
			ExpiredAt:  expiresAt,
			DetectedAt: now,
		})
		return nil
	case errors.Is(err, ErrMalformedSession):
		a.logger.WithError(err).Error(ctx, "stored session is malformed")
		return fmt.Errorf("authorize request: %w", err)
	default:
		return fmt.Errorf("authorize request: %w", err)
	}
}
