package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/oauth2"

	"github.com/klwxsrx/go-auth-client/pkg/config"
	"github.com/klwxsrx/go-auth-client/pkg/env"
	pkghttp "github.com/klwxsrx/go-auth-client/pkg/http"
	"github.com/klwxsrx/go-auth-client/pkg/log"
	"github.com/klwxsrx/go-auth-client/pkg/session"
	"github.com/klwxsrx/go-auth-client/pkg/storage"
	pkgtime "github.com/klwxsrx/go-auth-client/pkg/time"
)

const (
	LoginPath = "login"
	UserPath  = "admin"

	passwordGrantType = "password"
)

var errUserNotObject = errors.New("user profile is not a json object")

type (
	// User is the profile object returned by the backend, kept as decoded JSON.
	User map[string]any

	Option func(*options)

	options struct {
		config      *config.Config
		overrides   config.Overrides
		logger      log.Logger
		logLevel    log.Level
		logOutput   io.Writer
		clock       pkgtime.Clock
		notifier    session.Notifier
		httpOptions []pkghttp.ClientOption
	}

	Client struct {
		config     config.Config
		storage    storage.Storage
		authorizer *session.Authorizer
		http       pkghttp.Client
		logger     log.Logger
	}
)

func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.config = &cfg
	}
}

func WithOverrides(overrides config.Overrides) Option {
	return func(o *options) {
		o.overrides = overrides
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel enables the built-in logger, which prints human-readable lines in the dev mode
// and JSON otherwise. It has no effect together with WithLogger.
func WithLogLevel(level log.Level) Option {
	return func(o *options) {
		o.logLevel = level
	}
}

// WithLogOutput redirects the built-in logger, stderr by default.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

func WithClock(clock pkgtime.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithNotifier sets who is told when a request goes out with an expired session.
// By default the event is logged.
func WithNotifier(notifier session.Notifier) Option {
	return func(o *options) {
		o.notifier = notifier
	}
}

func WithHTTPOptions(opts ...pkghttp.ClientOption) Option {
	return func(o *options) {
		o.httpOptions = append(o.httpOptions, opts...)
	}
}

// New builds a client bound to {apiBasePath}/api/. The configuration comes from the process
// environment unless WithConfig is given; overrides are applied on top.
func New(store storage.Storage, opts ...Option) *Client {
	o := options{
		logLevel:  log.LevelDisabled,
		logOutput: os.Stderr,
		clock:     pkgtime.NewAdjustableClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := config.Load(env.OS(), config.DefaultPrefix)
	if o.config != nil {
		cfg = *o.config
	}
	cfg = cfg.Merge(o.overrides)

	if o.logger == nil {
		o.logger = log.ForMode(cfg, o.logOutput, o.logLevel)
	}

	if o.notifier == nil {
		o.notifier = session.NewLogNotifier(o.logger)
	}

	authorizer := session.NewAuthorizer(store, o.clock, o.notifier, o.logger)

	httpOpts := make([]pkghttp.ClientOption, 0, len(o.httpOptions)+3)
	httpOpts = append(httpOpts,
		pkghttp.WithBaseURL(cfg.APIBaseURL()),
		pkghttp.WithRequestLogging(o.logger, log.LevelInfo, log.LevelWarn),
	)
	httpOpts = append(httpOpts, o.httpOptions...)
	httpOpts = append(httpOpts, pkghttp.WithRequestInterceptor(authorizer.Authorize))

	return &Client{
		config:     cfg,
		storage:    store,
		authorizer: authorizer,
		http:       pkghttp.NewClient(httpOpts...),
		logger:     o.logger,
	}
}

func (c *Client) Config() config.Config {
	return c.config
}

func (c *Client) BaseURL() string {
	return c.http.BaseURL()
}

// Login exchanges credentials for a token with the password grant, stores the token
// response as is and then fetches the user profile.
// The login request never carries an Authorization header.
func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	c.http.DeleteHeader(session.AuthorizationHeader)

	resp, err := pkghttp.CheckResponse(
		c.http.NewRequest(session.Anonymous(ctx)).
			SetFormData(map[string]string{
				"grant_type": passwordGrantType,
				"username":   username,
				"password":   password,
			}).
			Post(LoginPath),
	)
	if err != nil {
		return nil, fmt.Errorf("request login: %w", err)
	}

	err = c.storage.Set(ctx, session.TokenKey, resp.Body())
	if err != nil {
		return nil, fmt.Errorf("store session token: %w", err)
	}
	c.logger.WithField("username", username).Info(ctx, "logged in")

	return c.FetchUser(ctx)
}

func (c *Client) FetchUser(ctx context.Context) (User, error) {
	resp, err := pkghttp.CheckResponse(c.http.NewRequest(ctx).Get(UserPath))
	if err != nil {
		return nil, fmt.Errorf("request user: %w", err)
	}

	user, err := decodeUser(resp.Body())
	if err != nil {
		return nil, err
	}

	err = c.storage.Set(ctx, session.UserKey, resp.Body())
	if err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}

	return user, nil
}

// Logout forgets the stored token and user. It is safe to call without a session.
func (c *Client) Logout(ctx context.Context) error {
	return errors.Join(
		c.storage.Delete(ctx, session.TokenKey),
		c.storage.Delete(ctx, session.UserKey),
	)
}

// StoredUser returns the profile saved by the last successful FetchUser.
func (c *Client) StoredUser(ctx context.Context) (User, error) {
	raw, err := c.storage.Get(ctx, session.UserKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, session.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	return decodeUser(raw)
}

// StoredToken returns the stored token record whether or not it has expired.
func (c *Client) StoredToken(ctx context.Context) (session.Record, error) {
	record, _, err := c.authorizer.Session(ctx)
	return record, err
}

func (c *Client) IsAuthenticated(ctx context.Context) bool {
	_, _, err := c.authorizer.Valid(ctx)
	return err == nil
}

// TokenSource exposes the stored session to golang.org/x/oauth2 consumers.
// Every Token call re-reads storage; an expired session yields session.ErrSessionExpired.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, authorizer: c.authorizer}
}

type tokenSource struct {
	ctx        context.Context
	authorizer *session.Authorizer
}

func (s tokenSource) Token() (*oauth2.Token, error) {
	record, expiresAt, err := s.authorizer.Valid(s.ctx)
	if err != nil {
		return nil, err
	}
	return record.OAuth2(expiresAt), nil
}

func decodeUser(raw []byte) (User, error) {
	var user User
	err := json.Unmarshal(raw, &user)
	if err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("decode user: %w", errUserNotObject)
	}
	return user, nil
}
