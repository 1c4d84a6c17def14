// Package authtest runs a fake tracker backend for tests of code built on pkg/client.
//
// The server implements the two endpoints the client talks to:
//
//	POST /api/login  form: grant_type=password, username, password
//	GET  /api/admin  requires "Authorization: Bearer <token>"
//
// Tokens are HS256 JWTs carrying sub, exp, iat and jti claims.
package authtest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	LoginPath = "/api/login"
	UserPath  = "/api/admin"

	defaultTokenTTL = time.Hour
	bearerPrefix    = "Bearer "
)

type (
	Option func(*Server)

	Server struct {
		impl     *httptest.Server
		secret   []byte
		tokenTTL time.Duration
		now      func() time.Time
		users    map[string]account

		mu       sync.Mutex
		requests map[string][]string
	}

	account struct {
		password string
		profile  map[string]any
	}
)

func WithUser(username, password string, profile map[string]any) Option {
	return func(s *Server) {
		if profile == nil {
			profile = map[string]any{
				"id":       uuid.NewString(),
				"username": username,
			}
		}
		s.users[username] = account{password: password, profile: profile}
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		secret:   []byte(uuid.NewString()),
		tokenTTL: defaultTokenTTL,
		now:      time.Now,
		users:    make(map[string]account),
		requests: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	router.Use(s.recordAuthorization)
	router.HandleFunc(LoginPath, s.handleLogin).Methods(http.MethodPost)
	router.HandleFunc(UserPath, s.handleUser).Methods(http.MethodGet)

	s.impl = httptest.NewServer(router)
	return s
}

// URL is the API base path to configure the client with.
func (s *Server) URL() string {
	return s.impl.URL
}

func (s *Server) Close() {
	s.impl.Close()
}

// AuthorizationHeaders lists the Authorization header of every request to path, in order.
// Requests without the header are recorded as an empty string.
func (s *Server) AuthorizationHeaders(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.requests[path]...)
}

func (s *Server) IssueToken(subject string, expiresAt time.Time) (string, error) {
	now := s.now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": uuid.NewString(),
	}).SignedString(s.secret)
}

func (s *Server) recordAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path] = append(s.requests[r.URL.Path], r.Header.Get("Authorization"))
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	err := r.ParseForm()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, detail("invalid form"))
		return
	}
	if r.PostForm.Get("grant_type") != "password" {
		writeJSON(w, http.StatusBadRequest, detail("unsupported grant type"))
		return
	}

	username := r.PostForm.Get("username")
	acc, ok := s.users[username]
	if !ok || acc.password != r.PostForm.Get("password") {
		writeJSON(w, http.StatusUnauthorized, detail("incorrect username or password"))
		return
	}

	token, err := s.IssueToken(username, s.now().Add(s.tokenTTL))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, detail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int64(s.tokenTTL / time.Second),
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	subject, err := s.authenticate(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, detail(err.Error()))
		return
	}

	acc, ok := s.users[subject]
	if !ok {
		writeJSON(w, http.StatusNotFound, detail("user not found"))
		return
	}

	writeJSON(w, http.StatusOK, acc.profile)
}

func (s *Server) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errors.New("not authenticated")
	}

	token, err := jwt.Parse(
		strings.TrimPrefix(header, bearerPrefix),
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	return token.Claims.GetSubject()
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
