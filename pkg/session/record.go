package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	TokenKey = "token"
	UserKey  = "user"
)

var (
	ErrNoSession          = errors.New("no session stored")
	ErrSessionExpired     = errors.New("session expired")
	ErrMalformedSession   = errors.New("stored session is malformed")
	errMissingAccessToken = errors.New("access_token is missing")
)

// Record is the persisted login response. Raw holds the payload exactly as the server sent it.
type Record struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresIn    int64           `json:"expires_in,omitempty"`
	Raw          json.RawMessage `json:"-"`
}

func ParseRecord(raw []byte) (Record, error) {
	var record Record
	err := json.Unmarshal(raw, &record)
	if err != nil {
		return Record{}, fmt.Errorf("%w: decode token record: %w", ErrMalformedSession, err)
	}
	if record.AccessToken == "" {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedSession, errMissingAccessToken)
	}

	record.Raw = append(json.RawMessage(nil), raw...)
	return record, nil
}

// DecodeExpiry reads the exp claim of an access token without verifying its signature.
// The result is in UTC. A token without exp yields the zero time, which is always in the past.
func DecodeExpiry(accessToken string) (time.Time, error) {
	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: decode access token: %w", ErrMalformedSession, err)
	}

	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: decode exp claim: %w", ErrMalformedSession, err)
	}
	if exp == nil {
		return time.Time{}, nil
	}

	return exp.Time.UTC(), nil
}

func (r Record) OAuth2(expiry time.Time) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
		Expiry:       expiry,
	}

	var extra map[string]any
	if err := json.Unmarshal(r.Raw, &extra); err == nil {
		token = token.WithExtra(extra)
	}

	return token
}
