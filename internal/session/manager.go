// Package session issues and validates the signed session tokens handed to
// the dashboard after login.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jun/fitadvice/internal/model"
)

// DefaultTTL is the validity window of a session token.
const DefaultTTL = time.Hour

// InvalidSessionError is returned for any token that fails validation.
type InvalidSessionError struct {
	Err error
}

func (e *InvalidSessionError) Error() string {
	return fmt.Sprintf("invalid session: %v", e.Err)
}

func (e *InvalidSessionError) Unwrap() error {
	return e.Err
}

var errMissingCredential = errors.New("token carries no access token")

type sessionClaims struct {
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	UserID        string `json:"user_id"`
	TokenIssuedAt int64  `json:"token_iat,omitempty"`
	TokenExpiry   int64  `json:"token_exp,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs session tokens with HS256.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a Manager. A non-positive ttl falls back to DefaultTTL.
func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the validity window.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue signs a token embedding cred, valid for the configured window.
func (m *Manager) Issue(cred model.Credential) (string, error) {
	now := m.now().UTC()
	c := sessionClaims{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		UserID:       cred.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if !cred.IssuedAt.IsZero() {
		c.TokenIssuedAt = cred.IssuedAt.Unix()
	}
	if !cred.Expiry.IsZero() {
		c.TokenExpiry = cred.Expiry.Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm and expiry and returns the embedded credential.
func (m *Manager) Validate(tokenString string) (model.Credential, error) {
	var c sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return model.Credential{}, &InvalidSessionError{Err: err}
	}
	if c.AccessToken == "" {
		return model.Credential{}, &InvalidSessionError{Err: errMissingCredential}
	}

	cred := model.Credential{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		UserID:       c.UserID,
	}
	if c.TokenIssuedAt != 0 {
		cred.IssuedAt = time.Unix(c.TokenIssuedAt, 0).UTC()
	}
	if c.TokenExpiry != 0 {
		cred.Expiry = time.Unix(c.TokenExpiry, 0).UTC()
	}
	return cred, nil
}
