// Package auth runs the Fitbit OAuth2 authorization-code flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jun/fitadvice/internal/model"
	"github.com/jun/fitadvice/internal/tokenstore"
)

// Scope is the fixed scope requested at authorization.
const Scope = "profile activity sleep heartrate temperature oxygen_saturation respiratory_rate"

const (
	DefaultAuthURL  = "https://www.fitbit.com/oauth2/authorize"
	DefaultTokenURL = "https://api.fitbit.com/oauth2/token"
)

// ErrMissingUserID is returned when the token response has no user_id.
var ErrMissingUserID = errors.New("token response has no user_id")

// OAuthError describes a failed code exchange. StatusCode and Body are
// set when the token endpoint answered with a non-2xx status.
type OAuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *OAuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("oauth exchange failed: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("oauth exchange failed: %v", e.Err)
}

func (e *OAuthError) Unwrap() error {
	return e.Err
}

// NewOAuthConfig builds the Fitbit client configuration. Client credentials
// are sent in the Basic auth header.
func NewOAuthConfig(clientID, clientSecret, redirectURL, authURL, tokenURL string) *oauth2.Config {
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       strings.Fields(Scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// Service handles the OAuth2 flow and persists the resulting credential.
type Service struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	timeout     time.Duration
	store       tokenstore.Store
	now         func() time.Time
}

// NewService creates a new Service. store may be nil, in which case
// SaveToken is a no-op.
func NewService(oauthConfig *oauth2.Config, httpClient *http.Client, timeout time.Duration, store tokenstore.Store) *Service {
	return &Service{
		oauthConfig: oauthConfig,
		httpClient:  httpClient,
		timeout:     timeout,
		store:       store,
		now:         time.Now,
	}
}

// Config returns the OAuth2 config.
func (s *Service) Config() *oauth2.Config {
	return s.oauthConfig
}

// AuthURL returns the URL to redirect the user to for Fitbit consent.
func (s *Service) AuthURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a Credential with a single
// POST to the token endpoint.
func (s *Service) ExchangeCode(ctx context.Context, code string) (model.Credential, error) {
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tok, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return model.Credential{}, &OAuthError{StatusCode: re.Response.StatusCode, Body: string(re.Body), Err: err}
		}
		return model.Credential{}, &OAuthError{Err: model.AsTimeout("token exchange", err)}
	}

	userID, _ := tok.Extra("user_id").(string)
	if userID == "" {
		return model.Credential{}, &OAuthError{Err: ErrMissingUserID}
	}

	cred := model.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		UserID:       userID,
		IssuedAt:     s.now().UTC().Truncate(time.Second),
	}
	if !tok.Expiry.IsZero() {
		cred.Expiry = tok.Expiry.UTC().Truncate(time.Second)
	}
	return cred, nil
}

// SaveToken writes cred to the token store. An empty refresh token keeps
// the one already stored for the user.
func (s *Service) SaveToken(ctx context.Context, cred model.Credential) error {
	if s.store == nil {
		return nil
	}
	if cred.RefreshToken == "" {
		if existing, err := s.store.Load(ctx, cred.UserID); err == nil {
			cred.RefreshToken = existing.RefreshToken
		}
	}
	if err := s.store.Save(ctx, model.NewStoredToken(cred, Scope)); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}
