package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jun/fitadvice/internal/model"
	"github.com/jun/fitadvice/internal/tokenstore"
)

func newTokenServer(t *testing.T, status int, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	form := &url.Values{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-client-id" || pass != "test-client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":[{"errorType":"invalid_client"}]}`))
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm failed: %v", err)
		}
		*form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	return srv, form
}

func testService(tokenURL string, store tokenstore.Store) *Service {
	cfg := NewOAuthConfig("test-client-id", "test-client-secret", "http://localhost:8000/callback", "", tokenURL)
	return NewService(cfg, nil, 5*time.Second, store)
}

func TestService_ExchangeCode(t *testing.T) {
	srv, form := newTokenServer(t, http.StatusOK,
		`{"access_token":"tok1","refresh_token":"ref1","user_id":"u1","token_type":"Bearer","expires_in":28800}`)
	defer srv.Close()

	s := testService(srv.URL, nil)
	issued := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
	s.now = func() time.Time { return issued }

	cred, err := s.ExchangeCode(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}
	if cred.AccessToken != "tok1" || cred.RefreshToken != "ref1" || cred.UserID != "u1" {
		t.Errorf("unexpected credential: %+v", cred)
	}
	if !cred.IssuedAt.Equal(issued.Truncate(time.Second)) {
		t.Errorf("expected IssuedAt truncated to seconds, got %v", cred.IssuedAt)
	}
	if cred.Expiry.IsZero() {
		t.Error("expected Expiry to be set")
	}

	if got := form.Get("grant_type"); got != "authorization_code" {
		t.Errorf("grant_type = %q", got)
	}
	if got := form.Get("code"); got != "abc123" {
		t.Errorf("code = %q", got)
	}
	if got := form.Get("redirect_uri"); got != "http://localhost:8000/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
}

func TestService_ExchangeCode_Rejected(t *testing.T) {
	srv, _ := newTokenServer(t, http.StatusBadRequest, `{"errors":[{"errorType":"invalid_grant"}]}`)
	defer srv.Close()

	_, err := testService(srv.URL, nil).ExchangeCode(context.Background(), "expired-code")
	var oe *OAuthError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OAuthError, got %v", err)
	}
	if oe.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", oe.StatusCode)
	}
	if !strings.Contains(oe.Body, "invalid_grant") {
		t.Errorf("expected body to carry upstream error, got %q", oe.Body)
	}
}

func TestService_ExchangeCode_MissingUserID(t *testing.T) {
	srv, _ := newTokenServer(t, http.StatusOK, `{"access_token":"tok1","token_type":"Bearer"}`)
	defer srv.Close()

	_, err := testService(srv.URL, nil).ExchangeCode(context.Background(), "abc123")
	if !errors.Is(err, ErrMissingUserID) {
		t.Errorf("expected ErrMissingUserID, got %v", err)
	}
}

func TestService_ExchangeCode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := NewOAuthConfig("test-client-id", "test-client-secret", "http://localhost/callback", "", srv.URL)
	s := NewService(cfg, nil, 50*time.Millisecond, nil)

	_, err := s.ExchangeCode(context.Background(), "abc123")
	var oe *OAuthError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OAuthError, got %v", err)
	}
	if !model.IsTimeout(err) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestService_AuthURL(t *testing.T) {
	s := testService("http://unused", nil)

	raw := s.AuthURL("test-state")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", raw, err)
	}
	if !strings.HasPrefix(raw, DefaultAuthURL) {
		t.Errorf("expected Fitbit authorize URL, got %q", raw)
	}
	q := u.Query()
	if q.Get("state") != "test-state" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("client_id") != "test-client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("scope") != Scope {
		t.Errorf("scope = %q, want %q", q.Get("scope"), Scope)
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
}

func TestService_SaveToken(t *testing.T) {
	store := tokenstore.NewMemoryStore()
	s := testService("http://unused", store)
	ctx := context.Background()

	err := s.SaveToken(ctx, model.Credential{AccessToken: "tok1", RefreshToken: "ref1", UserID: "u1"})
	if err != nil {
		t.Fatalf("SaveToken failed: %v", err)
	}

	saved, err := store.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if saved.AccessToken != "tok1" || saved.Scope != Scope {
		t.Errorf("unexpected stored token: %+v", saved)
	}
}

func TestService_SaveToken_EmptyRefreshTokenKeepsExisting(t *testing.T) {
	store := tokenstore.NewMemoryStore()
	s := testService("http://unused", store)
	ctx := context.Background()

	s.SaveToken(ctx, model.Credential{AccessToken: "tok1", RefreshToken: "original-refresh", UserID: "u1"})
	s.SaveToken(ctx, model.Credential{AccessToken: "tok2", UserID: "u1"})

	saved, _ := store.Load(ctx, "u1")
	if saved.AccessToken != "tok2" {
		t.Errorf("expected new access token, got %q", saved.AccessToken)
	}
	if saved.RefreshToken != "original-refresh" {
		t.Errorf("expected original refresh token to be preserved, got %q", saved.RefreshToken)
	}
}

func TestService_SaveToken_NoStore(t *testing.T) {
	if err := testService("http://unused", nil).SaveToken(context.Background(), model.Credential{UserID: "u1"}); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
}
