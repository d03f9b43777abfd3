package config

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

type mapResolver map[string]string

func (m mapResolver) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", fmt.Errorf("secret %q not found", name)
	}
	return v, nil
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CLIENT_ID", "client-123")
	t.Setenv("REDIRECT_URI", "http://localhost:8080/callback")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.ClientID != "client-123" {
		t.Errorf("ClientID = %q, want %q", cfg.ClientID, "client-123")
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want 1h", cfg.SessionTTL)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 10s", cfg.UpstreamTimeout)
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.TokenStore != "file" || cfg.TokenFile != "token.json" {
		t.Errorf("unexpected token store defaults: %q %q", cfg.TokenStore, cfg.TokenFile)
	}
	if cfg.FitbitAPIBase != "https://api.fitbit.com" {
		t.Errorf("FitbitAPIBase = %q", cfg.FitbitAPIBase)
	}
	if len(cfg.ExtraCategories) != 0 {
		t.Errorf("ExtraCategories = %v, want empty", cfg.ExtraCategories)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("EXTRA_CATEGORIES", "spo2, skin_temp")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TOKEN_STORE", "redis")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v, want 30m", cfg.SessionTTL)
	}
	if len(cfg.ExtraCategories) != 2 || cfg.ExtraCategories[0] != "spo2" || cfg.ExtraCategories[1] != "skin_temp" {
		t.Errorf("ExtraCategories = %v", cfg.ExtraCategories)
	}
	if !cfg.DevMode {
		t.Error("expected DevMode true")
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
	if cfg.TokenStore != "redis" {
		t.Errorf("TokenStore = %q, want redis", cfg.TokenStore)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	t.Setenv("CLIENT_ID", "")
	t.Setenv("REDIRECT_URI", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing required variables")
	}
	for _, name := range []string{"CLIENT_ID", "REDIRECT_URI"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should mention %s", err, name)
		}
	}
}

func TestValidate_UnknownTokenStore(t *testing.T) {
	setRequired(t)
	t.Setenv("TOKEN_STORE", "postgres")

	cfg, _ := Load()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown token store")
	}
}

func TestResolveSecrets(t *testing.T) {
	setRequired(t)
	cfg, _ := Load()

	r := mapResolver{
		"/fitadvice/client-secret":  "cs",
		"/fitadvice/jwt-secret":     "js",
		"/fitadvice/gemini-api-key": "gk",
	}
	if err := cfg.ResolveSecrets(context.Background(), r); err != nil {
		t.Fatalf("ResolveSecrets failed: %v", err)
	}
	if cfg.ClientSecret != "cs" || cfg.JWTSecret != "js" || cfg.GeminiAPIKey != "gk" {
		t.Errorf("secrets not resolved: %q %q %q", cfg.ClientSecret, cfg.JWTSecret, cfg.GeminiAPIKey)
	}
	if cfg.OriginVerifySecret != "" {
		t.Errorf("OriginVerifySecret should stay empty without a parameter name")
	}
}

func TestResolveSecrets_ReportsAllMissing(t *testing.T) {
	setRequired(t)
	cfg, _ := Load()

	err := cfg.ResolveSecrets(context.Background(), mapResolver{"/fitadvice/jwt-secret": "js"})
	if err == nil {
		t.Fatal("expected error for missing secrets")
	}
	if !strings.Contains(err.Error(), ClientSecretParam) || !strings.Contains(err.Error(), GeminiAPIKeyParam) {
		t.Errorf("error %q should list every missing secret", err)
	}
}

func TestSecretName(t *testing.T) {
	cfg := &Config{SecretPrefix: "/fitadvice/"}
	if got := cfg.SecretName(JWTSecretParam); got != "/fitadvice/jwt-secret" {
		t.Errorf("SecretName = %q", got)
	}
	cfg.SecretPrefix = "/prod/fitadvice"
	if got := cfg.SecretName(JWTSecretParam); got != "/prod/fitadvice/jwt-secret" {
		t.Errorf("SecretName = %q", got)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "UTC"}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Errorf("Location = %v, %v", loc, err)
	}

	cfg.Timezone = ""
	if loc, err := cfg.Location(); err != nil || loc != time.Local {
		t.Errorf("expected time.Local for an empty zone, got %v, %v", loc, err)
	}

	cfg.Timezone = "Not/AZone"
	if _, err := cfg.Location(); err == nil {
		t.Error("expected error for an unknown zone")
	}
}

func TestValidate_UnknownTimezone(t *testing.T) {
	setRequired(t)
	t.Setenv("TIMEZONE", "Not/AZone")

	cfg, _ := Load()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if !strings.Contains(err.Error(), "TIMEZONE") {
		t.Errorf("error %q should name TIMEZONE", err)
	}
}
