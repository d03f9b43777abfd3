// Package config loads runtime configuration from the environment.
// Values are read once at start-up and treated as immutable.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jun/fitadvice/internal/secret"
)

// Config holds every setting the backend, Lambda and CLI read.
type Config struct {
	// Fitbit OAuth app
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"-"`
	RedirectURI    string `mapstructure:"redirect_uri"`
	FitbitAuthURL  string `mapstructure:"fitbit_auth_url"`
	FitbitTokenURL string `mapstructure:"fitbit_token_url"`
	FitbitAPIBase  string `mapstructure:"fitbit_api_base"`

	// Session
	JWTSecret  string        `mapstructure:"-"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	// Generation endpoint
	GeminiAPIKey   string `mapstructure:"-"`
	GeminiModel    string `mapstructure:"gemini_model"`
	GeminiEndpoint string `mapstructure:"gemini_endpoint"`
	AdviceCount    int    `mapstructure:"advice_count"`

	// Pipeline
	UpstreamTimeout   time.Duration `mapstructure:"upstream_timeout"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	ExtraCategories   []string      `mapstructure:"extra_categories"`
	Timezone          string        `mapstructure:"timezone"`

	// Dashboard addressing
	HostURL      string `mapstructure:"host_url"`
	APIURL       string `mapstructure:"api_url"`
	DashboardURL string `mapstructure:"dashboard_url"`

	// Token Store
	TokenStore     string `mapstructure:"token_store"`
	TokenFile      string `mapstructure:"token_file"`
	TokenTable     string `mapstructure:"token_table"`
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
	KMSKeyID       string `mapstructure:"kms_key_id"`

	// Secrets
	SecretSource            string `mapstructure:"secret_source"`
	SecretPrefix            string `mapstructure:"secret_prefix"`
	OriginVerifySecretParam string `mapstructure:"origin_verify_secret_param"`
	OriginVerifySecret      string `mapstructure:"-"`

	// Runtime
	DevMode     bool   `mapstructure:"dev_mode"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	HTTPAddress string `mapstructure:"http_address"`
}

// Secret parameter names, relative to SecretPrefix. The env resolver maps
// "client-secret" to CLIENT_SECRET and so on.
const (
	ClientSecretParam = "client-secret"
	JWTSecretParam    = "jwt-secret"
	GeminiAPIKeyParam = "gemini-api-key"
)

var keys = []string{
	"client_id", "redirect_uri", "fitbit_auth_url", "fitbit_token_url", "fitbit_api_base",
	"session_ttl",
	"gemini_model", "gemini_endpoint", "advice_count",
	"upstream_timeout", "generation_timeout", "extra_categories", "timezone",
	"host_url", "api_url", "dashboard_url",
	"token_store", "token_file", "token_table",
	"redis_addr", "redis_password", "redis_db", "redis_key_prefix", "kms_key_id",
	"secret_source", "secret_prefix", "origin_verify_secret_param",
	"dev_mode", "log_level", "log_format", "http_address",
}

// Load reads configuration from environment variables, applying defaults.
// It does not resolve secrets; see ResolveSecrets.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ExtraCategories = splitAndTrim(cfg.ExtraCategories)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fitbit_auth_url", "https://www.fitbit.com/oauth2/authorize")
	v.SetDefault("fitbit_token_url", "https://api.fitbit.com/oauth2/token")
	v.SetDefault("fitbit_api_base", "https://api.fitbit.com")
	v.SetDefault("session_ttl", "1h")

	v.SetDefault("gemini_model", "gemini-1.5-flash")
	v.SetDefault("gemini_endpoint", "")
	v.SetDefault("advice_count", 5)

	v.SetDefault("upstream_timeout", "10s")
	v.SetDefault("generation_timeout", "60s")
	v.SetDefault("extra_categories", "")
	v.SetDefault("timezone", "Local")

	v.SetDefault("host_url", "http://localhost:8080")
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("dashboard_url", "http://localhost:8501")

	v.SetDefault("token_store", "file")
	v.SetDefault("token_file", "token.json")
	v.SetDefault("token_table", "FitbitTokens")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_prefix", "fitadvice:token:")
	v.SetDefault("kms_key_id", "alias/fitadvice-token-key")

	v.SetDefault("secret_source", "env")
	v.SetDefault("secret_prefix", "/fitadvice/")
	v.SetDefault("origin_verify_secret_param", "")

	v.SetDefault("dev_mode", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("http_address", ":8080")
}

// Validate checks the settings the HTTP backend cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "CLIENT_ID")
	}
	if c.RedirectURI == "" {
		missing = append(missing, "REDIRECT_URI")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}

	switch c.TokenStore {
	case "file", "memory", "dynamodb", "redis":
	default:
		return fmt.Errorf("unknown TOKEN_STORE %q", c.TokenStore)
	}
	switch c.SecretSource {
	case "env", "ssm":
	default:
		return fmt.Errorf("unknown SECRET_SOURCE %q", c.SecretSource)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.AdviceCount <= 0 {
		return fmt.Errorf("ADVICE_COUNT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// SecretName returns the full parameter name for a secret.
func (c *Config) SecretName(param string) string {
	return strings.TrimSuffix(c.SecretPrefix, "/") + "/" + param
}

// ResolveSecrets fills the secret-bearing fields through r.
// Every missing secret is reported at once.
func (c *Config) ResolveSecrets(ctx context.Context, r secret.Resolver) error {
	targets := []struct {
		param string
		dst   *string
	}{
		{ClientSecretParam, &c.ClientSecret},
		{JWTSecretParam, &c.JWTSecret},
		{GeminiAPIKeyParam, &c.GeminiAPIKey},
	}

	var missing []string
	for _, t := range targets {
		val, err := r.GetSecret(ctx, c.SecretName(t.param))
		if err != nil {
			missing = append(missing, t.param)
			continue
		}
		*t.dst = val
	}
	if len(missing) > 0 {
		return fmt.Errorf("required secrets could not be resolved: %v", missing)
	}

	// Optional; an unresolvable parameter disables the origin check.
	if c.OriginVerifySecretParam != "" {
		if val, err := r.GetSecret(ctx, c.OriginVerifySecretParam); err == nil {
			c.OriginVerifySecret = val
		}
	}
	return nil
}

// Location returns the time zone used to compute "today". An empty
// TIMEZONE means the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func splitAndTrim(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
