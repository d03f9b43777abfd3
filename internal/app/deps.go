package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"

	"github.com/jun/fitadvice/internal/advice"
	"github.com/jun/fitadvice/internal/config"
	"github.com/jun/fitadvice/internal/crypto"
	"github.com/jun/fitadvice/internal/fitbit"
	"github.com/jun/fitadvice/internal/metrics"
	"github.com/jun/fitadvice/internal/pipeline"
	"github.com/jun/fitadvice/internal/secret"
	"github.com/jun/fitadvice/internal/tokenstore"
)

// awsLoader returns the shared AWS SDK config, loading it on first use.
type awsLoader func() (aws.Config, error)

// NewResolver returns the secret resolver selected by SECRET_SOURCE.
func NewResolver(cfg *config.Config, loadAWS awsLoader) (secret.Resolver, error) {
	if cfg.SecretSource != "ssm" {
		return secret.New(cfg.SecretSource, nil)
	}
	awsCfg, err := loadAWS()
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return secret.New(cfg.SecretSource, ssm.NewFromConfig(awsCfg))
}

func newEncryptor(cfg *config.Config, loadAWS awsLoader, logger *slog.Logger) (crypto.Encryptor, error) {
	if cfg.DevMode {
		logger.Info("using mock token encryption", "dev_mode", true)
		return crypto.NewMockEncryptor(), nil
	}
	awsCfg, err := loadAWS()
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return crypto.NewKMSService(kms.NewFromConfig(awsCfg), cfg.KMSKeyID), nil
}

// NewTokenStore returns the store selected by TOKEN_STORE and a func that
// releases its connections.
func NewTokenStore(ctx context.Context, cfg *config.Config, loadAWS awsLoader, logger *slog.Logger) (tokenstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.TokenStore {
	case "file":
		return tokenstore.NewFileStore(cfg.TokenFile), noop, nil
	case "memory":
		return tokenstore.NewMemoryStore(), noop, nil
	case "dynamodb":
		enc, err := newEncryptor(cfg, loadAWS, logger)
		if err != nil {
			return nil, nil, err
		}
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		return tokenstore.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.TokenTable, enc), noop, nil
	case "redis":
		enc, err := newEncryptor(cfg, loadAWS, logger)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return tokenstore.NewRedisStore(client, cfg.RedisKeyPrefix, enc), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown TOKEN_STORE %q", cfg.TokenStore)
	}
}

// NewAggregator builds the Fitbit client and collection pipeline.
func NewAggregator(cfg *config.Config, httpClient *http.Client, logger *slog.Logger, rec metrics.Recorder) (*pipeline.Aggregator, error) {
	optional, invalid := fitbit.ParseOptional(cfg.ExtraCategories)
	if len(invalid) > 0 {
		return nil, fmt.Errorf("unknown EXTRA_CATEGORIES %v", invalid)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client := fitbit.NewClient(cfg.FitbitAPIBase,
		fitbit.WithHTTPClient(httpClient),
		fitbit.WithTimeout(cfg.UpstreamTimeout),
		fitbit.WithLogger(logger),
		fitbit.WithMetrics(rec),
	)
	return pipeline.NewAggregator(client,
		pipeline.WithOptionalCategories(optional...),
		pipeline.WithLocation(loc),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(rec),
	), nil
}

// NewGenerator wraps text in the advice generator configured by cfg.
// A nil text uses Gemini with the resolved API key.
func NewGenerator(ctx context.Context, cfg *config.Config, text advice.TextGenerator, logger *slog.Logger, rec metrics.Recorder) (*advice.Generator, error) {
	if text == nil {
		gg, err := advice.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEndpoint)
		if err != nil {
			return nil, err
		}
		text = gg
	}
	return advice.NewGenerator(text,
		advice.WithAdviceCount(cfg.AdviceCount),
		advice.WithTimeout(cfg.GenerationTimeout),
		advice.WithLogger(logger),
		advice.WithMetrics(rec),
	), nil
}
