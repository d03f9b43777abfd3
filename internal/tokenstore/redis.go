package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jun/fitadvice/internal/crypto"
	"github.com/jun/fitadvice/internal/model"
)

// RedisAPI is the subset of *redis.Client used by RedisStore.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps one JSON value per user under prefix+user_id.
type RedisStore struct {
	client RedisAPI
	prefix string
	enc    crypto.Encryptor
}

func NewRedisStore(client RedisAPI, prefix string, enc crypto.Encryptor) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, enc: enc}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func (s *RedisStore) Save(ctx context.Context, tok model.StoredToken) error {
	sealed, err := sealToken(ctx, s.enc, tok)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := s.client.Set(ctx, s.key(tok.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save token to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*model.StoredToken, error) {
	if userID == "" {
		return nil, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token from redis: %w", err)
	}

	var sealed model.StoredToken
	if err := json.Unmarshal(data, &sealed); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	tok, err := openToken(ctx, s.enc, sealed)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}
