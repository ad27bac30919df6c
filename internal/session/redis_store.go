// Package session stores refresh-token sessions in Redis.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

type tokenData struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore keeps refresh sessions under "refresh:<sha256>" with a TTL matching the token.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "connect to redis")
	}

	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "refresh:"}
}

func (s *RedisStore) key(tokenHash string) string {
	return s.prefix + tokenHash
}

func (s *RedisStore) SaveRefreshSession(ctx context.Context, tokenHash string, userID bson.ObjectID, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return errors.New("refresh session already expired")
	}
	raw, err := json.Marshal(tokenData{UserID: userID.Hex(), ExpiresAt: expiresAt.UTC(), CreatedAt: time.Now().UTC()})
	if err != nil {
		return errors.Wrap(err, "marshal token data")
	}
	if err := s.client.Set(ctx, s.key(tokenHash), raw, ttl).Err(); err != nil {
		return errors.Wrap(err, "save refresh token")
	}
	return nil
}

func (s *RedisStore) LookupRefreshSession(ctx context.Context, tokenHash string) (bson.ObjectID, error) {
	raw, err := s.client.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return bson.NilObjectID, errors.Wrap(repository.ErrNotFound, "refresh token not found or expired")
	}
	if err != nil {
		return bson.NilObjectID, errors.Wrap(err, "lookup refresh token")
	}

	var data tokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		return bson.NilObjectID, errors.Wrap(err, "unmarshal token data")
	}
	uid, err := bson.ObjectIDFromHex(data.UserID)
	if err != nil {
		return bson.NilObjectID, errors.Wrap(err, "refresh token user id")
	}
	return uid, nil
}

func (s *RedisStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, s.key(tokenHash)).Err(); err != nil {
		return errors.Wrap(err, "revoke refresh token")
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
