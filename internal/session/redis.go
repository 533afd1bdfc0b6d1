package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure RedisStore implements ReadWriter interface.
var _ ReadWriter = (*RedisStore)(nil)

// Subset of redis.Cmdable used by the store
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Redis backed session shared by operators on several hosts
type RedisStore struct {
	db     redisClient
	prefix string
}

type RedisStoreConfig struct {
	Addr     string
	Password string
	Prefix   string
	DB       int
}

func NewRedisStore(config RedisStoreConfig) *RedisStore {
	return &RedisStore{
		db: redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		}),
		prefix: config.Prefix,
	}
}

func newRedisStoreFromClient(db redisClient, prefix string) *RedisStore {
	return &RedisStore{db: db, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, span := tracer.Start(ctx, "RedisStore.Get", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	value, err := s.db.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		span.SetStatus(codes.Ok, "key not found")
		return "", ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get key")
		return "", err
	}

	span.SetStatus(codes.Ok, "found key")
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "RedisStore.Set", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	if err := s.db.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set key")
		return err
	}

	span.SetStatus(codes.Ok, "stored key")
	return nil
}
