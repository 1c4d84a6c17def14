package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/klwxsrx/go-auth-client/pkg/storage"
)

const (
	DefaultKeyPrefix         = "auth-client:"
	defaultConnectionTimeout = 20 * time.Second
)

type Config struct {
	Address           string
	Username          string
	Password          string
	DB                int
	KeyPrefix         string
	ConnectionTimeout time.Duration
}

type Storage struct {
	client goredis.UniversalClient
	prefix string
}

func New(client goredis.UniversalClient, keyPrefix string) *Storage {
	return &Storage{
		client: client,
		prefix: keyPrefix,
	}
}

// Open connects to redis and waits until it answers a ping.
func Open(ctx context.Context, config Config) (*Storage, error) {
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = defaultConnectionTimeout
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     config.Address,
		Username: config.Username,
		Password: config.Password,
		DB:       config.DB,
	})

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = config.ConnectionTimeout / 4
	eb.MaxElapsedTime = config.ConnectionTimeout

	err := backoff.Retry(func() error {
		return client.Ping(ctx).Err()
	}, backoff.WithContext(eb, ctx))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to open redis connection: %w", err)
	}

	return New(client, config.KeyPrefix), nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get redis key %s: %w", key, err)
	}
	return value, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	err := s.client.Set(ctx, s.prefix+key, value, 0).Err()
	if err != nil {
		return fmt.Errorf("set redis key %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.client.Del(ctx, s.prefix+key).Err()
	if err != nil {
		return fmt.Errorf("delete redis key %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
