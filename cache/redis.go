package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/artfetch/artfetch/types"
	"github.com/artfetch/artfetch/utils"
)

type RedisConfig struct {
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	Password           string        `json:"password"`
	DB                 int           `json:"db"`
	PoolSize           int           `json:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`
}

// deleteIfEquals releases a key only when the caller still owns its value.
var deleteIfEquals = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisStore is the authoritative shared store: every worker process
// coordinates through it, nothing is cached process-locally.
type RedisStore struct {
	ctx       context.Context
	logger    types.Logger
	config    *RedisConfig
	client    *redis.Client
	keyPrefix string
	started   int32
}

func NewRedisStore(ctx context.Context, logger types.Logger, config *types.StoreConfig) (types.Store, error) {
	redisConfig := &RedisConfig{
		Host:               "localhost",
		Port:               6379,
		DB:                 0,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
	}

	if config.Config != nil {
		err := utils.UnmarshalConfig(config.Config, redisConfig)
		if err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis store config")
		}
	}

	store := &RedisStore{
		ctx:       ctx,
		logger:    logger,
		config:    redisConfig,
		keyPrefix: config.KeyPrefix,
	}

	store.client = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password:     redisConfig.Password,
		DB:           redisConfig.DB,
		PoolSize:     redisConfig.PoolSize,
		MinIdleConns: redisConfig.MinIdleConnections,
		DialTimeout:  redisConfig.DialTimeout,
		ReadTimeout:  redisConfig.ReadTimeout,
		WriteTimeout: redisConfig.WriteTimeout,
	})

	if err := store.ping(); err != nil {
		return nil, types.WrapError(err, "failed to connect to redis")
	}

	return store, nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests.
func NewRedisStoreWithClient(ctx context.Context, logger types.Logger, client *redis.Client, keyPrefix string) types.Store {
	return &RedisStore{
		ctx:       ctx,
		logger:    logger,
		config:    &RedisConfig{},
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	result, err := r.client.Get(ctx, r.buildFullKey(key)).Bytes()
	if err != nil {
		if !types.IsError(err, redis.Nil) {
			r.logger.Error("failed to get store entry", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	return result, true
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	err := r.client.Set(ctx, r.buildFullKey(key), value, ttl).Err()
	if err != nil {
		r.logger.Error("failed to set store entry", zap.String("key", key), zap.Error(err))
		return types.WrapError(err, "failed to set store entry")
	}

	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	err := r.client.Del(ctx, r.buildFullKey(key)).Err()
	if err != nil {
		r.logger.Error("failed to delete store key", zap.String("key", key), zap.Error(err))
		return types.WrapError(err, "failed to delete store key")
	}

	return nil
}

func (r *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, types.ErrStoreKeyEmpty
	}

	acquired, err := r.client.SetNX(ctx, r.buildFullKey(key), value, ttl).Result()
	if err != nil {
		return false, types.WrapError(err, "failed to setnx store key")
	}

	return acquired, nil
}

func (r *RedisStore) DeleteIfEquals(ctx context.Context, key, expected string) (bool, error) {
	if key == "" {
		return false, types.ErrStoreKeyEmpty
	}

	deleted, err := deleteIfEquals.Run(ctx, r.client, []string{r.buildFullKey(key)}, expected).Int()
	if err != nil {
		return false, types.WrapError(err, "failed to conditionally delete store key")
	}

	return deleted == 1, nil
}

func (r *RedisStore) Start() error {
	if !atomic.CompareAndSwapInt32(&r.started, 0, 1) {
		return nil
	}

	r.logger.Info("Redis store started")
	return nil
}

func (r *RedisStore) Stop() error {
	if !atomic.CompareAndSwapInt32(&r.started, 1, 0) {
		return nil
	}

	if r.client != nil {
		if err := r.client.Close(); err != nil {
			r.logger.Error("Failed to close redis client", zap.Error(err))
			return types.WrapError(err, "failed to close redis client")
		}
	}

	r.logger.Info("Redis store closed")
	return nil
}

func (r *RedisStore) IsRunning() bool {
	return atomic.LoadInt32(&r.started) == 1
}

func (r *RedisStore) ping() error {
	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) buildFullKey(key string) string {
	if r.keyPrefix != "" {
		return fmt.Sprintf("%s:%s", r.keyPrefix, key)
	}
	return key
}
