package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/storefront/pkg/config"
)

// productsVersionKey is bumped on every product mutation. Cached listing pages
// embed the version in their key, so a bump orphans all of them at once and
// they expire on their own TTL.
const productsVersionKey = "products:version"

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func (r *RedisRepository) productsVersion(ctx context.Context) (int64, error) {
	v, err := r.client.Get(ctx, productsVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// ProductPageKey resolves key against the current products version. A page
// must be read and stored under the same resolved key, so a page fetched
// before an invalidation lands under the old version and is never served.
func (r *RedisRepository) ProductPageKey(ctx context.Context, key string) (string, error) {
	version, err := r.productsVersion(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:v%d:%s", version, key), nil
}

// ProductPage loads the cached listing page stored under pageKey into dest.
// It reports false on a cache miss.
func (r *RedisRepository) ProductPage(ctx context.Context, pageKey string, dest interface{}) (bool, error) {
	if err := r.GetJSON(ctx, pageKey, dest); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *RedisRepository) StoreProductPage(ctx context.Context, pageKey string, page interface{}) error {
	return r.SetJSON(ctx, pageKey, page, r.config.CacheTTL)
}

// InvalidateProducts drops every cached listing page.
func (r *RedisRepository) InvalidateProducts(ctx context.Context) error {
	return r.client.Incr(ctx, productsVersionKey).Err()
}
