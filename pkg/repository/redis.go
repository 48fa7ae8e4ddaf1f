package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/JacobArthurs/ecommerce-api/pkg/config"
)

const userCacheTTL = 30 * time.Minute

// CachedUser is the subset of a user record the authentication flow
// needs between role changes.
type CachedUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
}

// UserCache is a redis-backed user-by-username cache. A nil *UserCache is
// valid and behaves as a cache that always misses, so the service runs
// without redis.
type UserCache struct {
	client *redis.Client
}

func NewUserCache(cfg *config.RedisConfig) *UserCache {
	return &UserCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
	}
}

func (c *UserCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Get returns (nil, nil) on a miss.
func (c *UserCache) Get(ctx context.Context, username string) (*CachedUser, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.client.Get(ctx, userCacheKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var user CachedUser
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *UserCache) Put(ctx context.Context, user *CachedUser) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userCacheKey(user.Username), data, userCacheTTL).Err()
}

// Invalidate drops the cached entry; called whenever a user's roles or
// account change.
func (c *UserCache) Invalidate(ctx context.Context, username string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, userCacheKey(username)).Err()
}

func (c *UserCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func userCacheKey(username string) string {
	return fmt.Sprintf("user:%s", username)
}
