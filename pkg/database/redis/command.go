package redis

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Get 获取字符串值（从从库读取）；键不存在时返回 ErrNil
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.getSlave().Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", errors.Wrapf(err, "get %s", key)
	}
	return val, nil
}

// Set 设置字符串值（写入主库）；expiration 为 0 表示不过期
func (c *Client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := c.getMaster().Set(ctx, key, value, expiration).Err(); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}

// SetNX 仅当键不存在时设置
func (c *Client) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	ok, err := c.getMaster().SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		return false, errors.Wrapf(err, "setnx %s", key)
	}
	return ok, nil
}

// Del 删除键，返回删除数量
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.getMaster().Del(ctx, keys...).Result()
	if err != nil {
		return 0, errors.Wrap(err, "del")
	}
	return n, nil
}

// Exists 返回存在的键数量
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.getSlave().Exists(ctx, keys...).Result()
	if err != nil {
		return 0, errors.Wrap(err, "exists")
	}
	return n, nil
}

// TTL 剩余过期时间
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.getSlave().TTL(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "ttl %s", key)
	}
	return d, nil
}
