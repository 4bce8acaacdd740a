package dao

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/pkg/database/redis"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

const (
	playerKeyPrefix = "cache:player:"
	playerCacheTTL  = 30 * time.Minute
)

// CacheDAO 玩家文档的 Redis 缓存
type CacheDAO struct {
	kv      redis.KV
	ttl     time.Duration
	codec   redis.Transformer
	logger  logger.Logger
	metrics *metrics.PlayerMetrics
}

// NewCacheDAO 创建缓存 DAO；ttl 为 0 时使用默认值，codec 为 nil 时不压缩
func NewCacheDAO(kv redis.KV, ttl time.Duration, codec redis.Transformer, l logger.Logger, m *metrics.PlayerMetrics) *CacheDAO {
	if ttl <= 0 {
		ttl = playerCacheTTL
	}
	return &CacheDAO{
		kv:      kv,
		ttl:     ttl,
		codec:   codec,
		logger:  l.Named("dao.cache"),
		metrics: m,
	}
}

// GetPlayer 读取缓存；未命中时返回 nil, nil
func (d *CacheDAO) GetPlayer(ctx context.Context, userID string) (*playerdoc.PlayerState, error) {
	doc, err := redis.GetEncoded[playerdoc.PlayerState](ctx, d.kv, playerKeyPrefix+userID, d.codec)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			d.metrics.RecordCacheMiss("redis")
			return nil, nil
		}
		d.logger.ErrorContext(ctx, "failed to get player from cache", "user_id", userID, "error", err)
		return nil, errors.Wrapf(err, "get cached player %s", userID)
	}
	d.metrics.RecordCacheHit("redis")
	doc.Normalize()
	return doc, nil
}

// SetPlayer 写入缓存
func (d *CacheDAO) SetPlayer(ctx context.Context, doc *playerdoc.PlayerState) error {
	if err := redis.SetEncoded(ctx, d.kv, playerKeyPrefix+doc.UserID, doc, d.ttl, d.codec); err != nil {
		d.logger.ErrorContext(ctx, "failed to cache player", "user_id", doc.UserID, "error", err)
		return errors.Wrapf(err, "cache player %s", doc.UserID)
	}
	return nil
}

// DeletePlayer 失效缓存
func (d *CacheDAO) DeletePlayer(ctx context.Context, userID string) error {
	if _, err := d.kv.Del(ctx, playerKeyPrefix+userID); err != nil {
		return errors.Wrapf(err, "evict player %s", userID)
	}
	return nil
}
