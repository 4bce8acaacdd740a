// Package repository 组合数据库与缓存的玩家文档仓储
package repository

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/app/player/internal/dao"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// PlayerRepository 玩家文档仓储接口
type PlayerRepository interface {
	Get(ctx context.Context, userID string) (*playerdoc.PlayerState, error)
	Create(ctx context.Context, doc *playerdoc.PlayerState) error
	Replace(ctx context.Context, doc *playerdoc.PlayerState) error
}

// playerRepositoryImpl 旁路缓存：读先查缓存，写先落库再刷新缓存。
// 缓存故障只降级不报错，数据库始终是唯一真相。
type playerRepositoryImpl struct {
	store  dao.PlayerStore
	cache  *dao.CacheDAO
	logger logger.Logger
}

// NewPlayerRepository 创建玩家仓储；cache 可为 nil（未启用 Redis）
func NewPlayerRepository(store dao.PlayerStore, cache *dao.CacheDAO, l logger.Logger) PlayerRepository {
	return &playerRepositoryImpl{
		store:  store,
		cache:  cache,
		logger: l.Named("repository.player"),
	}
}

func (r *playerRepositoryImpl) Get(ctx context.Context, userID string) (*playerdoc.PlayerState, error) {
	if r.cache != nil {
		doc, err := r.cache.GetPlayer(ctx, userID)
		if err != nil {
			r.logger.WarnContext(ctx, "cache read failed, falling back to store", "user_id", userID, "error", err)
		} else if doc != nil {
			return doc, nil
		}
	}

	doc, err := r.store.GetPlayer(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.refill(ctx, doc)
	return doc, nil
}

func (r *playerRepositoryImpl) Create(ctx context.Context, doc *playerdoc.PlayerState) error {
	if err := r.store.CreatePlayer(ctx, doc); err != nil {
		return err
	}
	r.refill(ctx, doc)
	return nil
}

func (r *playerRepositoryImpl) Replace(ctx context.Context, doc *playerdoc.PlayerState) error {
	if err := r.store.ReplacePlayer(ctx, doc); err != nil {
		if errors.Is(err, dao.ErrPlayerNotFound) {
			r.evict(ctx, doc.UserID)
		}
		return err
	}
	r.refill(ctx, doc)
	return nil
}

// refill 写缓存失败时删除旧值，避免读到过期文档
func (r *playerRepositoryImpl) refill(ctx context.Context, doc *playerdoc.PlayerState) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetPlayer(ctx, doc); err != nil {
		r.evict(ctx, doc.UserID)
	}
}

func (r *playerRepositoryImpl) evict(ctx context.Context, userID string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.DeletePlayer(ctx, userID); err != nil {
		r.logger.WarnContext(ctx, "cache evict failed", "user_id", userID, "error", err)
	}
}
