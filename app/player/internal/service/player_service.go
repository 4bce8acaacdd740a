// Package service 玩家服务业务逻辑
package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/app/player/internal/dao"
	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/app/player/internal/repository"
	"github.com/lk2023060901/aquarium/pkg/idgen"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// PlayerService 玩家文档的读取、创建与整文档替换
type PlayerService struct {
	repo    repository.PlayerRepository
	ids     idgen.Generator
	metrics *metrics.PlayerMetrics
	logger  logger.Logger
	clock   func() time.Time
}

// NewPlayerService 创建玩家服务
func NewPlayerService(
	repo repository.PlayerRepository,
	ids idgen.Generator,
	m *metrics.PlayerMetrics,
	l logger.Logger,
) *PlayerService {
	return &PlayerService{
		repo:    repo,
		ids:     ids,
		metrics: m,
		logger:  l.Named("service.player"),
		clock:   time.Now,
	}
}

// Get 读取玩家文档
func (s *PlayerService) Get(ctx context.Context, userID string) (*playerdoc.PlayerState, error) {
	return s.repo.Get(ctx, userID)
}

// Create 保存新玩家文档。服务端分配内部 ID 并盖上时间戳，
// 客户端带来的 _id 一律丢弃。
func (s *PlayerService) Create(ctx context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	id, err := s.ids.NextID()
	if err != nil {
		return nil, errors.Wrap(err, "allocate player id")
	}
	now := s.clock().UTC()
	doc.ID = id
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if err := s.repo.Create(ctx, doc); err != nil {
		if errors.Is(err, dao.ErrPlayerExists) {
			s.metrics.RecordCreate("exists")
		} else {
			s.metrics.RecordCreate("error")
		}
		return nil, err
	}
	s.metrics.RecordCreate("created")
	s.logger.InfoContext(ctx, "player created", "user_id", doc.UserID, "id", doc.ID)
	return doc, nil
}

// Replace 以 doc 整体替换 userID 的文档并返回保存后的副本。
// userID 以路径为准，内部 ID 与创建时间沿用已存储的值。
func (s *PlayerService) Replace(ctx context.Context, userID string, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error) {
	current, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	doc.Normalize()
	doc.UserID = userID
	doc.ID = current.ID
	doc.CreatedAt = current.CreatedAt
	doc.UpdatedAt = s.clock().UTC()
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Replace(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
