// Package dao 玩家文档与题库的持久化。
//
// 玩家文档整体以 JSON 存储（Postgres 为 JSONB，SQLite 为 TEXT），
// 写入总是整文档替换，后写者胜。
package dao

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

var (
	// ErrPlayerNotFound 玩家不存在
	ErrPlayerNotFound = errors.New("player not found")
	// ErrPlayerExists 创建时玩家已存在
	ErrPlayerExists = errors.New("player already exists")
)

// PlayerStore 玩家文档存储
type PlayerStore interface {
	// GetPlayer 读取文档；不存在时返回 ErrPlayerNotFound
	GetPlayer(ctx context.Context, userID string) (*playerdoc.PlayerState, error)
	// CreatePlayer 插入新文档；已存在时返回 ErrPlayerExists
	CreatePlayer(ctx context.Context, doc *playerdoc.PlayerState) error
	// ReplacePlayer 按 doc.UserID 整文档替换；不存在时返回 ErrPlayerNotFound
	ReplacePlayer(ctx context.Context, doc *playerdoc.PlayerState) error
}

// QuizStore 月签到题库存储
type QuizStore interface {
	ListQuiz(ctx context.Context) ([]playerdoc.QuizQuestion, error)
	// ReplaceQuiz 以给定顺序整体替换题库
	ReplaceQuiz(ctx context.Context, questions []playerdoc.QuizQuestion) error
}

// Store 一个存储后端同时提供玩家文档与题库
type Store interface {
	PlayerStore
	QuizStore
	Migrate(ctx context.Context) error
	Close() error
}

// observer 包装指标记录，m 为 nil 时不记录
type observer struct {
	backend string
	m       *metrics.PlayerMetrics
}

func (o observer) done(op string, start time.Time, err error) {
	if o.m == nil {
		return
	}
	// 业务性结果不计为存储失败
	if errors.IsAny(err, ErrPlayerNotFound, ErrPlayerExists) {
		err = nil
	}
	o.m.RecordDBQuery(o.backend, op, err, time.Since(start))
}

func encodeDoc(doc *playerdoc.PlayerState) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "encode player %s", doc.UserID)
	}
	return raw, nil
}

func decodeDoc(userID string, raw []byte) (*playerdoc.PlayerState, error) {
	var doc playerdoc.PlayerState
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode player %s", userID)
	}
	doc.Normalize()
	return &doc, nil
}

func encodeOptions(q playerdoc.QuizQuestion) ([]byte, error) {
	raw, err := json.Marshal(q.Options)
	if err != nil {
		return nil, errors.Wrapf(err, "encode quiz %s options", q.ID)
	}
	return raw, nil
}

func decodeOptions(id string, raw []byte) ([]string, error) {
	var opts []string
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, errors.Wrapf(err, "decode quiz %s options", id)
	}
	return opts, nil
}
