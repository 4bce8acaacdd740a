package remote

import (
	"context"

	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

//go:generate go tool mockgen -destination=./mocks/player_api_mock.go -package=mocks . PlayerAPI

// PlayerAPI 无状态的请求/响应边界：不重试、不缓存
type PlayerAPI interface {
	// Fetch 获取玩家文档，不存在时返回 ErrNotFound
	Fetch(ctx context.Context, userID string) (*playerdoc.PlayerState, error)
	// Create 创建玩家文档，已存在时返回 ErrAlreadyExists
	Create(ctx context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error)
	// Persist 整文档替换，返回服务端存储后的副本
	Persist(ctx context.Context, doc *playerdoc.PlayerState) (*playerdoc.PlayerState, error)
	// FetchQuiz 获取月签到题库
	FetchQuiz(ctx context.Context) ([]playerdoc.QuizQuestion, error)
}
