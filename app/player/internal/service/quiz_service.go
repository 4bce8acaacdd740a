package service

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/lk2023060901/aquarium/app/player/internal/dao"
	"github.com/lk2023060901/aquarium/app/player/internal/metrics"
	"github.com/lk2023060901/aquarium/pkg/logger"
	"github.com/lk2023060901/aquarium/pkg/playerdoc"
)

// QuizConfig 题库配置
type QuizConfig struct {
	// RefreshSpec 题库缓存刷新的 cron 表达式（支持 @every 1m 形式）
	RefreshSpec string `mapstructure:"refresh_spec"`
	// Seed 题库为空时写入的初始题目
	Seed []playerdoc.QuizQuestion `mapstructure:"seed"`
}

// DefaultQuizConfig 默认配置
func DefaultQuizConfig() *QuizConfig {
	return &QuizConfig{
		RefreshSpec: "@every 5m",
		Seed:        DefaultQuestions(),
	}
}

// DefaultQuestions 内置题目
func DefaultQuestions() []playerdoc.QuizQuestion {
	return []playerdoc.QuizQuestion{
		{ID: "q-water", Question: "How often should aquarium water be changed?", Options: []string{"Never", "Regularly", "Once a year"}, CorrectIndex: 1},
		{ID: "q-temp", Question: "Which water temperature suits tropical fish?", Options: []string{"10°C", "25°C", "40°C"}, CorrectIndex: 1},
		{ID: "q-feed", Question: "What happens if fish are overfed?", Options: []string{"Water gets dirty", "Nothing", "They glow"}, CorrectIndex: 0},
		{ID: "q-gills", Question: "What do fish breathe with?", Options: []string{"Lungs", "Fins", "Gills"}, CorrectIndex: 2},
	}
}

// QuizService 题库服务：内存缓存整份题库，定时从存储刷新。
// 实现 app.Server。
type QuizService struct {
	store   dao.QuizStore
	cfg     *QuizConfig
	metrics *metrics.PlayerMetrics
	logger  logger.Logger

	cache atomic.Pointer[[]playerdoc.QuizQuestion]
	cron  *cron.Cron
}

// NewQuizService 创建题库服务
func NewQuizService(store dao.QuizStore, cfg *QuizConfig, m *metrics.PlayerMetrics, l logger.Logger) *QuizService {
	if cfg == nil {
		cfg = DefaultQuizConfig()
	}
	return &QuizService{
		store:   store,
		cfg:     cfg,
		metrics: m,
		logger:  l.Named("service.quiz"),
	}
}

// Start 写入种子题目（题库为空时）、加载缓存并启动定时刷新
func (s *QuizService) Start(ctx context.Context) error {
	if err := s.seed(ctx); err != nil {
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	if s.cfg.RefreshSpec == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.RefreshSpec, func() {
		if err := s.Refresh(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("quiz refresh failed, keeping previous list", "error", err)
		}
	}); err != nil {
		return errors.Wrapf(err, "schedule quiz refresh %q", s.cfg.RefreshSpec)
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop 停止定时刷新并等待正在执行的任务
func (s *QuizService) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *QuizService) seed(ctx context.Context) error {
	if len(s.cfg.Seed) == 0 {
		return nil
	}
	existing, err := s.store.ListQuiz(ctx)
	if err != nil {
		return errors.Wrap(err, "check quiz")
	}
	if len(existing) > 0 {
		return nil
	}
	if err := s.store.ReplaceQuiz(ctx, s.cfg.Seed); err != nil {
		return errors.Wrap(err, "seed quiz")
	}
	s.logger.Info("quiz seeded", "questions", len(s.cfg.Seed))
	return nil
}

// Refresh 从存储重新加载题库
func (s *QuizService) Refresh(ctx context.Context) error {
	qs, err := s.store.ListQuiz(ctx)
	if err != nil {
		return errors.Wrap(err, "load quiz")
	}
	s.cache.Store(&qs)
	s.metrics.SetQuizSize(len(qs))
	return nil
}

// List 返回缓存的题库；尚未加载时直接读存储
func (s *QuizService) List(ctx context.Context) ([]playerdoc.QuizQuestion, error) {
	if qs := s.cache.Load(); qs != nil {
		return *qs, nil
	}
	return s.store.ListQuiz(ctx)
}
